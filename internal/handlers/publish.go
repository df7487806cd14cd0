package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/yungbote/launchcopy-backend/internal/platform/logger"
  "github.com/yungbote/launchcopy-backend/internal/services"
)

type PublishHandler struct {
  log            *logger.Logger
  publishService services.PublishService
}

func NewPublishHandler(baseLog *logger.Logger, publishService services.PublishService) *PublishHandler {
  return &PublishHandler{
    log:            baseLog.With("handler", "PublishHandler"),
    publishService: publishService,
  }
}

// Preview returns the approved key/value pairs the CRM push would send.
func (h *PublishHandler) Preview(c *gin.Context) {
  projectID, err := uuid.Parse(c.Param("projectId"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }
  fields, err := h.publishService.ApprovedFields(c.Request.Context(), nil, projectID)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, gin.H{"fields": fields})
}
