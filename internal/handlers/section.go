package handlers

import (
  "net/http"
  "strconv"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/yungbote/launchcopy-backend/internal/platform/logger"
  "github.com/yungbote/launchcopy-backend/internal/services"
)

type SectionHandler struct {
  log            *logger.Logger
  contentService services.ContentService
}

func NewSectionHandler(baseLog *logger.Logger, contentService services.ContentService) *SectionHandler {
  return &SectionHandler{
    log:            baseLog.With("handler", "SectionHandler"),
    contentService: contentService,
  }
}

func sectionKey(c *gin.Context) (uuid.UUID, string, error) {
  projectID, err := uuid.Parse(c.Param("projectId"))
  if err != nil {
    return uuid.Nil, "", err
  }
  return projectID, c.Param("sectionType"), nil
}

type putDocumentRequest struct {
  Document map[string]any `json:"document" binding:"required"`
}

func (h *SectionHandler) PutDocument(c *gin.Context) {
  projectID, sectionType, err := sectionKey(c)
  if err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }
  var req putDocumentRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }
  result, err := h.contentService.PutSectionDocument(c.Request.Context(), nil, projectID, sectionType, req.Document)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, result)
}

func (h *SectionHandler) GetDocument(c *gin.Context) {
  projectID, sectionType, err := sectionKey(c)
  if err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }
  var version *int
  if raw := c.Query("version"); raw != "" {
    v, convErr := strconv.Atoi(raw)
    if convErr != nil {
      RespondError(c, http.StatusBadRequest, "bad_request", convErr)
      return
    }
    version = &v
  }
  doc, err := h.contentService.GetSectionDocument(c.Request.Context(), nil, projectID, sectionType, version)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, gin.H{"document": doc})
}

type setFieldRequest struct {
  Path  string `json:"path" binding:"required"`
  Value any    `json:"value"`
}

func (h *SectionHandler) SetField(c *gin.Context) {
  projectID, sectionType, err := sectionKey(c)
  if err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }
  var req setFieldRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }
  result, err := h.contentService.SetFieldByPath(c.Request.Context(), nil, projectID, sectionType, req.Path, req.Value)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, result)
}

type batchSetFieldsRequest struct {
  Fields map[string]any `json:"fields" binding:"required"`
}

func (h *SectionHandler) BatchSetFields(c *gin.Context) {
  projectID, sectionType, err := sectionKey(c)
  if err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }
  var req batchSetFieldsRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }
  result, err := h.contentService.BatchSetFields(c.Request.Context(), nil, projectID, sectionType, req.Fields)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, result)
}

func (h *SectionHandler) ListFields(c *gin.Context) {
  projectID, sectionType, err := sectionKey(c)
  if err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }
  result, err := h.contentService.ListFields(c.Request.Context(), nil, projectID, sectionType)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, result)
}

func (h *SectionHandler) Approve(c *gin.Context) {
  projectID, sectionType, err := sectionKey(c)
  if err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }
  result, err := h.contentService.ApproveSection(c.Request.Context(), nil, projectID, sectionType)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, result)
}
