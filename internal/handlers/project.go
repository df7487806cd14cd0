package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/yungbote/launchcopy-backend/internal/platform/logger"
  "github.com/yungbote/launchcopy-backend/internal/services"
)

type ProjectHandler struct {
  log            *logger.Logger
  projectService services.ProjectService
}

func NewProjectHandler(baseLog *logger.Logger, projectService services.ProjectService) *ProjectHandler {
  return &ProjectHandler{
    log:            baseLog.With("handler", "ProjectHandler"),
    projectService: projectService,
  }
}

type createProjectRequest struct {
  Name string `json:"name" binding:"required"`
}

func (h *ProjectHandler) Create(c *gin.Context) {
  var req createProjectRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }
  project, err := h.projectService.CreateProject(c.Request.Context(), nil, req.Name)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, gin.H{"project": project})
}

func (h *ProjectHandler) List(c *gin.Context) {
  projects, err := h.projectService.GetUserProjects(c.Request.Context(), nil)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, gin.H{"projects": projects})
}

func (h *ProjectHandler) Get(c *gin.Context) {
  projectID, err := uuid.Parse(c.Param("projectId"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }
  project, err := h.projectService.GetProject(c.Request.Context(), nil, projectID)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, gin.H{"project": project})
}

func (h *ProjectHandler) Delete(c *gin.Context) {
  projectID, err := uuid.Parse(c.Param("projectId"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }
  if err := h.projectService.DeleteProject(c.Request.Context(), nil, projectID); err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, gin.H{"status": "deleted"})
}
