package services

import (
  "context"
  "strings"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/yungbote/launchcopy-backend/internal/platform/apierr"
  "github.com/yungbote/launchcopy-backend/internal/platform/logger"
  "github.com/yungbote/launchcopy-backend/internal/repos"
  "github.com/yungbote/launchcopy-backend/internal/requestdata"
  "github.com/yungbote/launchcopy-backend/internal/types"
)

type ProjectService interface {
  CreateProject(ctx context.Context, tx *gorm.DB, name string) (*types.Project, error)
  GetUserProjects(ctx context.Context, tx *gorm.DB) ([]*types.Project, error)
  GetProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (*types.Project, error)
  DeleteProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) error
}

type projectService struct {
  db          *gorm.DB
  log         *logger.Logger
  projectRepo repos.ProjectRepo
  notifier    Notifier
}

func NewProjectService(db *gorm.DB, baseLog *logger.Logger, projectRepo repos.ProjectRepo, notifier Notifier) ProjectService {
  serviceLog := baseLog.With("service", "ProjectService")
  return &projectService{
    db:          db,
    log:         serviceLog,
    projectRepo: projectRepo,
    notifier:    notifier,
  }
}

func (ps *projectService) CreateProject(ctx context.Context, tx *gorm.DB, name string) (*types.Project, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, apierr.Unauthorized("login required")
  }
  name = strings.TrimSpace(name)
  if name == "" {
    return nil, apierr.Validation("project name required")
  }

  project := &types.Project{
    ID:     uuid.New(),
    UserID: rd.UserID,
    Name:   name,
    Active: true,
  }
  if _, err := ps.projectRepo.Create(ctx, tx, []*types.Project{project}); err != nil {
    ps.log.Error("CreateProject failed", "error", err)
    return nil, err
  }

  if ps.notifier != nil {
    ps.notifier.ProjectCreated(rd.UserID, project.ID, project.Name)
  }
  return project, nil
}

func (ps *projectService) GetUserProjects(ctx context.Context, tx *gorm.DB) ([]*types.Project, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, apierr.Unauthorized("login required")
  }
  return ps.projectRepo.GetByUserIDs(ctx, tx, []uuid.UUID{rd.UserID})
}

func (ps *projectService) GetProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (*types.Project, error) {
  project, err := ps.projectRepo.GetByID(ctx, tx, projectID)
  if err != nil {
    return nil, err
  }
  if rd := requestdata.GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil && project.UserID != rd.UserID {
    return nil, apierr.NotFound("project %s not found", projectID)
  }
  return project, nil
}

func (ps *projectService) DeleteProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) error {
  if _, err := ps.GetProject(ctx, tx, projectID); err != nil {
    return err
  }
  return ps.projectRepo.SoftDelete(ctx, tx, projectID)
}
