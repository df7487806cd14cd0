package repos

import (
  "context"
  "errors"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/yungbote/launchcopy-backend/internal/platform/apierr"
  "github.com/yungbote/launchcopy-backend/internal/platform/logger"
  "github.com/yungbote/launchcopy-backend/internal/types"
)

type ProjectRepo interface {
  Create(ctx context.Context, tx *gorm.DB, projects []*types.Project) ([]*types.Project, error)
  GetByID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (*types.Project, error)
  GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.Project, error)
  // SoftDelete flags the project deleted. Section documents and field
  // records stay in place under it; they only go away if the row is ever
  // hard-deleted, via the FK cascade.
  SoftDelete(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) error
}

type projectRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewProjectRepo(db *gorm.DB, baseLog *logger.Logger) ProjectRepo {
  repoLog := baseLog.With("repo", "ProjectRepo")
  return &projectRepo{db: db, log: repoLog}
}

func (pr *projectRepo) Create(ctx context.Context, tx *gorm.DB, projects []*types.Project) ([]*types.Project, error) {
  transaction := tx
  if transaction == nil {
    transaction = pr.db
  }

  if len(projects) == 0 {
    return []*types.Project{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&projects).Error; err != nil {
    return nil, err
  }
  return projects, nil
}

func (pr *projectRepo) GetByID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (*types.Project, error) {
  transaction := tx
  if transaction == nil {
    transaction = pr.db
  }

  var project types.Project
  if err := transaction.WithContext(ctx).
    Where("id = ?", projectID).
    Take(&project).Error; err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil, apierr.NotFound("project %s not found", projectID)
    }
    return nil, err
  }
  return &project, nil
}

func (pr *projectRepo) GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.Project, error) {
  transaction := tx
  if transaction == nil {
    transaction = pr.db
  }

  var results []*types.Project
  if len(userIDs) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("user_id IN ?", userIDs).
    Order("created_at DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (pr *projectRepo) SoftDelete(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = pr.db
  }

  res := transaction.WithContext(ctx).
    Where("id = ?", projectID).
    Delete(&types.Project{})
  if res.Error != nil {
    return res.Error
  }
  if res.RowsAffected == 0 {
    return apierr.NotFound("project %s not found", projectID)
  }
  return nil
}
