package services

import (
  "context"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/yungbote/launchcopy-backend/internal/modules/content"
  "github.com/yungbote/launchcopy-backend/internal/platform/apierr"
  "github.com/yungbote/launchcopy-backend/internal/platform/logger"
  "github.com/yungbote/launchcopy-backend/internal/repos"
  "github.com/yungbote/launchcopy-backend/internal/requestdata"
)

// PublishedField is the key/value shape the CRM push pipeline consumes:
// flat, ordered, approved-only.
type PublishedField struct {
  SectionType  string         `json:"section_type"`
  FieldID      string         `json:"field_id"`
  Label        string         `json:"label"`
  Value        datatypes.JSON `json:"value"`
  Version      int            `json:"version"`
  DisplayOrder int            `json:"display_order"`
}

// PublishService reads what is publishable. It never mutates content: the
// actual CRM push lives outside this repo and only consumes this view.
type PublishService interface {
  ApprovedFields(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]PublishedField, error)
}

type publishService struct {
  db       *gorm.DB
  log      *logger.Logger
  registry *content.Registry
  fields   repos.FieldRecordRepo
  projects repos.ProjectRepo
}

func NewPublishService(db *gorm.DB, baseLog *logger.Logger, registry *content.Registry, fields repos.FieldRecordRepo, projects repos.ProjectRepo) PublishService {
  serviceLog := baseLog.With("service", "PublishService")
  return &publishService{
    db:       db,
    log:      serviceLog,
    registry: registry,
    fields:   fields,
    projects: projects,
  }
}

func (ps *publishService) ApprovedFields(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]PublishedField, error) {
  transaction := tx
  if transaction == nil {
    transaction = ps.db
  }

  // Same gate as the content paths: unknown and foreign projects are
  // indistinguishable to the caller.
  project, err := ps.projects.GetByID(ctx, transaction, projectID)
  if err != nil {
    return nil, err
  }
  if rd := requestdata.GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil && project.UserID != rd.UserID {
    return nil, apierr.NotFound("project %s not found", projectID)
  }

  out := []PublishedField{}
  for _, sectionType := range ps.registry.Types() {
    records, err := ps.fields.ListCurrent(ctx, transaction, projectID, sectionType)
    if err != nil {
      return nil, err
    }
    for _, rec := range records {
      if !rec.IsApproved {
        continue
      }
      out = append(out, PublishedField{
        SectionType:  rec.SectionType,
        FieldID:      rec.FieldID,
        Label:        rec.Label,
        Value:        rec.Value,
        Version:      rec.Version,
        DisplayOrder: rec.DisplayOrder,
      })
    }
  }
  return out, nil
}
