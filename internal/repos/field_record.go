package repos

import (
  "context"
  "errors"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/yungbote/launchcopy-backend/internal/platform/apierr"
  "github.com/yungbote/launchcopy-backend/internal/platform/logger"
  "github.com/yungbote/launchcopy-backend/internal/types"
)

// UpsertFieldOptions carries the non-value attributes of a field version.
// ApprovedReset defaults to true everywhere: a value change always produces
// an unapproved row. Only the reconciler may pass false, and only when it is
// carrying an unchanged attribute set forward.
type UpsertFieldOptions struct {
  Label         string
  FieldType     string
  Metadata      datatypes.JSON
  IsCustom      bool
  DisplayOrder  int
  ApprovedReset bool
}

type FieldRecordRepo interface {
  ListCurrent(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType string) ([]*types.FieldRecord, error)
  GetCurrent(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType, fieldID string) (*types.FieldRecord, error)
  // UpsertVersion creates version 1 when no current row exists, otherwise
  // flips the current row off and inserts version max+1. Linearizable per
  // (project, section_type, field_id); a losing writer's value is stored as
  // non-current history and surfaces a conflict error.
  UpsertVersion(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType, fieldID string, value datatypes.JSON, opts UpsertFieldOptions) (*types.FieldRecord, error)
  // ApproveAll flips is_approved on every current row of the section in one
  // statement, so a row superseded after the caller's read is never approved.
  ApproveAll(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType string) (int64, error)
}

type fieldRecordRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewFieldRecordRepo(db *gorm.DB, baseLog *logger.Logger) FieldRecordRepo {
  repoLog := baseLog.With("repo", "FieldRecordRepo")
  return &fieldRecordRepo{db: db, log: repoLog}
}

func (fr *fieldRecordRepo) ListCurrent(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType string) ([]*types.FieldRecord, error) {
  transaction := tx
  if transaction == nil {
    transaction = fr.db
  }

  var results []*types.FieldRecord
  if err := transaction.WithContext(ctx).
    Where("project_id = ? AND section_type = ? AND is_current = ?", projectID, sectionType, true).
    Order("display_order ASC, field_id ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (fr *fieldRecordRepo) GetCurrent(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType, fieldID string) (*types.FieldRecord, error) {
  transaction := tx
  if transaction == nil {
    transaction = fr.db
  }

  var rec types.FieldRecord
  if err := transaction.WithContext(ctx).
    Where("project_id = ? AND section_type = ? AND field_id = ? AND is_current = ?", projectID, sectionType, fieldID, true).
    Take(&rec).Error; err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil, apierr.NotFound("no current field %s for project=%s section=%s", fieldID, projectID, sectionType)
    }
    return nil, err
  }
  return &rec, nil
}

func (fr *fieldRecordRepo) UpsertVersion(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType, fieldID string, value datatypes.JSON, opts UpsertFieldOptions) (*types.FieldRecord, error) {
  transaction := tx
  if transaction == nil {
    transaction = fr.db
  }

  var rec *types.FieldRecord

  err := transaction.WithContext(ctx).Transaction(func(innerTx *gorm.DB) error {
    var prev types.FieldRecord
    havePrev := true
    if err := innerTx.
      Where("project_id = ? AND section_type = ? AND field_id = ? AND is_current = ?", projectID, sectionType, fieldID, true).
      Take(&prev).Error; err != nil {
      if !errors.Is(err, gorm.ErrRecordNotFound) {
        return err
      }
      havePrev = false
    }

    next, err := nextFieldVersion(innerTx, projectID, sectionType, fieldID)
    if err != nil {
      return err
    }

    approved := false
    if havePrev {
      res := innerTx.Model(&types.FieldRecord{}).
        Where("id = ? AND is_current = ?", prev.ID, true).
        Update("is_current", false)
      if res.Error != nil {
        return res.Error
      }
      if res.RowsAffected == 0 {
        return errLostRace
      }
      if !opts.ApprovedReset {
        approved = prev.IsApproved
      }
    }

    rec = &types.FieldRecord{
      ID:           uuid.New(),
      ProjectID:    projectID,
      SectionType:  sectionType,
      FieldID:      fieldID,
      Version:      next,
      IsCurrent:    true,
      Value:        value,
      Label:        opts.Label,
      FieldType:    opts.FieldType,
      Metadata:     opts.Metadata,
      IsCustom:     opts.IsCustom,
      IsApproved:   approved,
      DisplayOrder: opts.DisplayOrder,
    }
    if err := innerTx.Create(rec).Error; err != nil {
      if isDuplicateKey(err) {
        return errLostRace
      }
      return err
    }
    return nil
  })
  if err == nil {
    return rec, nil
  }
  if errors.Is(err, errLostRace) {
    if histErr := fr.insertHistorical(ctx, projectID, sectionType, fieldID, value, opts); histErr != nil {
      fr.log.Error("Failed to store losing field write as history", "error", histErr, "project_id", projectID, "section_type", sectionType, "field_id", fieldID)
    }
    return nil, apierr.Conflict("concurrent field write for project=%s section=%s field=%s", projectID, sectionType, fieldID)
  }
  return nil, err
}

func (fr *fieldRecordRepo) ApproveAll(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType string) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = fr.db
  }

  res := transaction.WithContext(ctx).Model(&types.FieldRecord{}).
    Where("project_id = ? AND section_type = ? AND is_current = ?", projectID, sectionType, true).
    Update("is_approved", true)
  if res.Error != nil {
    return 0, res.Error
  }
  return res.RowsAffected, nil
}

func (fr *fieldRecordRepo) insertHistorical(ctx context.Context, projectID uuid.UUID, sectionType, fieldID string, value datatypes.JSON, opts UpsertFieldOptions) error {
  var lastErr error
  for attempt := 0; attempt < 3; attempt++ {
    err := fr.db.WithContext(ctx).Transaction(func(innerTx *gorm.DB) error {
      next, err := nextFieldVersion(innerTx, projectID, sectionType, fieldID)
      if err != nil {
        return err
      }
      hist := &types.FieldRecord{
        ID:           uuid.New(),
        ProjectID:    projectID,
        SectionType:  sectionType,
        FieldID:      fieldID,
        Version:      next,
        IsCurrent:    false,
        Value:        value,
        Label:        opts.Label,
        FieldType:    opts.FieldType,
        Metadata:     opts.Metadata,
        IsCustom:     opts.IsCustom,
        IsApproved:   false,
        DisplayOrder: opts.DisplayOrder,
      }
      return innerTx.Create(hist).Error
    })
    if err == nil {
      return nil
    }
    lastErr = err
    if !isDuplicateKey(err) {
      return err
    }
  }
  return lastErr
}

func nextFieldVersion(tx *gorm.DB, projectID uuid.UUID, sectionType, fieldID string) (int, error) {
  var max int
  if err := tx.Model(&types.FieldRecord{}).
    Where("project_id = ? AND section_type = ? AND field_id = ?", projectID, sectionType, fieldID).
    Select("COALESCE(MAX(version), 0)").
    Scan(&max).Error; err != nil {
    return 0, err
  }
  return max + 1, nil
}
