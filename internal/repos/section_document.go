package repos

import (
  "context"
  "errors"
  "strings"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/yungbote/launchcopy-backend/internal/platform/apierr"
  "github.com/yungbote/launchcopy-backend/internal/platform/logger"
  "github.com/yungbote/launchcopy-backend/internal/types"
)

// errLostRace is internal to the store: a writer observed a current row that
// another writer superseded mid-flight.
var errLostRace = errors.New("lost current-version race")

type SectionDocumentRepo interface {
  GetCurrent(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType string) (*types.SectionDocument, error)
  GetAtVersion(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType string, version int) (*types.SectionDocument, error)
  // PutNew inserts a new current version and flips the previous one off in a
  // single transaction. Returns the new row and the previous content (nil if
  // this is the first version) so callers can diff. A writer that loses the
  // current-version race still gets its content stored as a non-current
  // historical version and receives a conflict error.
  PutNew(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType string, content datatypes.JSON, contentHash string) (*types.SectionDocument, datatypes.JSON, error)
  // CreateIfMissing creates version 1 when the section has never been
  // written. Returns (doc, false) untouched if a current version exists.
  CreateIfMissing(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType string, content datatypes.JSON, contentHash string) (*types.SectionDocument, bool, error)
  SetStatus(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType string, status string) error
}

type sectionDocumentRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewSectionDocumentRepo(db *gorm.DB, baseLog *logger.Logger) SectionDocumentRepo {
  repoLog := baseLog.With("repo", "SectionDocumentRepo")
  return &sectionDocumentRepo{db: db, log: repoLog}
}

func (sr *sectionDocumentRepo) GetCurrent(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType string) (*types.SectionDocument, error) {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }

  var doc types.SectionDocument
  if err := transaction.WithContext(ctx).
    Where("project_id = ? AND section_type = ? AND is_current = ?", projectID, sectionType, true).
    Take(&doc).Error; err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil, apierr.NotFound("no current document for project=%s section=%s", projectID, sectionType)
    }
    return nil, err
  }
  return &doc, nil
}

func (sr *sectionDocumentRepo) GetAtVersion(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType string, version int) (*types.SectionDocument, error) {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }

  var doc types.SectionDocument
  if err := transaction.WithContext(ctx).
    Where("project_id = ? AND section_type = ? AND version = ?", projectID, sectionType, version).
    Take(&doc).Error; err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil, apierr.NotFound("no document version %d for project=%s section=%s", version, projectID, sectionType)
    }
    return nil, err
  }
  return &doc, nil
}

func (sr *sectionDocumentRepo) PutNew(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType string, content datatypes.JSON, contentHash string) (*types.SectionDocument, datatypes.JSON, error) {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }

  var doc *types.SectionDocument
  var prevContent datatypes.JSON

  err := transaction.WithContext(ctx).Transaction(func(innerTx *gorm.DB) error {
    var prev types.SectionDocument
    havePrev := true
    if err := innerTx.
      Where("project_id = ? AND section_type = ? AND is_current = ?", projectID, sectionType, true).
      Take(&prev).Error; err != nil {
      if !errors.Is(err, gorm.ErrRecordNotFound) {
        return err
      }
      havePrev = false
    }

    next, err := nextSectionVersion(innerTx, projectID, sectionType)
    if err != nil {
      return err
    }

    if havePrev {
      // Compare-and-set on the current flag. Zero rows means another
      // writer already superseded the row we read.
      res := innerTx.Model(&types.SectionDocument{}).
        Where("id = ? AND is_current = ?", prev.ID, true).
        Update("is_current", false)
      if res.Error != nil {
        return res.Error
      }
      if res.RowsAffected == 0 {
        return errLostRace
      }
      prevContent = prev.Content
    }

    doc = &types.SectionDocument{
      ID:          uuid.New(),
      ProjectID:   projectID,
      SectionType: sectionType,
      Version:     next,
      IsCurrent:   true,
      Status:      types.SectionStatusPending,
      Content:     content,
      ContentHash: contentHash,
    }
    if err := innerTx.Create(doc).Error; err != nil {
      if isDuplicateKey(err) {
        return errLostRace
      }
      return err
    }
    return nil
  })
  if err == nil {
    return doc, prevContent, nil
  }
  if errors.Is(err, errLostRace) {
    if histErr := sr.insertHistorical(ctx, projectID, sectionType, content, contentHash); histErr != nil {
      sr.log.Error("Failed to store losing write as history", "error", histErr, "project_id", projectID, "section_type", sectionType)
    }
    return nil, nil, apierr.Conflict("concurrent document write for project=%s section=%s", projectID, sectionType)
  }
  return nil, nil, err
}

func (sr *sectionDocumentRepo) CreateIfMissing(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType string, content datatypes.JSON, contentHash string) (*types.SectionDocument, bool, error) {
  existing, err := sr.GetCurrent(ctx, tx, projectID, sectionType)
  if err == nil {
    return existing, false, nil
  }
  if !apierr.IsCode(err, apierr.CodeNotFound) {
    return nil, false, err
  }
  doc, _, err := sr.PutNew(ctx, tx, projectID, sectionType, content, contentHash)
  if err != nil {
    return nil, false, err
  }
  return doc, true, nil
}

func (sr *sectionDocumentRepo) SetStatus(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType string, status string) error {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }

  return transaction.WithContext(ctx).Model(&types.SectionDocument{}).
    Where("project_id = ? AND section_type = ? AND is_current = ?", projectID, sectionType, true).
    Update("status", status).Error
}

// insertHistorical durably stores a losing write as non-current history. Runs
// outside the failed transaction on the base connection.
func (sr *sectionDocumentRepo) insertHistorical(ctx context.Context, projectID uuid.UUID, sectionType string, content datatypes.JSON, contentHash string) error {
  var lastErr error
  for attempt := 0; attempt < 3; attempt++ {
    err := sr.db.WithContext(ctx).Transaction(func(innerTx *gorm.DB) error {
      next, err := nextSectionVersion(innerTx, projectID, sectionType)
      if err != nil {
        return err
      }
      hist := &types.SectionDocument{
        ID:          uuid.New(),
        ProjectID:   projectID,
        SectionType: sectionType,
        Version:     next,
        IsCurrent:   false,
        Status:      types.SectionStatusPending,
        Content:     content,
        ContentHash: contentHash,
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

func nextSectionVersion(tx *gorm.DB, projectID uuid.UUID, sectionType string) (int, error) {
  var max int
  if err := tx.Model(&types.SectionDocument{}).
    Where("project_id = ? AND section_type = ?", projectID, sectionType).
    Select("COALESCE(MAX(version), 0)").
    Scan(&max).Error; err != nil {
    return 0, err
  }
  return max + 1, nil
}

func isDuplicateKey(err error) bool {
  if err == nil {
    return false
  }
  if errors.Is(err, gorm.ErrDuplicatedKey) {
    return true
  }
  msg := err.Error()
  return strings.Contains(msg, "duplicate key") ||
    strings.Contains(msg, "SQLSTATE 23505") ||
    strings.Contains(msg, "UNIQUE constraint failed")
}
