package services

import (
  "context"
  "fmt"
  "sort"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/yungbote/launchcopy-backend/internal/modules/content"
  "github.com/yungbote/launchcopy-backend/internal/platform/apierr"
  "github.com/yungbote/launchcopy-backend/internal/platform/logger"
  "github.com/yungbote/launchcopy-backend/internal/repos"
  "github.com/yungbote/launchcopy-backend/internal/requestdata"
  "github.com/yungbote/launchcopy-backend/internal/types"
)

type PutDocumentResult struct {
  Version  int      `json:"version"`
  Warnings []string `json:"warnings"`
}

type BatchSetResult struct {
  Saved  []string          `json:"saved"`
  Errors map[string]string `json:"errors"`
}

type FieldListResult struct {
  Fields                []*FieldView `json:"fields"`
  SectionApprovalStatus string       `json:"section_approval_status"`
}

type FieldView struct {
  FieldID      string         `json:"field_id"`
  Value        datatypes.JSON `json:"value"`
  Label        string         `json:"label"`
  FieldType    string         `json:"field_type"`
  Metadata     datatypes.JSON `json:"metadata,omitempty"`
  IsCustom     bool           `json:"is_custom"`
  IsApproved   bool           `json:"is_approved"`
  DisplayOrder int            `json:"display_order"`
  Version      int            `json:"version"`
}

type ApproveResult struct {
  ApprovedFields int                   `json:"approved_fields"`
  SyncResults    []content.SyncOutcome `json:"sync_results"`
}

type SectionDocumentView struct {
  SectionType string         `json:"section_type"`
  Version     int            `json:"version"`
  IsCurrent   bool           `json:"is_current"`
  Status      string         `json:"status"`
  Content     datatypes.JSON `json:"content"`
}

type ContentService interface {
  PutSectionDocument(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType string, doc map[string]any) (*PutDocumentResult, error)
  GetSectionDocument(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType string, version *int) (*SectionDocumentView, error)
  SetFieldByPath(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType, path string, value any) (*PutDocumentResult, error)
  BatchSetFields(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType string, values map[string]any) (*BatchSetResult, error)
  ListFields(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType string) (*FieldListResult, error)
  ApproveSection(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType string) (*ApproveResult, error)
}

type contentService struct {
  db         *gorm.DB
  log        *logger.Logger
  registry   *content.Registry
  validator  *content.Validator
  reconciler *content.Reconciler
  syncEngine *content.SyncEngine
  propagator *content.Propagator
  sections   repos.SectionDocumentRepo
  fields     repos.FieldRecordRepo
  projects   repos.ProjectRepo
  notifier   Notifier
}

func NewContentService(
  db *gorm.DB,
  baseLog *logger.Logger,
  registry *content.Registry,
  validator *content.Validator,
  reconciler *content.Reconciler,
  syncEngine *content.SyncEngine,
  propagator *content.Propagator,
  sections repos.SectionDocumentRepo,
  fields repos.FieldRecordRepo,
  projects repos.ProjectRepo,
  notifier Notifier,
) ContentService {
  serviceLog := baseLog.With("service", "ContentService")
  return &contentService{
    db:         db,
    log:        serviceLog,
    registry:   registry,
    validator:  validator,
    reconciler: reconciler,
    syncEngine: syncEngine,
    propagator: propagator,
    sections:   sections,
    fields:     fields,
    projects:   projects,
    notifier:   notifier,
  }
}

// PutSectionDocument replaces a section's whole document: sanitize, persist a
// new current version, reconcile fields synchronously, then hand the old/new
// pair to the propagator. Saving a byte-identical document is a no-op that
// returns the existing version.
func (cs *contentService) PutSectionDocument(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType string, doc map[string]any) (*PutDocumentResult, error) {
  transaction := tx
  if transaction == nil {
    transaction = cs.db
  }

  if err := cs.ensureProjectAccess(ctx, transaction, projectID); err != nil {
    return nil, err
  }

  sanitized, warnings, err := cs.validator.Sanitize(sectionType, doc)
  if err != nil {
    return nil, err
  }

  raw, hash, err := content.CanonicalDocument(sanitized)
  if err != nil {
    return nil, apierr.Validation("document not serializable: %v", err)
  }

  if existing, err := cs.sections.GetCurrent(ctx, transaction, projectID, sectionType); err == nil {
    if existing.ContentHash == hash {
      return &PutDocumentResult{Version: existing.Version, Warnings: warnings}, nil
    }
  } else if !apierr.IsCode(err, apierr.CodeNotFound) {
    return nil, err
  }

  newDoc, prevContent, err := cs.sections.PutNew(ctx, transaction, projectID, sectionType, raw, hash)
  if err != nil {
    return nil, err
  }

  warnings = append(warnings, cs.reconciler.Reconcile(ctx, transaction, projectID, sectionType, sanitized)...)

  oldDoc := map[string]any{}
  if len(prevContent) > 0 {
    if decoded, decErr := content.DecodeDocument(prevContent); decErr == nil {
      oldDoc = decoded
    } else {
      cs.log.Warn("Could not decode previous document for propagation", "error", decErr, "project_id", projectID, "section_type", sectionType)
    }
  }
  cs.propagator.Enqueue(content.PropagationInput{
    ProjectID:     projectID,
    SectionType:   sectionType,
    SourceVersion: newDoc.Version,
    OldDocument:   oldDoc,
    NewDocument:   sanitized,
  })

  if cs.notifier != nil {
    cs.notifier.SectionUpdated(projectID, sectionType, newDoc.Version)
  }

  return &PutDocumentResult{Version: newDoc.Version, Warnings: warnings}, nil
}

func (cs *contentService) GetSectionDocument(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType string, version *int) (*SectionDocumentView, error) {
  transaction := tx
  if transaction == nil {
    transaction = cs.db
  }

  if err := cs.ensureProjectAccess(ctx, transaction, projectID); err != nil {
    return nil, err
  }
  if !cs.registry.KnownType(sectionType) {
    return nil, apierr.Configuration("unknown section type %q", sectionType)
  }

  var doc *SectionDocumentView
  if version != nil {
    rec, err := cs.sections.GetAtVersion(ctx, transaction, projectID, sectionType, *version)
    if err != nil {
      return nil, err
    }
    doc = &SectionDocumentView{SectionType: rec.SectionType, Version: rec.Version, IsCurrent: rec.IsCurrent, Status: rec.Status, Content: rec.Content}
    return doc, nil
  }
  rec, err := cs.sections.GetCurrent(ctx, transaction, projectID, sectionType)
  if err != nil {
    return nil, err
  }
  doc = &SectionDocumentView{SectionType: rec.SectionType, Version: rec.Version, IsCurrent: rec.IsCurrent, Status: rec.Status, Content: rec.Content}
  return doc, nil
}

// SetFieldByPath merges one value into the current document at a dotted path
// and then takes the whole-document write path. Field-only section types skip
// the document and write the field record directly.
func (cs *contentService) SetFieldByPath(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType, path string, value any) (*PutDocumentResult, error) {
  transaction := tx
  if transaction == nil {
    transaction = cs.db
  }

  if err := cs.ensureProjectAccess(ctx, transaction, projectID); err != nil {
    return nil, err
  }
  if path == "" {
    return nil, apierr.Validation("field path required")
  }

  if cs.registry.DocumentLess(sectionType) {
    rec, err := cs.upsertDirectField(ctx, transaction, projectID, sectionType, path, value)
    if err != nil {
      return nil, err
    }
    if cs.notifier != nil {
      cs.notifier.FieldsUpdated(projectID, sectionType, []string{path})
    }
    return &PutDocumentResult{Version: rec.Version}, nil
  }

  current := map[string]any{}
  if rec, err := cs.sections.GetCurrent(ctx, transaction, projectID, sectionType); err == nil {
    decoded, decErr := content.DecodeDocument(rec.Content)
    if decErr != nil {
      return nil, fmt.Errorf("decode current document: %w", decErr)
    }
    current = decoded
  } else if !apierr.IsCode(err, apierr.CodeNotFound) {
    return nil, err
  }

  merged := content.SetPath(current, path, value)
  return cs.PutSectionDocument(ctx, transaction, projectID, sectionType, merged)
}

// BatchSetFields writes field records directly, bypassing the document. Used
// by refinement flows that regenerate one field at a time. Per-field failures
// are collected; the call succeeds as long as the inputs were addressable.
func (cs *contentService) BatchSetFields(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType string, values map[string]any) (*BatchSetResult, error) {
  transaction := tx
  if transaction == nil {
    transaction = cs.db
  }

  if err := cs.ensureProjectAccess(ctx, transaction, projectID); err != nil {
    return nil, err
  }
  if !cs.registry.KnownType(sectionType) {
    return nil, apierr.Configuration("unknown section type %q", sectionType)
  }
  if len(values) == 0 {
    return nil, apierr.Validation("no fields provided")
  }

  result := &BatchSetResult{Saved: []string{}, Errors: map[string]string{}}
  for _, fieldID := range sortedFieldIDs(values) {
    if _, err := cs.upsertDirectField(ctx, transaction, projectID, sectionType, fieldID, values[fieldID]); err != nil {
      result.Errors[fieldID] = err.Error()
      continue
    }
    result.Saved = append(result.Saved, fieldID)
  }

  if cs.notifier != nil && len(result.Saved) > 0 {
    cs.notifier.FieldsUpdated(projectID, sectionType, result.Saved)
  }
  return result, nil
}

// ListFields returns the current field rows in display order. A section that
// has no rows yet gets its registry defaults instantiated first, so the UI
// always has something to render (field-only sections rely on this).
func (cs *contentService) ListFields(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType string) (*FieldListResult, error) {
  transaction := tx
  if transaction == nil {
    transaction = cs.db
  }

  if err := cs.ensureProjectAccess(ctx, transaction, projectID); err != nil {
    return nil, err
  }
  if !cs.registry.KnownType(sectionType) {
    return nil, apierr.Configuration("unknown section type %q", sectionType)
  }

  records, err := cs.fields.ListCurrent(ctx, transaction, projectID, sectionType)
  if err != nil {
    return nil, err
  }
  if len(records) == 0 {
    if err := cs.ensureDefaults(ctx, transaction, projectID, sectionType); err != nil {
      return nil, err
    }
    records, err = cs.fields.ListCurrent(ctx, transaction, projectID, sectionType)
    if err != nil {
      return nil, err
    }
  }

  views := make([]*FieldView, 0, len(records))
  for _, rec := range records {
    views = append(views, &FieldView{
      FieldID:      rec.FieldID,
      Value:        rec.Value,
      Label:        rec.Label,
      FieldType:    rec.FieldType,
      Metadata:     rec.Metadata,
      IsCustom:     rec.IsCustom,
      IsApproved:   rec.IsApproved,
      DisplayOrder: rec.DisplayOrder,
      Version:      rec.Version,
    })
  }

  return &FieldListResult{
    Fields:                views,
    SectionApprovalStatus: cs.approvalStatus(ctx, transaction, projectID, sectionType, records),
  }, nil
}

// ApproveSection flips every current field approved, marks the document
// approved, and applies the sync-rule table. Sync outcomes ride back on the
// result; a failed rule never unwinds the approval.
func (cs *contentService) ApproveSection(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType string) (*ApproveResult, error) {
  transaction := tx
  if transaction == nil {
    transaction = cs.db
  }

  if err := cs.ensureProjectAccess(ctx, transaction, projectID); err != nil {
    return nil, err
  }
  if !cs.registry.KnownType(sectionType) {
    return nil, apierr.Configuration("unknown section type %q", sectionType)
  }

  approved, err := cs.fields.ApproveAll(ctx, transaction, projectID, sectionType)
  if err != nil {
    return nil, err
  }
  if !cs.registry.DocumentLess(sectionType) {
    if err := cs.sections.SetStatus(ctx, transaction, projectID, sectionType, types.SectionStatusApproved); err != nil {
      cs.log.Warn("Could not flag document approved", "error", err, "project_id", projectID, "section_type", sectionType)
    }
  }

  outcomes := cs.syncEngine.ApplyOnApproval(ctx, projectID, sectionType)

  if cs.notifier != nil {
    cs.notifier.SectionApproved(projectID, sectionType, int(approved))
  }

  return &ApproveResult{ApprovedFields: int(approved), SyncResults: outcomes}, nil
}

func (cs *contentService) upsertDirectField(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType, fieldID string, value any) (*types.FieldRecord, error) {
  normalized, err := content.NormalizeValue(value)
  if err != nil {
    return nil, apierr.Validation("field %s: value not serializable: %v", fieldID, err)
  }

  if existing, getErr := cs.fields.GetCurrent(ctx, tx, projectID, sectionType, fieldID); getErr == nil {
    // Identical value: leave the row (and its approval) alone.
    if string(existing.Value) == string(normalized) {
      return existing, nil
    }
  } else if !apierr.IsCode(getErr, apierr.CodeNotFound) {
    return nil, getErr
  }

  opts := cs.directUpsertOptions(sectionType, fieldID, value)
  return cs.fields.UpsertVersion(ctx, tx, projectID, sectionType, fieldID, normalized, opts)
}

func (cs *contentService) directUpsertOptions(sectionType, fieldID string, value any) repos.UpsertFieldOptions {
  if fd, ok := cs.registry.FieldByID(sectionType, fieldID); ok {
    var meta datatypes.JSON
    if len(fd.Metadata) > 0 {
      if normalized, err := content.NormalizeValue(fd.Metadata); err == nil {
        meta = normalized
      }
    }
    return repos.UpsertFieldOptions{
      Label:         fd.Label,
      FieldType:     fd.Type,
      Metadata:      meta,
      DisplayOrder:  fd.DefaultOrder,
      ApprovedReset: true,
    }
  }
  return repos.UpsertFieldOptions{
    Label:         fieldID,
    FieldType:     content.InferFieldType(value),
    IsCustom:      true,
    DisplayOrder:  1000,
    ApprovedReset: true,
  }
}

// ensureDefaults instantiates version-1 rows from the registry for a section
// nobody has written yet.
func (cs *contentService) ensureDefaults(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType string) error {
  defs, err := cs.registry.FieldsFor(sectionType)
  if err != nil {
    return err
  }
  for _, fd := range defs {
    empty, err := content.NormalizeValue(emptyValueFor(fd.Type))
    if err != nil {
      return err
    }
    var meta datatypes.JSON
    if len(fd.Metadata) > 0 {
      if normalized, nErr := content.NormalizeValue(fd.Metadata); nErr == nil {
        meta = normalized
      }
    }
    opts := repos.UpsertFieldOptions{
      Label:         fd.Label,
      FieldType:     fd.Type,
      Metadata:      meta,
      DisplayOrder:  fd.DefaultOrder,
      ApprovedReset: true,
    }
    if _, err := cs.fields.UpsertVersion(ctx, tx, projectID, sectionType, fd.FieldID, empty, opts); err != nil {
      return err
    }
  }
  return nil
}

func (cs *contentService) approvalStatus(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType string, records []*types.FieldRecord) string {
  if !cs.registry.DocumentLess(sectionType) {
    if doc, err := cs.sections.GetCurrent(ctx, tx, projectID, sectionType); err == nil {
      return doc.Status
    }
  }
  if len(records) == 0 {
    return types.SectionStatusPending
  }
  for _, rec := range records {
    if !rec.IsApproved {
      return types.SectionStatusPending
    }
  }
  return types.SectionStatusApproved
}

// ensureProjectAccess resolves the project and, when the request carries an
// authenticated user, enforces ownership. Unknown and foreign projects are
// indistinguishable to the caller.
func (cs *contentService) ensureProjectAccess(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) error {
  project, err := cs.projects.GetByID(ctx, tx, projectID)
  if err != nil {
    return err
  }
  if rd := requestdata.GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil && project.UserID != rd.UserID {
    return apierr.NotFound("project %s not found", projectID)
  }
  return nil
}

func sortedFieldIDs(values map[string]any) []string {
  ids := make([]string, 0, len(values))
  for id := range values {
    ids = append(ids, id)
  }
  sort.Strings(ids)
  return ids
}

func emptyValueFor(fieldType string) any {
  switch fieldType {
  case "list":
    return []any{}
  case "structured":
    return map[string]any{}
  default:
    return ""
  }
}
