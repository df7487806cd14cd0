package services

import (
  "context"
  "testing"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/yungbote/launchcopy-backend/internal/jobs"
  "github.com/yungbote/launchcopy-backend/internal/modules/content"
  "github.com/yungbote/launchcopy-backend/internal/platform/apierr"
  "github.com/yungbote/launchcopy-backend/internal/repos"
  "github.com/yungbote/launchcopy-backend/internal/testutil"
  "github.com/yungbote/launchcopy-backend/internal/types"
)

type contentFixture struct {
  svc      ContentService
  db       *gorm.DB
  sections repos.SectionDocumentRepo
  fields   repos.FieldRecordRepo
  pool     *jobs.Pool
  project  uuid.UUID
}

// newContentFixture wires the full service. The pool is created but not
// started, so propagation stays inert and tests are deterministic; tests
// that want background propagation call fix.pool.Start themselves.
func newContentFixture(t *testing.T) *contentFixture {
  t.Helper()
  db := testutil.DB(t)
  log := testutil.Logger(t)

  registry := content.DefaultRegistry()
  rules, err := content.DefaultRules(registry)
  if err != nil {
    t.Fatalf("DefaultRules: %v", err)
  }
  sections := repos.NewSectionDocumentRepo(db, log)
  fields := repos.NewFieldRecordRepo(db, log)
  projects := repos.NewProjectRepo(db, log)
  reconciler := content.NewReconciler(log, registry, fields)
  pool := jobs.NewPool(log, 1, 16)
  propagator := content.NewPropagator(log, pool, rules, registry, sections, reconciler)
  syncEngine := content.NewSyncEngine(log, rules, sections, fields, reconciler)
  validator := content.NewValidator(registry)

  svc := NewContentService(db, log, registry, validator, reconciler, syncEngine, propagator, sections, fields, projects, nil)

  ctx := context.Background()
  user := testutil.SeedUser(t, ctx, db, "content@test.com")
  project := testutil.SeedProject(t, ctx, db, user.ID)

  return &contentFixture{
    svc:      svc,
    db:       db,
    sections: sections,
    fields:   fields,
    pool:     pool,
    project:  project.ID,
  }
}

func TestPutDocumentThenEditScenario(t *testing.T) {
  f := newContentFixture(t)
  ctx := context.Background()

  res, err := f.svc.PutSectionDocument(ctx, nil, f.project, "core", map[string]any{"name": "Acme"})
  if err != nil {
    t.Fatalf("PutSectionDocument v1: %v", err)
  }
  if res.Version != 1 {
    t.Fatalf("first save: want version 1, got %d", res.Version)
  }

  res, err = f.svc.PutSectionDocument(ctx, nil, f.project, "core", map[string]any{"name": "Acme Inc"})
  if err != nil {
    t.Fatalf("PutSectionDocument v2: %v", err)
  }
  if res.Version != 2 {
    t.Fatalf("second save: want version 2, got %d", res.Version)
  }

  name, err := f.fields.GetCurrent(ctx, nil, f.project, "core", "name")
  if err != nil {
    t.Fatalf("GetCurrent name: %v", err)
  }
  if name.Version != 2 || name.IsApproved {
    t.Fatalf("name field: want version=2 approved=false, got version=%d approved=%v", name.Version, name.IsApproved)
  }

  // The core.name -> footer.company_name sync rule exists, but nothing was
  // approved: footer must be completely untouched.
  if _, err := f.sections.GetCurrent(ctx, nil, f.project, "footer"); !apierr.IsCode(err, apierr.CodeNotFound) {
    t.Fatalf("footer touched before approval: %v", err)
  }
}

func TestApproveSectionFiresSyncScenario(t *testing.T) {
  f := newContentFixture(t)
  ctx := context.Background()

  if _, err := f.svc.PutSectionDocument(ctx, nil, f.project, "core", map[string]any{"name": "Acme Inc"}); err != nil {
    t.Fatalf("PutSectionDocument: %v", err)
  }

  res, err := f.svc.ApproveSection(ctx, nil, f.project, "core")
  if err != nil {
    t.Fatalf("ApproveSection: %v", err)
  }
  if res.ApprovedFields != 1 {
    t.Fatalf("approved fields: want 1, got %d", res.ApprovedFields)
  }
  foundApplied := false
  for _, out := range res.SyncResults {
    if out.TargetSection == "footer" && out.TargetField == "company_name" && out.Status == content.SyncApplied {
      foundApplied = true
    }
  }
  if !foundApplied {
    t.Fatalf("footer sync not applied: %+v", res.SyncResults)
  }

  // Source fields flipped approved, document flagged approved.
  name, err := f.fields.GetCurrent(ctx, nil, f.project, "core", "name")
  if err != nil {
    t.Fatalf("GetCurrent name: %v", err)
  }
  if !name.IsApproved {
    t.Fatalf("approved section left field unapproved")
  }
  coreDoc, err := f.svc.GetSectionDocument(ctx, nil, f.project, "core", nil)
  if err != nil {
    t.Fatalf("GetSectionDocument: %v", err)
  }
  if coreDoc.Status != types.SectionStatusApproved {
    t.Fatalf("document status: want approved, got %s", coreDoc.Status)
  }

  // The synced footer field is at a new version and unapproved.
  list, err := f.svc.ListFields(ctx, nil, f.project, "footer")
  if err != nil {
    t.Fatalf("ListFields footer: %v", err)
  }
  var company *FieldView
  for _, fv := range list.Fields {
    if fv.FieldID == "company_name" {
      company = fv
    }
  }
  if company == nil {
    t.Fatalf("footer.company_name missing: %+v", list.Fields)
  }
  if string(company.Value) != `"Acme Inc"` {
    t.Fatalf("footer.company_name value: %s", company.Value)
  }
  if company.IsApproved {
    t.Fatalf("synced field must be unapproved")
  }
}

func TestSetFieldByPathRoundTrip(t *testing.T) {
  f := newContentFixture(t)
  ctx := context.Background()

  if _, err := f.svc.PutSectionDocument(ctx, nil, f.project, "core", map[string]any{"name": "Acme"}); err != nil {
    t.Fatalf("PutSectionDocument: %v", err)
  }
  if _, err := f.svc.ApproveSection(ctx, nil, f.project, "core"); err != nil {
    t.Fatalf("ApproveSection: %v", err)
  }

  res, err := f.svc.SetFieldByPath(ctx, nil, f.project, "core", "name", "Bolt")
  if err != nil {
    t.Fatalf("SetFieldByPath: %v", err)
  }
  if res.Version != 2 {
    t.Fatalf("document version after field edit: want 2, got %d", res.Version)
  }

  // A content change demotes the approved document back to pending.
  doc, err := f.svc.GetSectionDocument(ctx, nil, f.project, "core", nil)
  if err != nil {
    t.Fatalf("GetSectionDocument: %v", err)
  }
  if doc.Status != types.SectionStatusPending {
    t.Fatalf("document status after edit: want pending, got %s", doc.Status)
  }

  list, err := f.svc.ListFields(ctx, nil, f.project, "core")
  if err != nil {
    t.Fatalf("ListFields: %v", err)
  }
  for _, fv := range list.Fields {
    if fv.FieldID != "name" {
      continue
    }
    if string(fv.Value) != `"Bolt"` {
      t.Fatalf("round trip value: %s", fv.Value)
    }
    // Approval monotonicity: any value change resets approval.
    if fv.IsApproved {
      t.Fatalf("field still approved after value change")
    }
    return
  }
  t.Fatalf("name field missing from list")
}

func TestSetFieldByPathNested(t *testing.T) {
  f := newContentFixture(t)
  ctx := context.Background()

  if _, err := f.svc.SetFieldByPath(ctx, nil, f.project, "landing_page", "hero.headline", "Launch faster"); err != nil {
    t.Fatalf("SetFieldByPath on empty section: %v", err)
  }

  doc, err := f.svc.GetSectionDocument(ctx, nil, f.project, "landing_page", nil)
  if err != nil {
    t.Fatalf("GetSectionDocument: %v", err)
  }
  decoded, err := content.DecodeDocument(doc.Content)
  if err != nil {
    t.Fatalf("decode: %v", err)
  }
  if v, _ := content.GetPath(decoded, "hero.headline"); v != "Launch faster" {
    t.Fatalf("hero.headline=%v", v)
  }
}

func TestPutDocumentIdempotent(t *testing.T) {
  f := newContentFixture(t)
  ctx := context.Background()

  doc := map[string]any{"name": "Acme"}
  first, err := f.svc.PutSectionDocument(ctx, nil, f.project, "core", doc)
  if err != nil {
    t.Fatalf("PutSectionDocument: %v", err)
  }
  second, err := f.svc.PutSectionDocument(ctx, nil, f.project, "core", map[string]any{"name": "Acme"})
  if err != nil {
    t.Fatalf("PutSectionDocument repeat: %v", err)
  }
  if second.Version != first.Version {
    t.Fatalf("identical save bumped version: %d -> %d", first.Version, second.Version)
  }
}

func TestPutDocumentHardReject(t *testing.T) {
  f := newContentFixture(t)
  ctx := context.Background()

  // ad_copy payload under core: must hard-reject, not sanitize to empty.
  _, err := f.svc.PutSectionDocument(ctx, nil, f.project, "core", map[string]any{
    "headlines": []any{"Buy"},
    "cta":       "Now",
  })
  if !apierr.IsCode(err, apierr.CodeValidation) {
    t.Fatalf("want validation_error, got %v", err)
  }
  if _, err := f.sections.GetCurrent(ctx, nil, f.project, "core"); !apierr.IsCode(err, apierr.CodeNotFound) {
    t.Fatalf("rejected write left state behind: %v", err)
  }
}

func TestBatchSetFields(t *testing.T) {
  f := newContentFixture(t)
  ctx := context.Background()

  res, err := f.svc.BatchSetFields(ctx, nil, f.project, "ad_copy", map[string]any{
    "headlines":    []any{"One", "Two"},
    "cta":          "Start now",
    "handwritten":  "not in the registry",
  })
  if err != nil {
    t.Fatalf("BatchSetFields: %v", err)
  }
  if len(res.Saved) != 3 || len(res.Errors) != 0 {
    t.Fatalf("saved=%v errors=%v", res.Saved, res.Errors)
  }

  // No document involved in the direct path.
  if _, err := f.sections.GetCurrent(ctx, nil, f.project, "ad_copy"); !apierr.IsCode(err, apierr.CodeNotFound) {
    t.Fatalf("batch field write created a document: %v", err)
  }

  custom, err := f.fields.GetCurrent(ctx, nil, f.project, "ad_copy", "handwritten")
  if err != nil {
    t.Fatalf("GetCurrent custom: %v", err)
  }
  if !custom.IsCustom {
    t.Fatalf("unregistered field not flagged custom")
  }
  registered, err := f.fields.GetCurrent(ctx, nil, f.project, "ad_copy", "cta")
  if err != nil {
    t.Fatalf("GetCurrent cta: %v", err)
  }
  if registered.IsCustom || registered.Label != "Call To Action" {
    t.Fatalf("registered field lost registry attributes: custom=%v label=%q", registered.IsCustom, registered.Label)
  }
}

func TestListFieldsInstantiatesDefaults(t *testing.T) {
  f := newContentFixture(t)
  ctx := context.Background()

  list, err := f.svc.ListFields(ctx, nil, f.project, "media_assets")
  if err != nil {
    t.Fatalf("ListFields: %v", err)
  }
  if len(list.Fields) != 3 {
    t.Fatalf("media_assets defaults: want 3 fields, got %d", len(list.Fields))
  }
  if list.SectionApprovalStatus != types.SectionStatusPending {
    t.Fatalf("fresh section status: want pending, got %s", list.SectionApprovalStatus)
  }
  for _, fv := range list.Fields {
    if fv.Version != 1 || fv.IsApproved {
      t.Fatalf("default field %s: want version=1 approved=false, got version=%d approved=%v", fv.FieldID, fv.Version, fv.IsApproved)
    }
  }

  // A second list must not re-instantiate.
  again, err := f.svc.ListFields(ctx, nil, f.project, "media_assets")
  if err != nil {
    t.Fatalf("ListFields again: %v", err)
  }
  for _, fv := range again.Fields {
    if fv.Version != 1 {
      t.Fatalf("defaults re-instantiated: %s at version %d", fv.FieldID, fv.Version)
    }
  }
}

func TestDocumentLessSectionRejectsDocument(t *testing.T) {
  f := newContentFixture(t)
  ctx := context.Background()

  _, err := f.svc.PutSectionDocument(ctx, nil, f.project, "media_assets", map[string]any{"logo_url": "x"})
  if !apierr.IsCode(err, apierr.CodeValidation) {
    t.Fatalf("want validation_error, got %v", err)
  }

  // But the direct field path works.
  res, err := f.svc.SetFieldByPath(ctx, nil, f.project, "media_assets", "logo_url", "https://cdn/logo.png")
  if err != nil {
    t.Fatalf("SetFieldByPath: %v", err)
  }
  if res.Version != 1 {
    t.Fatalf("field version: want 1, got %d", res.Version)
  }
}

// An unknown section type is a registry misconfiguration, and every operation
// reports it with the same code.
func TestUnknownSectionTypeIsConfigurationError(t *testing.T) {
  f := newContentFixture(t)
  ctx := context.Background()

  checks := map[string]func() error{
    "put": func() error {
      _, err := f.svc.PutSectionDocument(ctx, nil, f.project, "pricing", map[string]any{"plan": "pro"})
      return err
    },
    "get": func() error {
      _, err := f.svc.GetSectionDocument(ctx, nil, f.project, "pricing", nil)
      return err
    },
    "set_field": func() error {
      _, err := f.svc.SetFieldByPath(ctx, nil, f.project, "pricing", "plan", "pro")
      return err
    },
    "batch": func() error {
      _, err := f.svc.BatchSetFields(ctx, nil, f.project, "pricing", map[string]any{"plan": "pro"})
      return err
    },
    "list": func() error {
      _, err := f.svc.ListFields(ctx, nil, f.project, "pricing")
      return err
    },
    "approve": func() error {
      _, err := f.svc.ApproveSection(ctx, nil, f.project, "pricing")
      return err
    },
  }
  for name, call := range checks {
    if err := call(); !apierr.IsCode(err, apierr.CodeConfiguration) {
      t.Fatalf("%s: want configuration_error, got %v", name, err)
    }
  }
}

func TestUnknownProjectIsNotFound(t *testing.T) {
  f := newContentFixture(t)
  ctx := context.Background()

  _, err := f.svc.ListFields(ctx, nil, uuid.New(), "core")
  if !apierr.IsCode(err, apierr.CodeNotFound) {
    t.Fatalf("want not_found, got %v", err)
  }
}

func TestPutDocumentTriggersPropagation(t *testing.T) {
  f := newContentFixture(t)
  ctx := context.Background()
  f.pool.Start(ctx)
  defer f.pool.Stop()

  if _, err := f.svc.PutSectionDocument(ctx, nil, f.project, "core", map[string]any{"name": "Acme", "tagline": "go fast"}); err != nil {
    t.Fatalf("PutSectionDocument: %v", err)
  }

  // Propagation is detached; poll for the derived landing page.
  deadline := time.Now().Add(5 * time.Second)
  for time.Now().Before(deadline) {
    doc, err := f.sections.GetCurrent(ctx, nil, f.project, "landing_page")
    if err == nil {
      decoded, decErr := content.DecodeDocument(doc.Content)
      if decErr != nil {
        t.Fatalf("decode landing_page: %v", decErr)
      }
      if v, _ := content.GetPath(decoded, "company_name"); v == "Acme" {
        return
      }
    }
    time.Sleep(20 * time.Millisecond)
  }
  t.Fatalf("landing_page never derived from core change")
}
