package content

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/launchcopy-backend/internal/repos"
	"github.com/yungbote/launchcopy-backend/internal/testutil"
	"github.com/yungbote/launchcopy-backend/internal/types"
)

func newTestReconciler(t *testing.T) (*Reconciler, repos.FieldRecordRepo, *gorm.DB, uuid.UUID) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	fields := repos.NewFieldRecordRepo(db, log)
	rec := NewReconciler(log, DefaultRegistry(), fields)

	ctx := context.Background()
	user := testutil.SeedUser(t, ctx, db, "reconciler@test.com")
	project := testutil.SeedProject(t, ctx, db, user.ID)
	return rec, fields, db, project.ID
}

func TestReconcileCreatesFields(t *testing.T) {
	rec, fields, _, projectID := newTestReconciler(t)
	ctx := context.Background()

	doc := map[string]any{
		"name":        "Acme",
		"tagline":     "go fast",
		"value_props": []any{"cheap", "fast"},
	}
	warnings := rec.Reconcile(ctx, nil, projectID, SectionCore, doc)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	records, err := fields.ListCurrent(ctx, nil, projectID, SectionCore)
	if err != nil {
		t.Fatalf("ListCurrent: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("field count: want 3, got %d", len(records))
	}
	for _, r := range records {
		if r.Version != 1 || r.IsApproved {
			t.Fatalf("fresh field %s: want version=1 approved=false, got version=%d approved=%v", r.FieldID, r.Version, r.IsApproved)
		}
	}

	name, err := fields.GetCurrent(ctx, nil, projectID, SectionCore, "name")
	if err != nil {
		t.Fatalf("GetCurrent name: %v", err)
	}
	if name.Label != "Business Name" || name.FieldType != types.FieldTypeText {
		t.Fatalf("registry attributes not applied: label=%q type=%q", name.Label, name.FieldType)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	rec, fields, db, projectID := newTestReconciler(t)
	ctx := context.Background()

	doc := map[string]any{"name": "Acme", "tagline": "go fast"}
	rec.Reconcile(ctx, nil, projectID, SectionCore, doc)

	if _, err := fields.ApproveAll(ctx, nil, projectID, SectionCore); err != nil {
		t.Fatalf("ApproveAll: %v", err)
	}

	// Same document again: zero new versions, approvals intact.
	rec.Reconcile(ctx, nil, projectID, SectionCore, CloneDocument(doc))

	var total int64
	if err := db.Model(&types.FieldRecord{}).
		Where("project_id = ? AND section_type = ?", projectID, SectionCore).
		Count(&total).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if total != 2 {
		t.Fatalf("re-reconcile churned versions: want 2 rows, got %d", total)
	}

	name, err := fields.GetCurrent(ctx, nil, projectID, SectionCore, "name")
	if err != nil {
		t.Fatalf("GetCurrent: %v", err)
	}
	if !name.IsApproved {
		t.Fatalf("approval lost on unchanged value")
	}
}

func TestReconcileBumpsOnlyChangedFields(t *testing.T) {
	rec, fields, _, projectID := newTestReconciler(t)
	ctx := context.Background()

	rec.Reconcile(ctx, nil, projectID, SectionCore, map[string]any{"name": "Acme", "tagline": "go fast"})
	if _, err := fields.ApproveAll(ctx, nil, projectID, SectionCore); err != nil {
		t.Fatalf("ApproveAll: %v", err)
	}

	rec.Reconcile(ctx, nil, projectID, SectionCore, map[string]any{"name": "Acme Inc", "tagline": "go fast"})

	name, err := fields.GetCurrent(ctx, nil, projectID, SectionCore, "name")
	if err != nil {
		t.Fatalf("GetCurrent name: %v", err)
	}
	if name.Version != 2 || name.IsApproved {
		t.Fatalf("changed field: want version=2 approved=false, got version=%d approved=%v", name.Version, name.IsApproved)
	}

	tagline, err := fields.GetCurrent(ctx, nil, projectID, SectionCore, "tagline")
	if err != nil {
		t.Fatalf("GetCurrent tagline: %v", err)
	}
	if tagline.Version != 1 || !tagline.IsApproved {
		t.Fatalf("unchanged field: want version=1 approved=true, got version=%d approved=%v", tagline.Version, tagline.IsApproved)
	}
}

func TestReconcileLeavesAbsentFieldsAlone(t *testing.T) {
	rec, fields, _, projectID := newTestReconciler(t)
	ctx := context.Background()

	rec.Reconcile(ctx, nil, projectID, SectionCore, map[string]any{"name": "Acme", "tagline": "go fast"})
	rec.Reconcile(ctx, nil, projectID, SectionCore, map[string]any{"name": "Acme"})

	tagline, err := fields.GetCurrent(ctx, nil, projectID, SectionCore, "tagline")
	if err != nil {
		t.Fatalf("field deleted by document edit: %v", err)
	}
	if tagline.Version != 1 {
		t.Fatalf("absent field bumped: version=%d", tagline.Version)
	}
}

func TestReconcileCustomFields(t *testing.T) {
	rec, fields, _, projectID := newTestReconciler(t)
	ctx := context.Background()

	// landing_page's registry does not know "extra.note".
	doc := map[string]any{
		"company_name": "Acme",
		"extra":        map[string]any{"note": "handwritten"},
	}
	rec.Reconcile(ctx, nil, projectID, SectionLandingPage, doc)

	custom, err := fields.GetCurrent(ctx, nil, projectID, SectionLandingPage, "extra.note")
	if err != nil {
		t.Fatalf("GetCurrent custom: %v", err)
	}
	if !custom.IsCustom {
		t.Fatalf("unregistered path not flagged custom")
	}
	if custom.DisplayOrder <= 1000 {
		t.Fatalf("custom field must sort after registered fields, order=%d", custom.DisplayOrder)
	}
}
