package repos

import (
  "context"
  "encoding/json"
  "sync"
  "testing"

  "gorm.io/datatypes"

  "github.com/yungbote/launchcopy-backend/internal/platform/apierr"
  "github.com/yungbote/launchcopy-backend/internal/testutil"
  "github.com/yungbote/launchcopy-backend/internal/types"
)

func fieldJSON(tb testing.TB, v any) datatypes.JSON {
  tb.Helper()
  raw, err := json.Marshal(v)
  if err != nil {
    tb.Fatalf("marshal value: %v", err)
  }
  return datatypes.JSON(raw)
}

func TestUpsertVersionCreatesAndBumps(t *testing.T) {
  db := testutil.DB(t)
  ctx := context.Background()
  repo := NewFieldRecordRepo(db, testutil.Logger(t))

  user := testutil.SeedUser(t, ctx, db, "field@test.com")
  project := testutil.SeedProject(t, ctx, db, user.ID)

  opts := UpsertFieldOptions{Label: "Name", FieldType: types.FieldTypeText, DisplayOrder: 1, ApprovedReset: true}

  rec, err := repo.UpsertVersion(ctx, nil, project.ID, "core", "name", fieldJSON(t, "Acme"), opts)
  if err != nil {
    t.Fatalf("UpsertVersion v1: %v", err)
  }
  if rec.Version != 1 || rec.IsApproved {
    t.Fatalf("first version: want version=1 approved=false, got version=%d approved=%v", rec.Version, rec.IsApproved)
  }

  rec, err = repo.UpsertVersion(ctx, nil, project.ID, "core", "name", fieldJSON(t, "Acme Inc"), opts)
  if err != nil {
    t.Fatalf("UpsertVersion v2: %v", err)
  }
  if rec.Version != 2 {
    t.Fatalf("second version: want 2, got %d", rec.Version)
  }

  cur, err := repo.GetCurrent(ctx, nil, project.ID, "core", "name")
  if err != nil {
    t.Fatalf("GetCurrent: %v", err)
  }
  if cur.Version != 2 {
    t.Fatalf("current version: want 2, got %d", cur.Version)
  }
}

// Bare JSON scalars (numbers, booleans, strings) are legal field values and
// must survive the column round trip byte for byte. A literal jsonb column
// type breaks this under sqlite, which gives it numeric affinity and coerces
// `7` on write.
func TestUpsertVersionScalarValueRoundTrip(t *testing.T) {
  db := testutil.DB(t)
  ctx := context.Background()
  repo := NewFieldRecordRepo(db, testutil.Logger(t))

  user := testutil.SeedUser(t, ctx, db, "scalar@test.com")
  project := testutil.SeedProject(t, ctx, db, user.ID)

  opts := UpsertFieldOptions{Label: "Count", FieldType: types.FieldTypeText, DisplayOrder: 1, ApprovedReset: true}

  cases := []struct {
    name  string
    value any
    want  string
  }{
    {"number", 7, "7"},
    {"float", 2.5, "2.5"},
    {"bool", true, "true"},
    {"string", "x", `"x"`},
  }
  for _, tc := range cases {
    t.Run(tc.name, func(t *testing.T) {
      fieldID := "scalar_" + tc.name
      if _, err := repo.UpsertVersion(ctx, nil, project.ID, "core", fieldID, fieldJSON(t, tc.value), opts); err != nil {
        t.Fatalf("UpsertVersion: %v", err)
      }
      cur, err := repo.GetCurrent(ctx, nil, project.ID, "core", fieldID)
      if err != nil {
        t.Fatalf("GetCurrent: %v", err)
      }
      if string(cur.Value) != tc.want {
        t.Fatalf("value round trip: want %s, got %s", tc.want, cur.Value)
      }
      // The read inside the next UpsertVersion must also succeed, so the
      // version chain keeps growing past a scalar value.
      next, err := repo.UpsertVersion(ctx, nil, project.ID, "core", fieldID, fieldJSON(t, "replaced"), opts)
      if err != nil {
        t.Fatalf("UpsertVersion after scalar: %v", err)
      }
      if next.Version != 2 {
        t.Fatalf("version after scalar: want 2, got %d", next.Version)
      }
    })
  }
}

func TestUpsertVersionApprovalReset(t *testing.T) {
  db := testutil.DB(t)
  ctx := context.Background()
  repo := NewFieldRecordRepo(db, testutil.Logger(t))

  user := testutil.SeedUser(t, ctx, db, "approval@test.com")
  project := testutil.SeedProject(t, ctx, db, user.ID)

  opts := UpsertFieldOptions{Label: "Name", FieldType: types.FieldTypeText, DisplayOrder: 1, ApprovedReset: true}
  if _, err := repo.UpsertVersion(ctx, nil, project.ID, "core", "name", fieldJSON(t, "Acme"), opts); err != nil {
    t.Fatalf("UpsertVersion: %v", err)
  }
  if _, err := repo.ApproveAll(ctx, nil, project.ID, "core"); err != nil {
    t.Fatalf("ApproveAll: %v", err)
  }

  // Value change with reset: approval is lost.
  rec, err := repo.UpsertVersion(ctx, nil, project.ID, "core", "name", fieldJSON(t, "Acme Inc"), opts)
  if err != nil {
    t.Fatalf("UpsertVersion after approval: %v", err)
  }
  if rec.IsApproved {
    t.Fatalf("new version after value change must start unapproved")
  }

  if _, err := repo.ApproveAll(ctx, nil, project.ID, "core"); err != nil {
    t.Fatalf("ApproveAll: %v", err)
  }

  // Reconciler-style carry-forward: approval survives the bump.
  carry := opts
  carry.ApprovedReset = false
  rec, err = repo.UpsertVersion(ctx, nil, project.ID, "core", "name", fieldJSON(t, "Acme Inc"), carry)
  if err != nil {
    t.Fatalf("UpsertVersion carry-forward: %v", err)
  }
  if !rec.IsApproved {
    t.Fatalf("carry-forward upsert must inherit approval")
  }
}

func TestApproveAll(t *testing.T) {
  db := testutil.DB(t)
  ctx := context.Background()
  repo := NewFieldRecordRepo(db, testutil.Logger(t))

  user := testutil.SeedUser(t, ctx, db, "approveall@test.com")
  project := testutil.SeedProject(t, ctx, db, user.ID)

  opts := UpsertFieldOptions{FieldType: types.FieldTypeText, ApprovedReset: true}
  for _, fieldID := range []string{"name", "tagline", "contact_email"} {
    if _, err := repo.UpsertVersion(ctx, nil, project.ID, "core", fieldID, fieldJSON(t, "v"), opts); err != nil {
      t.Fatalf("UpsertVersion %s: %v", fieldID, err)
    }
  }
  // Another section must not be touched.
  if _, err := repo.UpsertVersion(ctx, nil, project.ID, "footer", "company_name", fieldJSON(t, "v"), opts); err != nil {
    t.Fatalf("UpsertVersion footer: %v", err)
  }

  n, err := repo.ApproveAll(ctx, nil, project.ID, "core")
  if err != nil {
    t.Fatalf("ApproveAll: %v", err)
  }
  if n != 3 {
    t.Fatalf("ApproveAll count: want 3, got %d", n)
  }

  records, err := repo.ListCurrent(ctx, nil, project.ID, "core")
  if err != nil {
    t.Fatalf("ListCurrent: %v", err)
  }
  for _, rec := range records {
    if !rec.IsApproved {
      t.Fatalf("field %s not approved", rec.FieldID)
    }
  }

  other, err := repo.GetCurrent(ctx, nil, project.ID, "footer", "company_name")
  if err != nil {
    t.Fatalf("GetCurrent footer: %v", err)
  }
  if other.IsApproved {
    t.Fatalf("approval leaked across sections")
  }
}

func TestListCurrentOrder(t *testing.T) {
  db := testutil.DB(t)
  ctx := context.Background()
  repo := NewFieldRecordRepo(db, testutil.Logger(t))

  user := testutil.SeedUser(t, ctx, db, "order@test.com")
  project := testutil.SeedProject(t, ctx, db, user.ID)

  seed := []struct {
    fieldID string
    order   int
  }{
    {fieldID: "zeta", order: 3},
    {fieldID: "alpha", order: 1},
    {fieldID: "mid", order: 2},
  }
  for _, s := range seed {
    opts := UpsertFieldOptions{FieldType: types.FieldTypeText, DisplayOrder: s.order, ApprovedReset: true}
    if _, err := repo.UpsertVersion(ctx, nil, project.ID, "core", s.fieldID, fieldJSON(t, "v"), opts); err != nil {
      t.Fatalf("UpsertVersion %s: %v", s.fieldID, err)
    }
  }

  records, err := repo.ListCurrent(ctx, nil, project.ID, "core")
  if err != nil {
    t.Fatalf("ListCurrent: %v", err)
  }
  want := []string{"alpha", "mid", "zeta"}
  if len(records) != len(want) {
    t.Fatalf("record count: want %d, got %d", len(want), len(records))
  }
  for i, rec := range records {
    if rec.FieldID != want[i] {
      t.Fatalf("order at %d: want %s, got %s", i, want[i], rec.FieldID)
    }
  }
}

func TestFieldSingleCurrentUnderConcurrency(t *testing.T) {
  db := testutil.DB(t)
  ctx := context.Background()
  repo := NewFieldRecordRepo(db, testutil.Logger(t))

  user := testutil.SeedUser(t, ctx, db, "fieldrace@test.com")
  project := testutil.SeedProject(t, ctx, db, user.ID)

  const writers = 8
  var wg sync.WaitGroup
  for i := 0; i < writers; i++ {
    wg.Add(1)
    go func(n int) {
      defer wg.Done()
      opts := UpsertFieldOptions{FieldType: types.FieldTypeText, ApprovedReset: true}
      _, err := repo.UpsertVersion(ctx, nil, project.ID, "core", "name", fieldJSON(t, n), opts)
      if err != nil && !apierr.IsCode(err, apierr.CodeConflict) {
        t.Errorf("writer %d: %v", n, err)
      }
    }(i)
  }
  wg.Wait()

  var currentCount int64
  if err := db.Model(&types.FieldRecord{}).
    Where("project_id = ? AND section_type = ? AND field_id = ? AND is_current = ?", project.ID, "core", "name", true).
    Count(&currentCount).Error; err != nil {
    t.Fatalf("count current: %v", err)
  }
  if currentCount != 1 {
    t.Fatalf("current rows: want exactly 1, got %d", currentCount)
  }

  var total, distinct int64
  if err := db.Model(&types.FieldRecord{}).
    Where("project_id = ? AND section_type = ? AND field_id = ?", project.ID, "core", "name").
    Count(&total).Error; err != nil {
    t.Fatalf("count rows: %v", err)
  }
  if err := db.Model(&types.FieldRecord{}).
    Where("project_id = ? AND section_type = ? AND field_id = ?", project.ID, "core", "name").
    Distinct("version").
    Count(&distinct).Error; err != nil {
    t.Fatalf("count versions: %v", err)
  }
  if total != distinct {
    t.Fatalf("duplicate version numbers: %d rows but %d distinct versions", total, distinct)
  }
  if total != writers {
    t.Fatalf("losing writes dropped: want %d rows, got %d", writers, total)
  }
}
