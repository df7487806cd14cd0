package content

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/launchcopy-backend/internal/platform/apierr"
	"github.com/yungbote/launchcopy-backend/internal/platform/logger"
	"github.com/yungbote/launchcopy-backend/internal/repos"
)

// Reconciler derives field records from a section document. It is the only
// component allowed to create field rows from a document. Reconciliation is
// a best-effort side effect of a document write that has already committed:
// per-field failures come back as warnings, never as an error that would
// suggest rolling the document back.
type Reconciler struct {
	log      *logger.Logger
	registry *Registry
	fields   repos.FieldRecordRepo
}

func NewReconciler(baseLog *logger.Logger, registry *Registry, fields repos.FieldRecordRepo) *Reconciler {
	return &Reconciler{
		log:      baseLog.With("component", "Reconciler"),
		registry: registry,
		fields:   fields,
	}
}

// Reconcile makes the field store agree with doc. The idempotence rule is
// load-bearing: a field whose normalized value is byte-equal to its current
// record is left completely alone, so re-saving a document never resets a
// human's approval of an unchanged field. Fields present in the store but
// absent from doc are also left alone; deletion is an explicit action
// elsewhere.
func (r *Reconciler) Reconcile(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, sectionType string, doc map[string]any) []string {
	def, err := r.registry.Section(sectionType)
	if err != nil {
		return []string{err.Error()}
	}

	flattened, custom := FlattenDocument(def, doc)
	var warnings []string
	customOrder := 0

	for _, fieldID := range sortedKeys(flattened) {
		value := flattened[fieldID]
		normalized, err := NormalizeValue(value)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("field %s: %v", fieldID, err))
			continue
		}

		existing, err := r.fields.GetCurrent(ctx, tx, projectID, sectionType, fieldID)
		if err != nil && !apierr.IsCode(err, apierr.CodeNotFound) {
			warnings = append(warnings, fmt.Sprintf("field %s: %v", fieldID, err))
			continue
		}
		if existing != nil && string(existing.Value) == string(normalized) {
			continue
		}

		opts := r.upsertOptions(def, fieldID, value, custom[fieldID], &customOrder)
		if _, err := r.fields.UpsertVersion(ctx, tx, projectID, sectionType, fieldID, normalized, opts); err != nil {
			warnings = append(warnings, fmt.Sprintf("field %s: %v", fieldID, err))
			r.log.Warn("Field reconciliation failed", "error", err, "project_id", projectID, "section_type", sectionType, "field_id", fieldID)
		}
	}
	return warnings
}

func (r *Reconciler) upsertOptions(def SectionDef, fieldID string, value any, isCustom bool, customOrder *int) repos.UpsertFieldOptions {
	if !isCustom {
		if fd, ok := r.registry.FieldByID(def.Type, fieldID); ok {
			var meta []byte
			if len(fd.Metadata) > 0 {
				if normalized, err := NormalizeValue(fd.Metadata); err == nil {
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
	}
	*customOrder++
	return repos.UpsertFieldOptions{
		Label:         fieldID,
		FieldType:     InferFieldType(value),
		IsCustom:      true,
		DisplayOrder:  customFieldOrderBase + *customOrder,
		ApprovedReset: true,
	}
}

// Custom fields sort after every registered field.
const customFieldOrderBase = 1000
