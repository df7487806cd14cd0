package content

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/launchcopy-backend/internal/platform/apierr"
	"github.com/yungbote/launchcopy-backend/internal/platform/logger"
	"github.com/yungbote/launchcopy-backend/internal/repos"
)

const (
	SyncApplied = "applied"
	SyncSkipped = "skipped"
	SyncFailed  = "failed"
)

type SyncOutcome struct {
	Rule          string `json:"rule"`
	TargetSection string `json:"target_section"`
	TargetField   string `json:"target_field"`
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
	TargetVersion int    `json:"target_version,omitempty"`
}

// SyncEngine applies the static sync-rule table when a section is approved,
// copying approved source values into other sections. Each target write is
// independent: a failure is recorded in its outcome and never blocks the
// approval or the remaining rules.
type SyncEngine struct {
	log        *logger.Logger
	rules      *RuleSet
	sections   repos.SectionDocumentRepo
	fields     repos.FieldRecordRepo
	reconciler *Reconciler
}

func NewSyncEngine(baseLog *logger.Logger, rules *RuleSet, sections repos.SectionDocumentRepo, fields repos.FieldRecordRepo, reconciler *Reconciler) *SyncEngine {
	return &SyncEngine{
		log:        baseLog.With("component", "SyncEngine"),
		rules:      rules,
		sections:   sections,
		fields:     fields,
		reconciler: reconciler,
	}
}

func (e *SyncEngine) ApplyOnApproval(ctx context.Context, projectID uuid.UUID, sectionType string) []SyncOutcome {
	var outcomes []SyncOutcome
	for _, rule := range e.rules.SyncRulesFor(sectionType) {
		sourceRec, err := e.fields.GetCurrent(ctx, nil, projectID, sectionType, rule.SourceField)
		if err != nil {
			reason := "source field has no current value"
			status := SyncSkipped
			if !apierr.IsCode(err, apierr.CodeNotFound) {
				reason = err.Error()
				status = SyncFailed
			}
			for _, t := range rule.Targets {
				outcomes = append(outcomes, SyncOutcome{Rule: rule.Name(t), TargetSection: t.Section, TargetField: t.Field, Status: status, Reason: reason})
			}
			continue
		}
		sourceValue, err := DecodeValue(sourceRec.Value)
		if err != nil {
			for _, t := range rule.Targets {
				outcomes = append(outcomes, SyncOutcome{Rule: rule.Name(t), TargetSection: t.Section, TargetField: t.Field, Status: SyncFailed, Reason: err.Error()})
			}
			continue
		}

		for _, t := range rule.Targets {
			outcomes = append(outcomes, e.applyTarget(ctx, projectID, rule, t, sourceValue))
		}
	}
	return outcomes
}

func (e *SyncEngine) applyTarget(ctx context.Context, projectID uuid.UUID, rule SyncRule, t SyncTarget, sourceValue any) SyncOutcome {
	out := SyncOutcome{Rule: rule.Name(t), TargetSection: t.Section, TargetField: t.Field}

	targetDoc := map[string]any{}
	cur, err := e.sections.GetCurrent(ctx, nil, projectID, t.Section)
	if err != nil && !apierr.IsCode(err, apierr.CodeNotFound) {
		out.Status = SyncFailed
		out.Reason = err.Error()
		return out
	}
	if cur != nil {
		if targetDoc, err = DecodeDocument(cur.Content); err != nil {
			out.Status = SyncFailed
			out.Reason = err.Error()
			return out
		}
	}

	updated, err := ApplySyncTarget(t, sourceValue, targetDoc)
	if err != nil {
		out.Status = SyncFailed
		out.Reason = err.Error()
		return out
	}

	canonical, hash, err := CanonicalDocument(updated)
	if err != nil {
		out.Status = SyncFailed
		out.Reason = err.Error()
		return out
	}
	if cur != nil && cur.ContentHash == hash {
		out.Status = SyncSkipped
		out.Reason = "target already up to date"
		return out
	}

	doc, _, err := e.sections.PutNew(ctx, nil, projectID, t.Section, canonical, hash)
	if err != nil {
		e.log.Warn("Sync rule target write failed", "error", err, "rule", out.Rule, "project_id", projectID)
		out.Status = SyncFailed
		out.Reason = err.Error()
		return out
	}

	// The write re-triggers reconciliation for the target so the copied
	// value becomes an addressable, unapproved field there.
	if warnings := e.reconciler.Reconcile(ctx, nil, projectID, t.Section, updated); len(warnings) > 0 {
		e.log.Warn("Sync target reconciliation reported warnings", "rule", out.Rule, "warnings", warnings)
	}

	out.Status = SyncApplied
	out.TargetVersion = doc.Version
	return out
}

// ApplySyncTarget is the pure core of a sync rule: transform the source
// value and set it at the target path.
func ApplySyncTarget(t SyncTarget, sourceValue any, targetDoc map[string]any) (map[string]any, error) {
	tf, ok := Transform(t.Transform)
	if !ok {
		return nil, apierr.Configuration("unknown transform %q", t.Transform)
	}
	return SetPath(targetDoc, t.Field, tf(sourceValue)), nil
}
