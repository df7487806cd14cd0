package content

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/launchcopy-backend/internal/jobs"
	"github.com/yungbote/launchcopy-backend/internal/platform/apierr"
	"github.com/yungbote/launchcopy-backend/internal/platform/logger"
	"github.com/yungbote/launchcopy-backend/internal/repos"
)

type PropagationInput struct {
	ProjectID     uuid.UUID
	SectionType   string
	SourceVersion int
	OldDocument   map[string]any
	NewDocument   map[string]any
}

type PropagationFailure struct {
	Section string `json:"section"`
	Error   string `json:"error"`
}

type PropagationResult struct {
	UpdatedSections []string             `json:"updated_sections"`
	SkippedStale    []string             `json:"skipped_stale"`
	Failures        []PropagationFailure `json:"failures"`
	DurationMs      int64                `json:"duration_ms"`
}

// Propagator recomputes declared-dependent sections after a source section's
// document changes. Runs are detached from the triggering write: they go
// through the bounded pool, diff old vs new to react only to real changes,
// and re-check the source's current version before each dependent write so a
// run for a superseded version never overwrites fresher derivations.
type Propagator struct {
	log        *logger.Logger
	pool       *jobs.Pool
	rules      *RuleSet
	registry   *Registry
	sections   repos.SectionDocumentRepo
	reconciler *Reconciler

	// Time box for a single dependent update so one slow path cannot
	// monopolize a pool worker.
	DependentTimeout time.Duration

	// OnResult, when set, observes every completed run (SSE notification).
	OnResult func(in PropagationInput, result PropagationResult)
}

func NewPropagator(baseLog *logger.Logger, pool *jobs.Pool, rules *RuleSet, registry *Registry, sections repos.SectionDocumentRepo, reconciler *Reconciler) *Propagator {
	return &Propagator{
		log:              baseLog.With("component", "Propagator"),
		pool:             pool,
		rules:            rules,
		registry:         registry,
		sections:         sections,
		reconciler:       reconciler,
		DependentTimeout: 15 * time.Second,
	}
}

// Enqueue submits a propagation run to the background pool. The caller has
// already returned success for the primary write; a full queue only costs
// freshness, and the next edit (or a repair sweep) re-derives.
func (p *Propagator) Enqueue(in PropagationInput) {
	task := jobs.Task{
		Name: fmt.Sprintf("propagate:%s:%s:v%d", in.ProjectID, in.SectionType, in.SourceVersion),
		Fn: func(ctx context.Context) {
			result := p.Run(ctx, in)
			if p.OnResult != nil {
				p.OnResult(in, result)
			}
		},
	}
	if p.pool == nil {
		go task.Fn(context.Background())
		return
	}
	if err := p.pool.Submit(task); err != nil {
		p.log.Warn("Propagation not scheduled", "error", err, "project_id", in.ProjectID, "section_type", in.SectionType)
	}
}

// Run executes one propagation synchronously. Safe to run any number of
// times for the same (old, new) pair.
func (p *Propagator) Run(ctx context.Context, in PropagationInput) PropagationResult {
	start := time.Now()
	result := PropagationResult{}

	tracer := otel.Tracer("launchcopy/content")
	ctx, span := tracer.Start(ctx, "content.propagate")
	span.SetAttributes(
		attribute.String("project_id", in.ProjectID.String()),
		attribute.String("section_type", in.SectionType),
		attribute.Int("source_version", in.SourceVersion),
	)
	defer span.End()

	def, err := p.registry.Section(in.SectionType)
	if err != nil {
		result.Failures = append(result.Failures, PropagationFailure{Section: in.SectionType, Error: err.Error()})
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}

	changed := DiffChanged(def, in.OldDocument, in.NewDocument)
	if len(changed) == 0 {
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}

	type job struct {
		dependent Dependent
		changed   map[string]any
	}
	var jobsToRun []job
	for _, rule := range p.rules.DependencyRulesFor(in.SectionType) {
		watched := watchedChanges(rule, changed)
		if len(watched) == 0 {
			continue
		}
		for _, d := range rule.Dependents {
			jobsToRun = append(jobsToRun, job{dependent: d, changed: watched})
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, j := range jobsToRun {
		j := j
		g.Go(func() error {
			depCtx, cancel := context.WithTimeout(gctx, p.DependentTimeout)
			defer cancel()

			outcome, err := p.updateDependent(depCtx, in, j.dependent, j.changed)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				// One failing dependent never blocks the others.
				p.log.Error("Dependent section update failed", "error", err, "project_id", in.ProjectID, "source", in.SectionType, "dependent", j.dependent.Section)
				result.Failures = append(result.Failures, PropagationFailure{Section: j.dependent.Section, Error: err.Error()})
			case outcome == dependentStale:
				result.SkippedStale = append(result.SkippedStale, j.dependent.Section)
			case outcome == dependentUpdated:
				result.UpdatedSections = append(result.UpdatedSections, j.dependent.Section)
			}
			return nil
		})
	}
	_ = g.Wait()

	result.DurationMs = time.Since(start).Milliseconds()
	p.log.Info("Propagation run finished",
		"project_id", in.ProjectID,
		"section_type", in.SectionType,
		"source_version", in.SourceVersion,
		"updated", result.UpdatedSections,
		"skipped_stale", result.SkippedStale,
		"failures", len(result.Failures),
		"duration_ms", result.DurationMs,
	)
	return result
}

type dependentOutcome int

const (
	dependentUnchanged dependentOutcome = iota
	dependentUpdated
	dependentStale
)

func (p *Propagator) updateDependent(ctx context.Context, in PropagationInput, dep Dependent, changed map[string]any) (dependentOutcome, error) {
	derive, ok := Deriver(dep.Deriver)
	if !ok {
		return dependentUnchanged, apierr.Configuration("unknown deriver %q", dep.Deriver)
	}

	// Staleness re-check: if a newer source version landed while this run
	// was queued or in flight, its own propagation carries the fresher
	// values. Writing ours anyway would regress the dependent.
	cur, err := p.sections.GetCurrent(ctx, nil, in.ProjectID, in.SectionType)
	if err != nil {
		return dependentUnchanged, err
	}
	if cur.Version != in.SourceVersion {
		p.log.Debug("Propagation source superseded, abandoning dependent update",
			"project_id", in.ProjectID, "source", in.SectionType,
			"run_version", in.SourceVersion, "current_version", cur.Version,
			"dependent", dep.Section)
		return dependentStale, nil
	}

	targetDoc := map[string]any{}
	var targetHash string
	target, err := p.sections.GetCurrent(ctx, nil, in.ProjectID, dep.Section)
	if err != nil && !apierr.IsCode(err, apierr.CodeNotFound) {
		return dependentUnchanged, err
	}
	if target != nil {
		targetHash = target.ContentHash
		if targetDoc, err = DecodeDocument(target.Content); err != nil {
			return dependentUnchanged, err
		}
	}

	updated := derive(changed, CloneDocument(targetDoc))
	canonical, hash, err := CanonicalDocument(updated)
	if err != nil {
		return dependentUnchanged, err
	}
	if hash == targetHash {
		return dependentUnchanged, nil
	}

	if _, _, err := p.sections.PutNew(ctx, nil, in.ProjectID, dep.Section, canonical, hash); err != nil {
		return dependentUnchanged, err
	}
	if warnings := p.reconciler.Reconcile(ctx, nil, in.ProjectID, dep.Section, updated); len(warnings) > 0 {
		p.log.Warn("Dependent reconciliation reported warnings", "dependent", dep.Section, "warnings", warnings)
	}
	return dependentUpdated, nil
}

func watchedChanges(rule DependencyRule, changed map[string]any) map[string]any {
	if len(rule.WatchFields) == 0 {
		return changed
	}
	out := map[string]any{}
	for _, f := range rule.WatchFields {
		if v, ok := changed[f]; ok {
			out[f] = v
		}
	}
	return out
}
