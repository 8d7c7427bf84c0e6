// Package ingest orchestrates the construction pipeline: quality gating,
// extraction, resolution, and persistence over a corpus of work units.
//
// Units flow through a fixed worker pool and complete in arbitrary order.
// Workers report per-unit outcomes over a single completion channel; one
// aggregator goroutine owns every report counter and the checkpoint state,
// so progress accounting needs no locks. A permanent service error stops
// dispatch cooperatively: in-flight units finish, nothing new starts, and
// the final report says how to resume.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/kgforge/kgforge/internal/config"
	"github.com/kgforge/kgforge/internal/llm"
	"github.com/kgforge/kgforge/internal/quality"
	"github.com/kgforge/kgforge/internal/resolver"
	"github.com/kgforge/kgforge/internal/storage"
	"github.com/kgforge/kgforge/pkg/types"
)

// hintLimit is how many known entity names are passed to extraction so the
// model reuses canonical surface forms.
const hintLimit = 15

// Orchestrator runs the ingest pipeline over a corpus.
type Orchestrator struct {
	store       storage.GraphStore
	gate        *quality.Gate
	extractor   llm.Extractor
	entities    *resolver.EntityResolver
	relations   *resolver.RelationResolver
	checkpoints *CheckpointManager
	cfg         config.IngestConfig

	knownBad map[string]bool
}

// NewOrchestrator wires the pipeline stages together. checkpoints may be
// nil, which disables resume and progress flushing.
func NewOrchestrator(
	store storage.GraphStore,
	gate *quality.Gate,
	extractor llm.Extractor,
	entities *resolver.EntityResolver,
	relations *resolver.RelationResolver,
	checkpoints *CheckpointManager,
	cfg config.IngestConfig,
) *Orchestrator {
	knownBad := make(map[string]bool, len(cfg.KnownBadUnits))
	for _, id := range cfg.KnownBadUnits {
		knownBad[id] = true
	}
	// A dry run must not mark units done for later real runs.
	if cfg.DryRun {
		checkpoints = nil
	}
	return &Orchestrator{
		store:       store,
		gate:        gate,
		extractor:   extractor,
		entities:    entities,
		relations:   relations,
		checkpoints: checkpoints,
		cfg:         cfg,
		knownBad:    knownBad,
	}
}

// Run processes the corpus and returns the final report. The returned error
// is non-nil only for setup failures; per-unit failures and permanent stops
// are reported through the IngestReport.
func (o *Orchestrator) Run(ctx context.Context, units []*types.WorkUnit) (*types.IngestReport, error) {
	report := &types.IngestReport{StartedAt: time.Now().UTC()}

	units = o.applyWindow(units)
	report.UnitsTotal = len(units)

	var done map[string]bool
	if o.checkpoints != nil && !o.cfg.ForceReindex {
		done = o.checkpoints.Load()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := o.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan *types.WorkUnit, workers)
	results := make(chan types.UnitResult, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go o.worker(runCtx, i, jobs, results, &wg)
	}

	// Dispatcher: feeds units until the corpus is exhausted or a permanent
	// stop cancels the run. Units never dispatched are counted below.
	go func() {
		defer close(jobs)
		for _, unit := range units {
			if done[unit.ID] {
				results <- types.UnitResult{UnitID: unit.ID, State: types.UnitSkipped, SkipReason: types.SkipAlreadyIndexed}
				continue
			}
			select {
			case jobs <- unit:
			case <-runCtx.Done():
				return
			}
		}
	}()

	// Close the results channel once every worker has drained.
	go func() {
		wg.Wait()
		close(results)
	}()

	// Aggregator: the single owner of report counters and checkpoint state.
	doneUnits := make([]string, 0, len(done)+len(units))
	for id := range done {
		doneUnits = append(doneUnits, id)
	}
	sinceFlush := 0

	for result := range results {
		switch result.State {
		case types.UnitDone:
			report.UnitsProcessed++
			report.EntitiesCreated += result.EntitiesCreated
			report.EntitiesDedup += result.EntitiesDedup
			report.CandidatesRejected += result.CandidatesRejected
			report.RelationsCreated += result.RelationsCreated
			report.MentionsCreated += result.MentionsCreated
			doneUnits = append(doneUnits, result.UnitID)
			sinceFlush++
		case types.UnitSkipped:
			report.UnitsSkipped++
			if result.SkipReason != types.SkipAlreadyIndexed {
				log.Printf("ingest: unit %s skipped: %s", result.UnitID, result.SkipReason)
			}
			doneUnits = append(doneUnits, result.UnitID)
			sinceFlush++
		case types.UnitFailed:
			report.UnitsFailed++
			log.Printf("ingest: unit %s failed: %v", result.UnitID, result.Err)
			if llm.IsPermanent(result.Err) && !report.StoppedEarly {
				report.StoppedEarly = true
				report.StopCause = result.Err.Error()
				log.Printf("ingest: permanent service error, stopping dispatch (run is resumable): %v", result.Err)
				cancel()
			}
		}

		if o.checkpoints != nil && o.cfg.CheckpointEvery > 0 && sinceFlush >= o.cfg.CheckpointEvery {
			if err := o.checkpoints.Flush(doneUnits); err != nil {
				log.Printf("ingest: checkpoint flush failed: %v", err)
			}
			sinceFlush = 0
		}
	}

	report.FinishedAt = time.Now().UTC()
	report.UnitsNotTried = report.UnitsTotal - report.UnitsProcessed - report.UnitsSkipped - report.UnitsFailed

	if o.checkpoints != nil && sinceFlush > 0 {
		if err := o.checkpoints.Flush(doneUnits); err != nil {
			log.Printf("ingest: final checkpoint flush failed: %v", err)
		}
	}

	if stats, err := o.store.Stats(ctx); err == nil {
		log.Printf("ingest: graph now holds %d entities, %d mentions, %d relations across %d units",
			stats.Entities, stats.Mentions, stats.Relations, stats.UnitsIndexed)
	}

	return report, nil
}

// applyWindow filters the corpus by the configured time window and cap.
func (o *Orchestrator) applyWindow(units []*types.WorkUnit) []*types.WorkUnit {
	filtered := units
	if !o.cfg.Since.IsZero() {
		filtered = filtered[:0:0]
		for _, unit := range units {
			if unit.Timestamp.After(o.cfg.Since) {
				filtered = append(filtered, unit)
			}
		}
	}
	if o.cfg.Limit > 0 && len(filtered) > o.cfg.Limit {
		filtered = filtered[:o.cfg.Limit]
	}
	return filtered
}

// worker processes units until the job channel closes. After a cancel it
// keeps draining so the dispatcher never blocks, but does not start work.
func (o *Orchestrator) worker(ctx context.Context, id int, jobs <-chan *types.WorkUnit, results chan<- types.UnitResult, wg *sync.WaitGroup) {
	defer wg.Done()

	log.Printf("ingest: worker %d started", id)
	for unit := range jobs {
		if ctx.Err() != nil {
			continue
		}
		results <- o.processUnit(ctx, unit)
	}
	log.Printf("ingest: worker %d stopped", id)
}

// processUnit walks one unit through the state machine. Every exit path is
// a terminal state: DONE, SKIPPED, or FAILED (recording the stage reached).
func (o *Orchestrator) processUnit(ctx context.Context, unit *types.WorkUnit) types.UnitResult {
	result := types.UnitResult{UnitID: unit.ID, State: types.UnitPending}

	fail := func(err error) types.UnitResult {
		result.Err = fmt.Errorf("at %s: %w", result.State, err)
		result.State = types.UnitFailed
		return result
	}
	skip := func(reason types.SkipReason) types.UnitResult {
		result.State = types.UnitSkipped
		result.SkipReason = reason
		return result
	}

	if o.knownBad[unit.ID] {
		return skip(types.SkipKnownBad)
	}

	// Idempotent-resume probe: a unit with any mention on record was fully
	// persisted by an earlier run.
	if !o.cfg.ForceReindex {
		indexed, err := o.store.HasMentionForUnit(ctx, unit.ID)
		if err != nil {
			return fail(err)
		}
		if indexed {
			return skip(types.SkipAlreadyIndexed)
		}
	}

	gateResult := o.gate.Score(unit.Text, unit.ContentKind)
	result.QualityScore = gateResult.Score
	if !gateResult.ShouldIndex {
		return skip(types.SkipLowQuality)
	}
	result.State = types.UnitQualityChecked

	if o.cfg.DryRun {
		result.State = types.UnitDone
		return result
	}

	entities, relations, err := o.extractWithRetry(ctx, unit)
	if err != nil {
		return fail(err)
	}
	result.State = types.UnitExtracted

	nameToEntity := make(map[string]*types.Entity)
	for _, cand := range entities {
		if strings.TrimSpace(cand.Name) == "" {
			result.CandidatesRejected++
			continue
		}
		res, err := o.entities.Resolve(ctx, cand, unit)
		if err != nil {
			if errors.Is(err, storage.ErrInvalidInput) {
				result.CandidatesRejected++
				continue
			}
			return fail(err)
		}
		if res.Created {
			result.EntitiesCreated++
		} else {
			result.EntitiesDedup++
		}
		if res.MentionCreated {
			result.MentionsCreated++
		}

		indexResolution(nameToEntity, cand.Name, res.Entity)
	}
	result.State = types.UnitResolved

	if o.cfg.Relations && len(relations) > 0 {
		outcome, err := o.relations.Resolve(ctx, relations, nameToEntity, unit)
		if err != nil {
			return fail(err)
		}
		result.RelationsCreated += outcome.Created
	}

	result.State = types.UnitDone
	return result
}

// extractWithRetry calls the extraction adapter, retrying transient
// failures with capped exponential backoff. Permanent failures and context
// cancellation return immediately.
func (o *Orchestrator) extractWithRetry(ctx context.Context, unit *types.WorkUnit) ([]types.CandidateEntity, []types.CandidateRelation, error) {
	hints := o.entityHints(ctx)

	var lastErr error
	for attempt := 0; attempt <= o.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(o.cfg.RetryBaseDelay, o.cfg.RetryMaxDelay, attempt)
			log.Printf("ingest: unit %s: transient failure, retry %d/%d in %v", unit.ID, attempt, o.cfg.MaxRetries, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, nil, fmt.Errorf("ingest: retry interrupted: %w", ctx.Err())
			}
		}

		entities, relations, err := o.extractor.Extract(ctx, unit.Text, hints, unit.Tier, o.cfg.Relations)
		if err == nil {
			return entities, relations, nil
		}

		// Entities alongside an error mean only the relation call failed.
		// Keep them and drop this unit's relations; a retry would re-run the
		// entity call too.
		if len(entities) > 0 {
			log.Printf("ingest: unit %s: relation extraction failed, keeping %d entities: %v", unit.ID, len(entities), err)
			return entities, nil, nil
		}
		lastErr = err

		if !llm.IsTransient(err) {
			return nil, nil, err
		}
	}
	return nil, nil, fmt.Errorf("ingest: retries exhausted for unit %s: %w", unit.ID, lastErr)
}

// entityHints returns the most-mentioned entity names so extraction reuses
// surface forms the graph already knows. Failure just means no hints.
func (o *Orchestrator) entityHints(ctx context.Context) []string {
	entities, err := o.store.ListEntities(ctx, storage.ListOptions{Limit: hintLimit})
	if err != nil {
		return nil
	}
	hints := make([]string, 0, len(entities))
	for _, e := range entities {
		hints = append(hints, e.CanonicalName)
	}
	return hints
}

// indexResolution registers every surface form of a resolution so relation
// candidates can reference the entity by candidate name, canonical name, or
// any alias.
func indexResolution(nameToEntity map[string]*types.Entity, candidateName string, entity *types.Entity) {
	nameToEntity[strings.ToLower(strings.TrimSpace(candidateName))] = entity
	nameToEntity[strings.ToLower(entity.CanonicalName)] = entity
	for _, alias := range entity.Aliases {
		nameToEntity[strings.ToLower(alias)] = entity
	}
}

// backoffDelay doubles the base delay per attempt, capped at max.
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	delay := base << (attempt - 1)
	if max > 0 && delay > max {
		return max
	}
	return delay
}
