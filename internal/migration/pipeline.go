// Package migration implements the ordered step pipeline that moves a
// catalog from a source account to a target account: categories,
// products, SKUs, prices, stock, finalize. Steps run strictly in order;
// concurrency exists only inside a step, bounded by the batch package.
package migration

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/storelift/migrator/internal/catalog"
	"github.com/storelift/migrator/internal/entities"
)

// Options tunes pipeline execution.
type Options struct {
	// Concurrency bounds parallel fan-out batches.
	Concurrency int

	// StepDelay is the pause inserted between steps so rate-limited
	// remote APIs get breathing room. Not a correctness requirement.
	StepDelay time.Duration
}

// StepError wraps a step failure with the entity kind that was active.
type StepError struct {
	Kind entities.EntityKind
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step failed: %v", e.Kind, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Pipeline drives one import run through all migration steps.
type Pipeline struct {
	runs    RunStore
	ledger  Ledger
	sources SourceFactory
	target  catalog.Target
	opts    Options
}

// NewPipeline creates a pipeline over the given collaborators.
func NewPipeline(runs RunStore, ledger Ledger, sources SourceFactory, target catalog.Target, opts Options) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 500
	}
	return &Pipeline{runs: runs, ledger: ledger, sources: sources, target: target, opts: opts}
}

type step struct {
	kind entities.EntityKind
	run  func(ctx context.Context, rc Context) (Context, error)
}

// Execute runs every step in order and finalizes the run as SUCCESS.
// The first step failure aborts execution and is returned as a
// StepError; recording the run's ERROR status is the orchestrator's
// job.
func (p *Pipeline) Execute(ctx context.Context, run *entities.ImportRun) error {
	source, account := p.sources(run)
	rc, err := newRunContext(run, source, account)
	if err != nil {
		return &StepError{Kind: entities.EntityKindCategory, Err: err}
	}

	steps := []step{
		{entities.EntityKindCategory, p.stepCategories},
		{entities.EntityKindProduct, p.stepProducts},
		{entities.EntityKindSku, p.stepSkus},
		{entities.EntityKindPrice, p.stepPrices},
		{entities.EntityKindStock, p.stepStocks},
	}

	for _, s := range steps {
		fresh, err := p.runs.Get(run.ID)
		if err != nil {
			return &StepError{Kind: s.kind, Err: err}
		}

		// A run that picked up an error mid-dispatch stops advancing;
		// an operator re-dispatch clears the error before re-entry.
		if fresh.ErrorMessage != "" {
			log.Printf("[PIPELINE] Run %s has a recorded error, skipping %s step", run.ID, s.kind)
			continue
		}

		if fresh.StepCompleted(s.kind) {
			if err := p.fastForward(&rc, s.kind); err != nil {
				return &StepError{Kind: s.kind, Err: err}
			}
			log.Printf("[PIPELINE] Run %s: %s step already completed, fast-forwarding", run.ID, s.kind)
			continue
		}

		if err := p.runs.SetCurrentEntity(run.ID, s.kind); err != nil {
			return &StepError{Kind: s.kind, Err: err}
		}

		log.Printf("[PIPELINE] Run %s: starting %s step", run.ID, s.kind)
		rc, err = s.run(ctx, rc)
		if err != nil {
			return &StepError{Kind: s.kind, Err: err}
		}

		if err := p.runs.AppendCompletedStep(run.ID, s.kind); err != nil {
			return &StepError{Kind: s.kind, Err: err}
		}
		if err := p.pause(ctx); err != nil {
			return &StepError{Kind: s.kind, Err: err}
		}
	}

	if err := p.runs.MarkSuccess(run.ID); err != nil {
		return &StepError{Kind: entities.EntityKindStock, Err: err}
	}
	log.Printf("[PIPELINE] Run %s finished successfully", run.ID)
	return nil
}

// fastForward rebuilds the in-memory state a completed step would have
// produced, reading target ids back from the ledger.
func (p *Pipeline) fastForward(rc *Context, kind entities.EntityKind) error {
	kinds := []entities.EntityKind{kind}
	if kind == entities.EntityKindProduct {
		// The product step also resolves brands.
		kinds = append(kinds, entities.EntityKindBrand)
	}
	for _, k := range kinds {
		m := rc.mapForKind(k)
		if m == nil {
			continue
		}
		records, err := p.ledger.ListByRun(rc.Run.ID, k)
		if err != nil {
			return fmt.Errorf("failed to rebuild %s identifier map: %w", k, err)
		}
		for _, record := range records {
			if record.TargetID != "" {
				m.Put(record.SourceID, record.TargetID)
			}
		}
	}
	return nil
}

// resolved returns the target id already recorded for an entity, or ""
// when the entity was never pushed. This is the ledger check that makes
// every target-side write idempotent across dispatches.
func (p *Pipeline) resolved(rc Context, kind entities.EntityKind, sourceID string) (string, error) {
	record, err := p.ledger.FindBySource(rc.Run.ID, kind, rc.SourceAccount, sourceID)
	if err != nil {
		return "", fmt.Errorf("ledger lookup for %s %s failed: %w", kind, sourceID, err)
	}
	if record == nil {
		return "", nil
	}
	return record.TargetID, nil
}

func (p *Pipeline) record(rc Context, kind entities.EntityKind, sourceID, targetID, title string, payload any, pathParams map[string]string) error {
	rec := &entities.MigrationRecord{
		RunID:         rc.Run.ID,
		EntityKind:    kind,
		SourceAccount: rc.SourceAccount,
		SourceID:      sourceID,
		TargetID:      targetID,
		Title:         title,
	}
	if payload != nil {
		rec.Payload = marshalJSON(payload)
	}
	if len(pathParams) > 0 {
		rec.PathParams = marshalJSON(pathParams)
	}
	return p.ledger.Append(rec)
}

func (p *Pipeline) pause(ctx context.Context) error {
	if p.opts.StepDelay <= 0 {
		return nil
	}
	select {
	case <-time.After(p.opts.StepDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
