// Package orchestrator owns the single-flight invariant: at most one
// import run is actively processing system-wide. It claims pending
// runs, drives them through the migration pipeline and records their
// terminal state.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/storelift/migrator/internal/entities"
	"github.com/storelift/migrator/internal/migration"
)

// ErrAnotherRunActive is returned when a dispatch is refused because a
// run is already RUNNING or DELETING.
var ErrAnotherRunActive = errors.New("another import run is active")

// ErrRunNotDispatchable is returned when the run is in a status that
// cannot enter the pipeline.
var ErrRunNotDispatchable = errors.New("import run cannot be dispatched in its current status")

// RunStore is the slice of the run repository the orchestrator needs.
type RunStore interface {
	Get(id string) (*entities.ImportRun, error)
	AnyActive() (bool, error)
	MarkRunning(id string) error
	MarkError(id, message string, kind entities.EntityKind) error
	ClearError(id string) error
}

// Executor runs one claimed import through the step pipeline.
type Executor interface {
	Execute(ctx context.Context, run *entities.ImportRun) error
}

// Orchestrator serializes import execution behind a claim marker.
type Orchestrator struct {
	runs       RunStore
	pipeline   Executor
	errorDelay time.Duration

	mu      sync.Mutex
	current string
}

// New creates an orchestrator. errorDelay is the backoff inserted
// before recording a failure, easing pressure on rate-limited APIs.
func New(runs RunStore, pipeline Executor, errorDelay time.Duration) *Orchestrator {
	return &Orchestrator{runs: runs, pipeline: pipeline, errorDelay: errorDelay}
}

// TryClaim atomically installs runID as the current run. It fails when
// any run already holds the marker.
func (o *Orchestrator) TryClaim(runID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current != "" {
		return false
	}
	o.current = runID
	return true
}

// Release clears the claim marker if runID holds it.
func (o *Orchestrator) Release(runID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == runID {
		o.current = ""
	}
}

// Current returns the id of the claimed run, or "".
func (o *Orchestrator) Current() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Dispatch claims a PENDING (or operator-resumed ERROR) run and drives
// it to a terminal state. The claim marker is released whatever the
// outcome.
func (o *Orchestrator) Dispatch(ctx context.Context, runID string) error {
	run, err := o.runs.Get(runID)
	if err != nil {
		return err
	}
	if run.Status != entities.RunStatusPending && run.Status != entities.RunStatusError {
		return fmt.Errorf("%w: status is %s", ErrRunNotDispatchable, run.Status)
	}

	active, err := o.runs.AnyActive()
	if err != nil {
		return err
	}
	if active {
		return ErrAnotherRunActive
	}
	if !o.TryClaim(runID) {
		return ErrAnotherRunActive
	}
	defer o.Release(runID)

	// An operator re-dispatch of an errored run resumes it: wipe the
	// recorded failure so steps stop skipping, then let the ledger and
	// the completed-step markers fast-forward past finished work.
	if run.ErrorMessage != "" {
		if err := o.runs.ClearError(runID); err != nil {
			return err
		}
	}
	if err := o.runs.MarkRunning(runID); err != nil {
		return err
	}
	log.Printf("[ORCHESTRATOR] Run %s claimed and running", runID)

	fresh, err := o.runs.Get(runID)
	if err != nil {
		return err
	}

	if err := o.pipeline.Execute(ctx, fresh); err != nil {
		o.backoff(ctx)
		message, kind := describeFailure(err)
		if markErr := o.runs.MarkError(runID, message, kind); markErr != nil {
			log.Printf("[ORCHESTRATOR] Failed to record error for run %s: %v", runID, markErr)
		}
		log.Printf("[ORCHESTRATOR] Run %s failed during %s step: %s", runID, kind, message)
		return err
	}
	return nil
}

// describeFailure extracts the failing entity kind and a message that
// names the offending request when the failure came from a remote call.
func describeFailure(err error) (string, entities.EntityKind) {
	kind := entities.EntityKindCategory
	var stepErr *migration.StepError
	if errors.As(err, &stepErr) {
		return stepErr.Err.Error(), stepErr.Kind
	}
	return err.Error(), kind
}

func (o *Orchestrator) backoff(ctx context.Context) {
	if o.errorDelay <= 0 {
		return
	}
	select {
	case <-time.After(o.errorDelay):
	case <-ctx.Done():
	}
}
