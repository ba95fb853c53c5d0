package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/storelift/migrator/internal/orchestrator"
)

// RunImportTask executes one import run through the orchestrator.
type RunImportTask struct {
	RunID string `json:"run_id"`
}

// Config returns the queue configuration for import tasks. A single
// attempt with no retry: resumption of a failed run is an operator
// decision, the engine never re-runs a failed import on its own.
func (t RunImportTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "run_import",
		MaxAttempts: 1,
		Timeout:     4 * time.Hour,
		Retention: &backlite.Retention{
			Duration:   72 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// RunImportProcessor creates the processor for import tasks.
func RunImportProcessor(orch *orchestrator.Orchestrator) backlite.QueueProcessor[RunImportTask] {
	return func(ctx context.Context, task RunImportTask) error {
		err := orch.Dispatch(ctx, task.RunID)
		if errors.Is(err, orchestrator.ErrAnotherRunActive) {
			// Leave the run PENDING; the recovery scanner re-dispatches
			// it once the active run finishes.
			log.Printf("[TASK] Run %s deferred, another run is active", task.RunID)
			return nil
		}
		if err != nil {
			// The run row already carries the error detail; failing the
			// task here would only trigger a duplicate dispatch.
			log.Printf("[TASK] Run %s ended with error: %v", task.RunID, err)
			return nil
		}
		return nil
	}
}

// NewRunImportQueue creates the backlite queue for import tasks.
func NewRunImportQueue(orch *orchestrator.Orchestrator) backlite.Queue {
	return backlite.NewQueue(RunImportProcessor(orch))
}

// Enqueuer submits an import run to the background queue. It satisfies
// the scheduler's Dispatcher contract.
type Enqueuer struct {
	client *Client
}

// NewEnqueuer wraps a task client as a dispatcher.
func NewEnqueuer(client *Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// Dispatch enqueues the run for background execution.
func (e *Enqueuer) Dispatch(ctx context.Context, runID string) error {
	if err := e.client.Add(RunImportTask{RunID: runID}).Ctx(ctx).Save(); err != nil {
		return fmt.Errorf("failed to enqueue import task for run %s: %w", runID, err)
	}
	return nil
}
