// Package scheduler runs the recovery scanner: a periodic sweep that
// prioritizes pending deletions over starting new imports, so at most
// one of {delete, start} happens per tick.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/storelift/migrator/internal/database/records"
	"github.com/storelift/migrator/internal/entities"
	"github.com/storelift/migrator/internal/orchestrator"
)

// RunStore is the slice of the run repository the scanner needs.
type RunStore interface {
	AnyRunning() (bool, error)
	OldestDeletable() (*entities.ImportRun, error)
	OldestPending() (*entities.ImportRun, error)
	MarkDeleting(id string) error
	HardDelete(id string) error
}

// Ledger performs the cascading record deletion for a run.
type Ledger interface {
	DeleteByRun(ctx context.Context, runID string, target records.BrandSoftDeleter) error
}

// Dispatcher sends a pending run into execution. Wired either to the
// orchestrator directly or to the background task queue.
type Dispatcher interface {
	Dispatch(ctx context.Context, runID string) error
}

// RecoveryScanner periodically picks up deletable and pending runs.
type RecoveryScanner struct {
	runs       RunStore
	ledger     Ledger
	target     records.BrandSoftDeleter
	dispatcher Dispatcher
	schedule   string

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.Mutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewRecoveryScanner creates a scanner with a cron schedule.
func NewRecoveryScanner(runs RunStore, ledger Ledger, target records.BrandSoftDeleter, dispatcher Dispatcher, schedule string) *RecoveryScanner {
	return &RecoveryScanner{
		runs:       runs,
		ledger:     ledger,
		target:     target,
		dispatcher: dispatcher,
		schedule:   schedule,
		cron:       cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the periodic scan.
func (s *RecoveryScanner) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.Scan(context.Background()); err != nil {
			log.Printf("[SCANNER] Scan failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule recovery scan: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true
	log.Printf("[SCANNER] Recovery scanner started with schedule %q", s.schedule)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop halts the periodic scan and waits for an in-flight tick.
func (s *RecoveryScanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}
	s.cron.Remove(s.entryID)
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.isRunning = false
	log.Printf("[SCANNER] Recovery scanner stopped")
}

// Scan is one sweep: skip while an import is running, otherwise delete
// the oldest deletable run, otherwise dispatch the oldest pending run.
// Deletable includes rows already DELETING, so a cascade that failed on
// an earlier tick is retried until it goes through.
func (s *RecoveryScanner) Scan(ctx context.Context) error {
	running, err := s.runs.AnyRunning()
	if err != nil {
		return fmt.Errorf("failed to check for running imports: %w", err)
	}
	if running {
		return nil
	}

	deletable, err := s.runs.OldestDeletable()
	if err != nil {
		return fmt.Errorf("failed to look for deletable runs: %w", err)
	}
	if deletable != nil {
		return s.deleteRun(ctx, deletable.ID)
	}

	pending, err := s.runs.OldestPending()
	if err != nil {
		return fmt.Errorf("failed to look for pending runs: %w", err)
	}
	if pending == nil {
		return nil
	}

	log.Printf("[SCANNER] Dispatching pending run %s", pending.ID)
	err = s.dispatcher.Dispatch(ctx, pending.ID)
	if errors.Is(err, orchestrator.ErrAnotherRunActive) {
		// Lost the race against a manual dispatch; the next tick will
		// see the RUNNING row and stand down.
		return nil
	}
	return err
}

func (s *RecoveryScanner) deleteRun(ctx context.Context, runID string) error {
	log.Printf("[SCANNER] Deleting run %s", runID)
	if err := s.runs.MarkDeleting(runID); err != nil {
		return err
	}
	if err := s.ledger.DeleteByRun(ctx, runID, s.target); err != nil {
		return err
	}
	return s.runs.HardDelete(runID)
}
