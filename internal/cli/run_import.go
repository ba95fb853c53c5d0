package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/storelift/migrator/internal/catalog/vtex"
	"github.com/storelift/migrator/internal/config"
	"github.com/storelift/migrator/internal/database"
	"github.com/storelift/migrator/internal/database/records"
	"github.com/storelift/migrator/internal/database/runs"
	"github.com/storelift/migrator/internal/migration"
	"github.com/storelift/migrator/internal/orchestrator"
)

// RunImportCommand dispatches one import run from the command line,
// bypassing the HTTP boundary and task queue. This is the manual
// recovery path for runs left RUNNING by a crashed process: reset the
// row to PENDING, then re-dispatch here.
type RunImportCommand struct {
	RunID string
	Reset bool
}

// NewRunImportCommand creates a new RunImportCommand.
func NewRunImportCommand() *RunImportCommand {
	return &RunImportCommand{}
}

// ParseFlags parses command line flags.
func (cmd *RunImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("run-import", flag.ExitOnError)

	fs.StringVar(&cmd.RunID, "id", "", "Import run id to dispatch")
	fs.BoolVar(&cmd.Reset, "reset", false, "Reset a stale RUNNING run back to PENDING before dispatching")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s run-import -id <run-id> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Dispatch one import run synchronously.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.RunID == "" {
		fs.Usage()
		return fmt.Errorf("-id is required")
	}
	return nil
}

// Run executes the dispatch.
func (cmd *RunImportCommand) Run() error {
	cfg := config.NewConfig()

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	runRepo := runs.NewRepository(db.DB)
	recordRepo := records.NewRepository(db.DB)

	if cmd.Reset {
		if err := runRepo.ResetToPending(cmd.RunID); err != nil {
			return fmt.Errorf("failed to reset run: %w", err)
		}
		fmt.Printf("Run %s reset to PENDING\n", cmd.RunID)
	}

	sources := vtex.NewSourceFactory(cfg.Source.Endpoint, cfg.Source.Account, cfg.Source.Token, cfg.Migration.PageSize)
	target := vtex.NewTarget(cfg.Target.Endpoint, cfg.Target.Account, cfg.Target.Token, cfg.Migration.PageSize)

	pipeline := migration.NewPipeline(runRepo, recordRepo, sources, target, migration.Options{
		Concurrency: cfg.Migration.BatchConcurrency,
		StepDelay:   cfg.Migration.StepDelay,
	})
	orch := orchestrator.New(runRepo, pipeline, cfg.Migration.StepDelay)

	if err := orch.Dispatch(context.Background(), cmd.RunID); err != nil {
		return fmt.Errorf("dispatch failed: %w", err)
	}

	fmt.Printf("Run %s completed successfully\n", cmd.RunID)
	return nil
}
