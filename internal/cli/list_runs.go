package cli

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/storelift/migrator/internal/config"
	"github.com/storelift/migrator/internal/database"
	"github.com/storelift/migrator/internal/database/runs"
)

// ListRunsCommand prints all import runs and their statuses.
type ListRunsCommand struct{}

// NewListRunsCommand creates a new ListRunsCommand.
func NewListRunsCommand() *ListRunsCommand {
	return &ListRunsCommand{}
}

// ParseFlags parses command line flags.
func (cmd *ListRunsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("list-runs", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s list-runs\n\nList all import runs.\n", os.Args[0])
	}
	return fs.Parse(args)
}

// Run executes the listing.
func (cmd *ListRunsCommand) Run() error {
	cfg := config.NewConfig()

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	allRuns, err := runs.NewRepository(db.DB).List()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tSOURCE\tCURRENT\tCREATED\tERROR")
	for _, run := range allRuns {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			run.ID, run.Status, run.SourceAccount, run.CurrentEntity,
			run.CreatedAt.Format("2006-01-02 15:04"), run.ErrorMessage)
	}
	return w.Flush()
}
