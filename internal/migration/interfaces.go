package migration

import (
	"github.com/storelift/migrator/internal/catalog"
	"github.com/storelift/migrator/internal/entities"
)

// SourceFactory resolves the source catalog client for one run,
// returning the client together with the account name used to key the
// run's ledger records. Runs carrying their own credentials get a
// dedicated client; everything else shares the default account.
type SourceFactory func(run *entities.ImportRun) (catalog.Source, string)

// RunStore is the slice of the run repository the pipeline needs.
type RunStore interface {
	Get(id string) (*entities.ImportRun, error)
	SetCurrentEntity(id string, kind entities.EntityKind) error
	SetSourceTotal(id string, kind entities.EntityKind, total int) error
	SetDerivedSkuIDs(id, skuIDs string) error
	AppendCompletedStep(id string, kind entities.EntityKind) error
	MarkSuccess(id string) error
}

// Ledger is the migration record log the pipeline reads and appends.
type Ledger interface {
	Append(record *entities.MigrationRecord) error
	FindBySource(runID string, kind entities.EntityKind, account, sourceID string) (*entities.MigrationRecord, error)
	ListByRun(runID string, kind entities.EntityKind) ([]entities.MigrationRecord, error)
}
