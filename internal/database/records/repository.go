// Package records provides the migration ledger: one persisted record
// per entity pushed to the target account, keyed by
// (run, kind, source account, source id). Steps consult the ledger
// before every target-side write so resumption never duplicates
// entities.
package records

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/storelift/migrator/internal/catalog"
	"github.com/storelift/migrator/internal/entities"
)

// Repository handles all migration record database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new ledger repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Append persists one migration record. Callers look the record up via
// FindBySource first; Append is only reached after a successful
// target-side write.
func (r *Repository) Append(record *entities.MigrationRecord) error {
	if err := r.db.Create(record).Error; err != nil {
		return fmt.Errorf("failed to append migration record for %s %s: %w", record.EntityKind, record.SourceID, err)
	}
	return nil
}

// FindBySource returns the record for one migrated entity, or nil when
// the entity was never pushed.
func (r *Repository) FindBySource(runID string, kind entities.EntityKind, account, sourceID string) (*entities.MigrationRecord, error) {
	var record entities.MigrationRecord
	err := r.db.Where(
		"run_id = ? AND entity_kind = ? AND source_account = ? AND source_id = ?",
		runID, kind, account, sourceID,
	).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByRun returns all records of a run, optionally filtered by kind.
func (r *Repository) ListByRun(runID string, kind entities.EntityKind) ([]entities.MigrationRecord, error) {
	query := r.db.Where("run_id = ?", runID)
	if kind != "" {
		query = query.Where("entity_kind = ?", kind)
	}
	var records []entities.MigrationRecord
	err := query.Order("id ASC").Find(&records).Error
	return records, err
}

// CountsByKind returns how many records each entity kind has for a run.
func (r *Repository) CountsByKind(runID string) (map[entities.EntityKind]int, error) {
	var rows []struct {
		EntityKind entities.EntityKind
		Total      int
	}
	err := r.db.Model(&entities.MigrationRecord{}).
		Select("entity_kind, COUNT(*) as total").
		Where("run_id = ?", runID).
		Group("entity_kind").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[entities.EntityKind]int, len(rows))
	for _, row := range rows {
		counts[row.EntityKind] = row.Total
	}
	return counts, nil
}

// BrandSoftDeleter is the slice of the target catalog needed by the
// delete cascade.
type BrandSoftDeleter interface {
	UpdateBrand(ctx context.Context, id string, b catalog.Brand) error
}

// DeleteByRun removes every record of a run.
//
// Brand records get a best-effort soft-delete (rename + deactivate)
// against the target first, since hard brand deletion is commonly
// rejected by the remote API. Soft-delete failures are logged and
// swallowed: record removal must proceed regardless.
func (r *Repository) DeleteByRun(ctx context.Context, runID string, target BrandSoftDeleter) error {
	if target != nil {
		brands, err := r.ListByRun(runID, entities.EntityKindBrand)
		if err != nil {
			return fmt.Errorf("failed to list brand records for run %s: %w", runID, err)
		}
		for _, record := range brands {
			if record.TargetID == "" {
				continue
			}
			deleted := catalog.Brand{
				Name:     fmt.Sprintf("%s-DELETED-%d", record.Title, time.Now().Unix()),
				IsActive: false,
			}
			if err := target.UpdateBrand(ctx, record.TargetID, deleted); err != nil {
				log.Printf("[LEDGER] Soft-delete of brand %s failed, removing record anyway: %v", record.TargetID, err)
			}
		}
	}

	result := r.db.Where("run_id = ?", runID).Delete(&entities.MigrationRecord{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete records for run %s: %w", runID, result.Error)
	}
	log.Printf("[LEDGER] Deleted %d migration records for run %s", result.RowsAffected, runID)
	return nil
}
