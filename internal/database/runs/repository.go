// Package runs provides database operations over import runs.
package runs

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/storelift/migrator/internal/entities"
)

// ErrRunNotFound is returned when no run matches the given id.
var ErrRunNotFound = errors.New("import run not found")

// ErrRunActive is returned when a delete is requested for a run that is
// currently RUNNING or DELETING.
var ErrRunActive = errors.New("import run is active and cannot be deleted")

// Repository handles all import run database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new run repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new run in PENDING status.
func (r *Repository) Create(run *entities.ImportRun) error {
	run.Status = entities.RunStatusPending
	if err := r.db.Create(run).Error; err != nil {
		return fmt.Errorf("failed to create import run: %w", err)
	}
	return nil
}

// Get retrieves one run by id.
func (r *Repository) Get(id string) (*entities.ImportRun, error) {
	var run entities.ImportRun
	err := r.db.Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns all runs, newest first.
func (r *Repository) List() ([]entities.ImportRun, error) {
	var runs []entities.ImportRun
	err := r.db.Order("created_at DESC").Find(&runs).Error
	return runs, err
}

// OldestPending returns the oldest run still waiting to be claimed, or
// nil when none is pending.
func (r *Repository) OldestPending() (*entities.ImportRun, error) {
	var run entities.ImportRun
	err := r.db.Where("status = ?", entities.RunStatusPending).
		Order("created_at ASC").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// OldestDeletable returns the oldest run marked for deletion, or nil.
// DELETING rows are included so a delete cascade that failed partway
// through is retried on the next scanner tick instead of wedging.
func (r *Repository) OldestDeletable() (*entities.ImportRun, error) {
	var run entities.ImportRun
	err := r.db.Where("status IN ?", []entities.RunStatus{entities.RunStatusToBeDeleted, entities.RunStatusDeleting}).
		Order("created_at ASC").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// AnyActive reports whether any run is RUNNING or DELETING. The
// orchestrator consults this before claiming new work.
func (r *Repository) AnyActive() (bool, error) {
	var count int64
	err := r.db.Model(&entities.ImportRun{}).
		Where("status IN ?", []entities.RunStatus{entities.RunStatusRunning, entities.RunStatusDeleting}).
		Count(&count).Error
	return count > 0, err
}

// AnyRunning reports whether any run is RUNNING. The recovery scanner
// consults this, so a DELETING row left by a failed cascade never
// blocks the retry that would clean it up.
func (r *Repository) AnyRunning() (bool, error) {
	var count int64
	err := r.db.Model(&entities.ImportRun{}).
		Where("status = ?", entities.RunStatusRunning).
		Count(&count).Error
	return count > 0, err
}

// MarkRunning transitions a run into RUNNING.
func (r *Repository) MarkRunning(id string) error {
	return r.updateFields(id, map[string]any{"status": entities.RunStatusRunning})
}

// MarkSuccess finishes a run, clearing the current entity marker.
func (r *Repository) MarkSuccess(id string) error {
	return r.updateFields(id, map[string]any{
		"status":         entities.RunStatusSuccess,
		"current_entity": "",
	})
}

// MarkError records a pipeline failure together with the offending
// entity kind.
func (r *Repository) MarkError(id, message string, kind entities.EntityKind) error {
	return r.updateFields(id, map[string]any{
		"status":        entities.RunStatusError,
		"error_message": message,
		"failed_entity": kind,
	})
}

// ClearError wipes a previously recorded failure so a re-dispatched run
// can enter the pipeline again.
func (r *Repository) ClearError(id string) error {
	return r.updateFields(id, map[string]any{
		"error_message": "",
		"failed_entity": "",
	})
}

// SetCurrentEntity records which step is in flight.
func (r *Repository) SetCurrentEntity(id string, kind entities.EntityKind) error {
	return r.updateFields(id, map[string]any{"current_entity": kind})
}

// SetSourceTotal persists the source item count for one entity kind
// before the step starts processing, so progress reads correctly
// mid-flight.
func (r *Repository) SetSourceTotal(id string, kind entities.EntityKind, total int) error {
	var column string
	switch kind {
	case entities.EntityKindBrand:
		column = "source_brands_total"
	case entities.EntityKindCategory:
		column = "source_categories_total"
	case entities.EntityKindProduct:
		column = "source_products_total"
	case entities.EntityKindSku:
		column = "source_skus_total"
	case entities.EntityKindPrice:
		column = "source_prices_total"
	case entities.EntityKindStock:
		column = "source_stocks_total"
	default:
		return fmt.Errorf("unknown entity kind %q", kind)
	}
	return r.updateFields(id, map[string]any{column: total})
}

// SetDerivedSkuIDs stores the JSON list of SKU ids discovered during
// the product step.
func (r *Repository) SetDerivedSkuIDs(id, skuIDs string) error {
	return r.updateFields(id, map[string]any{"derived_sku_ids": skuIDs})
}

// AppendCompletedStep marks one step as finished for this run. Finished
// steps are skipped on re-dispatch even when they had zero items.
func (r *Repository) AppendCompletedStep(id string, kind entities.EntityKind) error {
	run, err := r.Get(id)
	if err != nil {
		return err
	}
	if run.StepCompleted(kind) {
		return nil
	}
	completed := string(kind)
	if run.CompletedSteps != "" {
		completed = run.CompletedSteps + "," + completed
	}
	return r.updateFields(id, map[string]any{"completed_steps": completed})
}

// ResetToPending returns a run to PENDING. This is the manual recovery
// path for rows left RUNNING by a crashed worker process.
func (r *Repository) ResetToPending(id string) error {
	return r.updateFields(id, map[string]any{"status": entities.RunStatusPending})
}

// RequestDelete transitions a non-active run into TO_BE_DELETED. A
// RUNNING or DELETING run is rejected with ErrRunActive.
func (r *Repository) RequestDelete(id string) error {
	run, err := r.Get(id)
	if err != nil {
		return err
	}
	if run.Status == entities.RunStatusRunning || run.Status == entities.RunStatusDeleting {
		return ErrRunActive
	}
	return r.updateFields(id, map[string]any{"status": entities.RunStatusToBeDeleted})
}

// MarkDeleting claims a TO_BE_DELETED run for the delete cascade.
func (r *Repository) MarkDeleting(id string) error {
	return r.updateFields(id, map[string]any{"status": entities.RunStatusDeleting})
}

// HardDelete removes the run row. Ledger records must be deleted first
// by the records repository.
func (r *Repository) HardDelete(id string) error {
	result := r.db.Where("id = ?", id).Delete(&entities.ImportRun{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, result.Error)
	}
	return nil
}

func (r *Repository) updateFields(id string, fields map[string]any) error {
	result := r.db.Model(&entities.ImportRun{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update run %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRunNotFound
	}
	return nil
}
