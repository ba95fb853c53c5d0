package entities

import (
	"strings"
	"time"
)

// RunStatus tracks the lifecycle of an import run.
type RunStatus string

const (
	RunStatusPending     RunStatus = "PENDING"
	RunStatusRunning     RunStatus = "RUNNING"
	RunStatusSuccess     RunStatus = "SUCCESS"
	RunStatusError       RunStatus = "ERROR"
	RunStatusToBeDeleted RunStatus = "TO_BE_DELETED"
	RunStatusDeleting    RunStatus = "DELETING"
)

// StockPolicy decides how target inventory quantities are derived.
type StockPolicy string

const (
	StockPolicyKeepSource  StockPolicy = "KEEP_SOURCE"
	StockPolicyUnlimited   StockPolicy = "UNLIMITED"
	StockPolicyToBeDefined StockPolicy = "TO_BE_DEFINED"
)

// ImportRun describes one end-to-end catalog migration execution.
//
// At most one run may be in RUNNING or DELETING status at any time;
// the orchestrator enforces this before claiming a run.
type ImportRun struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RequestedBy string `gorm:"size:255" json:"requested_by"`

	// Source account settings. When UseDefaultSource is set the
	// configured default account credentials are used instead.
	SourceAccount    string `gorm:"index;size:100" json:"source_account"`
	SourceToken      string `gorm:"size:512" json:"-"`
	UseDefaultSource bool   `json:"use_default_source"`

	// CategoryTree holds the selected source category subtree as JSON.
	CategoryTree string `gorm:"type:text" json:"category_tree,omitempty"`

	// DerivedSkuIDs holds the SKU ids discovered during the product
	// step as JSON, so a resumed run can fast-forward past the product
	// step and still know which SKUs to migrate.
	DerivedSkuIDs string `gorm:"type:text" json:"-"`

	ImportImages      bool        `json:"import_images"`
	ImportPrices      bool        `json:"import_prices"`
	StockPolicy       StockPolicy `gorm:"size:20" json:"stock_policy"`
	StockValue        int         `json:"stock_value"`
	TargetWarehouseID string      `gorm:"size:100" json:"target_warehouse_id"`

	// Per-kind source totals, persisted before each step starts
	// processing so progress can be computed mid-flight.
	SourceBrandsTotal     int `json:"source_brands_total"`
	SourceCategoriesTotal int `json:"source_categories_total"`
	SourceProductsTotal   int `json:"source_products_total"`
	SourceSkusTotal       int `json:"source_skus_total"`
	SourcePricesTotal     int `json:"source_prices_total"`
	SourceStocksTotal     int `json:"source_stocks_total"`

	Status        RunStatus  `gorm:"index;size:20" json:"status"`
	CurrentEntity EntityKind `gorm:"size:20" json:"current_entity,omitempty"`
	ErrorMessage  string     `gorm:"type:text" json:"error_message,omitempty"`
	FailedEntity  EntityKind `gorm:"size:20" json:"failed_entity,omitempty"`

	// CompletedSteps is a comma-joined list of entity kinds whose step
	// finished in an earlier dispatch of this run. It distinguishes
	// "step already done" from "step had zero applicable items" so a
	// resume never re-queries the source for finished steps.
	CompletedSteps string `gorm:"size:255" json:"completed_steps,omitempty"`
}

// StepCompleted reports whether the step for the given kind finished
// during a previous dispatch of this run.
func (r *ImportRun) StepCompleted(kind EntityKind) bool {
	if r.CompletedSteps == "" {
		return false
	}
	for _, s := range strings.Split(r.CompletedSteps, ",") {
		if EntityKind(s) == kind {
			return true
		}
	}
	return false
}

// Terminal reports whether the run reached a final pipeline state.
func (r *ImportRun) Terminal() bool {
	return r.Status == RunStatusSuccess || r.Status == RunStatusError
}

// SourceTotal returns the persisted source total for one entity kind.
func (r *ImportRun) SourceTotal(kind EntityKind) int {
	switch kind {
	case EntityKindBrand:
		return r.SourceBrandsTotal
	case EntityKindCategory:
		return r.SourceCategoriesTotal
	case EntityKindProduct:
		return r.SourceProductsTotal
	case EntityKindSku:
		return r.SourceSkusTotal
	case EntityKindPrice:
		return r.SourcePricesTotal
	case EntityKindStock:
		return r.SourceStocksTotal
	}
	return 0
}
