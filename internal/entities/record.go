package entities

import "time"

// EntityKind identifies one catalog entity type handled by the pipeline.
type EntityKind string

const (
	EntityKindBrand    EntityKind = "brand"
	EntityKindCategory EntityKind = "category"
	EntityKindProduct  EntityKind = "product"
	EntityKindSku      EntityKind = "sku"
	EntityKindPrice    EntityKind = "price"
	EntityKindStock    EntityKind = "stock"
)

// MigrationKinds lists the kinds in pipeline order.
var MigrationKinds = []EntityKind{
	EntityKindCategory,
	EntityKindProduct,
	EntityKindSku,
	EntityKindPrice,
	EntityKindStock,
}

// MigrationRecord is the ledger entry written once per entity that was
// successfully pushed to the target account. Uniqueness over
// (run, kind, source account, source id) is what makes resumption
// idempotent: a retry finds the existing record instead of creating a
// second target-side entity.
type MigrationRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	RunID         string     `gorm:"uniqueIndex:idx_record_source;index;size:36" json:"run_id"`
	EntityKind    EntityKind `gorm:"uniqueIndex:idx_record_source;size:20" json:"entity_kind"`
	SourceAccount string     `gorm:"uniqueIndex:idx_record_source;size:100" json:"source_account"`
	SourceID      string     `gorm:"uniqueIndex:idx_record_source;size:100" json:"source_id"`

	// TargetID is empty until the target-side entity is resolved.
	TargetID string `gorm:"index;size:100" json:"target_id,omitempty"`

	// Payload is the JSON body that was sent to (or resolved from) the
	// target system, kept for auditing and idempotent re-resolution.
	Payload string `gorm:"type:text" json:"payload,omitempty"`
	Title   string `gorm:"size:512" json:"title,omitempty"`

	// PathParams holds JSON path parameters needed to rebuild the
	// target-side request, e.g. the product id a specification was
	// associated to.
	PathParams string `gorm:"size:512" json:"path_params,omitempty"`
}
