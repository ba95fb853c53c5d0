package migration

import (
	"encoding/json"
	"fmt"

	"github.com/storelift/migrator/internal/catalog"
	"github.com/storelift/migrator/internal/entities"
)

// Context is the state carried forward between pipeline steps. Each
// step receives the context produced by the previous one and returns an
// updated value; steps never share mutable state.
type Context struct {
	Run *entities.ImportRun

	// SourceAccount is the resolved account runs read from; it keys
	// every ledger record the steps append.
	SourceAccount string

	// source is the catalog client resolved for this run.
	source catalog.Source

	// Subtree is the category subtree selected for this run.
	Subtree []catalog.Category

	// Per-kind identifier maps populated as steps complete.
	Brands         *IdentifierMap
	Categories     *IdentifierMap
	Products       *IdentifierMap
	Skus           *IdentifierMap
	Specifications *IdentifierMap

	// SkuIDs is the list of SKU ids discovered during the product step.
	SkuIDs []string
}

// newRunContext builds the initial context for one pipeline execution.
func newRunContext(run *entities.ImportRun, source catalog.Source, sourceAccount string) (Context, error) {
	rc := Context{
		Run:            run,
		source:         source,
		SourceAccount:  sourceAccount,
		Brands:         NewIdentifierMap(entities.EntityKindBrand),
		Categories:     NewIdentifierMap(entities.EntityKindCategory),
		Products:       NewIdentifierMap(entities.EntityKindProduct),
		Skus:           NewIdentifierMap(entities.EntityKindSku),
		Specifications: NewIdentifierMap("specification"),
	}

	if run.CategoryTree != "" {
		if err := json.Unmarshal([]byte(run.CategoryTree), &rc.Subtree); err != nil {
			return Context{}, fmt.Errorf("failed to parse selected category tree: %w", err)
		}
	}
	if run.DerivedSkuIDs != "" {
		if err := json.Unmarshal([]byte(run.DerivedSkuIDs), &rc.SkuIDs); err != nil {
			return Context{}, fmt.Errorf("failed to parse derived sku ids: %w", err)
		}
	}
	return rc, nil
}

// marshalJSON renders a ledger payload. Payloads are advisory audit
// data; an unmarshalable value degrades to an empty payload rather than
// failing the migration.
func marshalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// mapForKind returns the identifier map holding resolutions for one
// entity kind, or nil for kinds that have no map (price, stock).
func (rc Context) mapForKind(kind entities.EntityKind) *IdentifierMap {
	switch kind {
	case entities.EntityKindBrand:
		return rc.Brands
	case entities.EntityKindCategory:
		return rc.Categories
	case entities.EntityKindProduct:
		return rc.Products
	case entities.EntityKindSku:
		return rc.Skus
	}
	return nil
}
