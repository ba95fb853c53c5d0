package catalog

import (
	"context"

	"github.com/storelift/migrator/internal/entities"
)

// Source reads catalog data out of the account being migrated. All
// listing operations hide pagination from the caller.
type Source interface {
	// CategoryTree returns the full category tree of the account.
	CategoryTree(ctx context.Context) ([]Category, error)

	// Categories fetches full details for the given category ids.
	Categories(ctx context.Context, ids []string) ([]Category, error)

	// Brands returns every brand registered in the account.
	Brands(ctx context.Context) ([]Brand, error)

	// Products lists the products under the given categories and the
	// SKU ids discovered along the way.
	Products(ctx context.Context, categoryIDs []string) (ProductsResult, error)

	ProductSpecifications(ctx context.Context, productID string) ([]Specification, error)

	// Skus fetches full details for the given SKU ids.
	Skus(ctx context.Context, ids []string) ([]Sku, error)

	SkuSpecifications(ctx context.Context, skuID string) ([]Specification, error)

	// SkuImages returns the pictures attached to one SKU.
	SkuImages(ctx context.Context, skuID string) ([]Image, error)

	// Prices returns the price entries for the given SKU ids. SKUs
	// without a price entry are simply absent from the result.
	Prices(ctx context.Context, skuIDs []string) ([]Price, error)

	// Inventories returns stock positions for the given SKU ids.
	Inventories(ctx context.Context, skuIDs []string) ([]Inventory, error)
}

// Target writes catalog data into the account being migrated into.
type Target interface {
	CreateCategory(ctx context.Context, c Category) (Category, error)

	// CategoryTreeFlattened returns the current target category tree as
	// a flat list, used for name-collision detection.
	CategoryTreeFlattened(ctx context.Context) ([]Category, error)

	CreateBrand(ctx context.Context, b Brand) (Brand, error)

	// UpdateBrand is also the soft-delete vehicle: a rename plus
	// deactivation, since hard brand deletion is often rejected.
	UpdateBrand(ctx context.Context, id string, b Brand) error

	CreateProduct(ctx context.Context, p Product) (Product, error)
	UpdateProduct(ctx context.Context, id string, p Product) (Product, error)

	// ProductByRefID returns nil when no product carries the ref id.
	ProductByRefID(ctx context.Context, refID string) (*Product, error)

	AssociateProductSpecifications(ctx context.Context, productID string, specs []Specification) error

	CreateSku(ctx context.Context, s Sku) (Sku, error)
	UpdateSku(ctx context.Context, id string, s Sku) (Sku, error)

	// SkuByRefID returns nil when no SKU carries the ref id.
	SkuByRefID(ctx context.Context, refID string) (*Sku, error)

	AssociateSkuSpecifications(ctx context.Context, skuID string, specs []Specification) error

	CreateSkuImage(ctx context.Context, skuID string, img Image) error

	CreatePrice(ctx context.Context, skuID string, p PriceWrite) error

	CreateInventory(ctx context.Context, skuID, warehouseID string, inv InventoryWrite) error

	DeleteEntity(ctx context.Context, kind entities.EntityKind, id string) error
}
