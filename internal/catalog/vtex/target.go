package vtex

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/storelift/migrator/internal/catalog"
	"github.com/storelift/migrator/internal/entities"
)

// TargetClient writes catalog data into the target store account.
type TargetClient struct {
	*client
}

var _ catalog.Target = (*TargetClient)(nil)

// NewTarget creates a write client for the given target account.
func NewTarget(endpoint, account, token string, pageSize int) *TargetClient {
	return &TargetClient{client: newClient(endpoint, account, token, pageSize)}
}

func (c *TargetClient) CreateCategory(ctx context.Context, cat catalog.Category) (catalog.Category, error) {
	var created catalog.Category
	if err := c.do(ctx, http.MethodPost, "/api/catalog/categories", nil, cat, &created); err != nil {
		return catalog.Category{}, fmt.Errorf("failed to create category %q: %w", cat.Name, err)
	}
	return created, nil
}

func (c *TargetClient) CategoryTreeFlattened(ctx context.Context) ([]catalog.Category, error) {
	var tree []catalog.Category
	if err := c.do(ctx, http.MethodGet, "/api/catalog/category-tree", nil, nil, &tree); err != nil {
		return nil, fmt.Errorf("failed to fetch target category tree: %w", err)
	}
	return catalog.FlattenCategories(tree), nil
}

func (c *TargetClient) CreateBrand(ctx context.Context, b catalog.Brand) (catalog.Brand, error) {
	var created catalog.Brand
	if err := c.do(ctx, http.MethodPost, "/api/catalog/brands", nil, b, &created); err != nil {
		return catalog.Brand{}, fmt.Errorf("failed to create brand %q: %w", b.Name, err)
	}
	return created, nil
}

func (c *TargetClient) UpdateBrand(ctx context.Context, id string, b catalog.Brand) error {
	if err := c.do(ctx, http.MethodPut, "/api/catalog/brands/"+id, nil, b, nil); err != nil {
		return fmt.Errorf("failed to update brand %s: %w", id, err)
	}
	return nil
}

func (c *TargetClient) CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	var created catalog.Product
	if err := c.do(ctx, http.MethodPost, "/api/catalog/products", nil, p, &created); err != nil {
		return catalog.Product{}, fmt.Errorf("failed to create product %q: %w", p.Name, err)
	}
	return created, nil
}

func (c *TargetClient) UpdateProduct(ctx context.Context, id string, p catalog.Product) (catalog.Product, error) {
	var updated catalog.Product
	if err := c.do(ctx, http.MethodPut, "/api/catalog/products/"+id, nil, p, &updated); err != nil {
		return catalog.Product{}, fmt.Errorf("failed to update product %s: %w", id, err)
	}
	return updated, nil
}

func (c *TargetClient) ProductByRefID(ctx context.Context, refID string) (*catalog.Product, error) {
	q := url.Values{}
	q.Set("refId", refID)

	var product catalog.Product
	err := c.do(ctx, http.MethodGet, "/api/catalog/products/by-ref", q, nil, &product)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up product by ref %q: %w", refID, err)
	}
	return &product, nil
}

func (c *TargetClient) AssociateProductSpecifications(ctx context.Context, productID string, specs []catalog.Specification) error {
	if err := c.do(ctx, http.MethodPost, "/api/catalog/products/"+productID+"/specifications", nil, specs, nil); err != nil {
		return fmt.Errorf("failed to associate specifications to product %s: %w", productID, err)
	}
	return nil
}

func (c *TargetClient) CreateSku(ctx context.Context, s catalog.Sku) (catalog.Sku, error) {
	var created catalog.Sku
	if err := c.do(ctx, http.MethodPost, "/api/catalog/skus", nil, s, &created); err != nil {
		return catalog.Sku{}, fmt.Errorf("failed to create sku %q: %w", s.Name, err)
	}
	return created, nil
}

func (c *TargetClient) UpdateSku(ctx context.Context, id string, s catalog.Sku) (catalog.Sku, error) {
	var updated catalog.Sku
	if err := c.do(ctx, http.MethodPut, "/api/catalog/skus/"+id, nil, s, &updated); err != nil {
		return catalog.Sku{}, fmt.Errorf("failed to update sku %s: %w", id, err)
	}
	return updated, nil
}

func (c *TargetClient) SkuByRefID(ctx context.Context, refID string) (*catalog.Sku, error) {
	q := url.Values{}
	q.Set("refId", refID)

	var sku catalog.Sku
	err := c.do(ctx, http.MethodGet, "/api/catalog/skus/by-ref", q, nil, &sku)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up sku by ref %q: %w", refID, err)
	}
	return &sku, nil
}

func (c *TargetClient) AssociateSkuSpecifications(ctx context.Context, skuID string, specs []catalog.Specification) error {
	if err := c.do(ctx, http.MethodPost, "/api/catalog/skus/"+skuID+"/specifications", nil, specs, nil); err != nil {
		return fmt.Errorf("failed to associate specifications to sku %s: %w", skuID, err)
	}
	return nil
}

func (c *TargetClient) CreateSkuImage(ctx context.Context, skuID string, img catalog.Image) error {
	if err := c.do(ctx, http.MethodPost, "/api/catalog/skus/"+skuID+"/images", nil, img, nil); err != nil {
		return fmt.Errorf("failed to attach image to sku %s: %w", skuID, err)
	}
	return nil
}

func (c *TargetClient) CreatePrice(ctx context.Context, skuID string, p catalog.PriceWrite) error {
	if err := c.do(ctx, http.MethodPut, "/api/pricing/prices/"+skuID, nil, p, nil); err != nil {
		return fmt.Errorf("failed to create price for sku %s: %w", skuID, err)
	}
	return nil
}

func (c *TargetClient) CreateInventory(ctx context.Context, skuID, warehouseID string, inv catalog.InventoryWrite) error {
	path := "/api/logistics/warehouses/" + warehouseID + "/skus/" + skuID + "/inventory"
	if err := c.do(ctx, http.MethodPut, path, nil, inv, nil); err != nil {
		return fmt.Errorf("failed to write inventory for sku %s: %w", skuID, err)
	}
	return nil
}

func (c *TargetClient) DeleteEntity(ctx context.Context, kind entities.EntityKind, id string) error {
	var path string
	switch kind {
	case entities.EntityKindCategory:
		path = "/api/catalog/categories/" + id
	case entities.EntityKindBrand:
		path = "/api/catalog/brands/" + id
	case entities.EntityKindProduct:
		path = "/api/catalog/products/" + id
	case entities.EntityKindSku:
		path = "/api/catalog/skus/" + id
	default:
		return fmt.Errorf("entity kind %s cannot be deleted remotely", kind)
	}
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", kind, id, err)
	}
	return nil
}
