package vtex

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/storelift/migrator/internal/catalog"
	"github.com/storelift/migrator/internal/entities"
)

// SourceClient reads catalog data from a source store account.
type SourceClient struct {
	*client
}

var _ catalog.Source = (*SourceClient)(nil)

// NewSource creates a read client for the given source account.
func NewSource(endpoint, account, token string, pageSize int) *SourceClient {
	return &SourceClient{client: newClient(endpoint, account, token, pageSize)}
}

// NewSourceFactory returns a per-run source resolver. Runs carrying
// their own account credentials get a dedicated client; runs using the
// default source share one client for the configured account. The
// returned account name keys the run's ledger records.
func NewSourceFactory(endpoint, account, token string, pageSize int) func(run *entities.ImportRun) (catalog.Source, string) {
	shared := NewSource(endpoint, account, token, pageSize)
	return func(run *entities.ImportRun) (catalog.Source, string) {
		if run.UseDefaultSource || run.SourceAccount == "" {
			return shared, account
		}
		return NewSource(endpoint, run.SourceAccount, run.SourceToken, pageSize), run.SourceAccount
	}
}

func (c *SourceClient) CategoryTree(ctx context.Context) ([]catalog.Category, error) {
	var tree []catalog.Category
	if err := c.do(ctx, http.MethodGet, "/api/catalog/category-tree", nil, nil, &tree); err != nil {
		return nil, fmt.Errorf("failed to fetch category tree: %w", err)
	}
	return tree, nil
}

func (c *SourceClient) Categories(ctx context.Context, ids []string) ([]catalog.Category, error) {
	categories := make([]catalog.Category, 0, len(ids))
	for _, id := range ids {
		var cat catalog.Category
		if err := c.do(ctx, http.MethodGet, "/api/catalog/categories/"+id, nil, nil, &cat); err != nil {
			return nil, fmt.Errorf("failed to fetch category %s: %w", id, err)
		}
		categories = append(categories, cat)
	}
	return categories, nil
}

func (c *SourceClient) Brands(ctx context.Context) ([]catalog.Brand, error) {
	var brands []catalog.Brand
	for page := 1; ; page++ {
		var batch []catalog.Brand
		if err := c.do(ctx, http.MethodGet, "/api/catalog/brands", c.pageQuery(page), nil, &batch); err != nil {
			return nil, fmt.Errorf("failed to fetch brands page %d: %w", page, err)
		}
		brands = append(brands, batch...)
		if len(batch) < c.pageSize {
			return brands, nil
		}
	}
}

// productPage is the wire shape of a product listing page.
type productPage struct {
	Items []struct {
		catalog.Product
		SkuIDs []string `json:"skuIds"`
	} `json:"items"`
	HasMore bool `json:"hasMore"`
}

func (c *SourceClient) Products(ctx context.Context, categoryIDs []string) (catalog.ProductsResult, error) {
	var result catalog.ProductsResult
	seen := make(map[string]bool)

	for _, categoryID := range categoryIDs {
		for page := 1; ; page++ {
			q := c.pageQuery(page)
			q.Set("categoryId", categoryID)

			var pageResult productPage
			if err := c.do(ctx, http.MethodGet, "/api/catalog/products", q, nil, &pageResult); err != nil {
				return catalog.ProductsResult{}, fmt.Errorf("failed to fetch products for category %s: %w", categoryID, err)
			}

			for _, item := range pageResult.Items {
				if seen[item.ID] {
					continue
				}
				seen[item.ID] = true
				result.Items = append(result.Items, item.Product)
				result.SkuIDs = append(result.SkuIDs, item.SkuIDs...)
			}
			if !pageResult.HasMore {
				break
			}
		}
	}
	return result, nil
}

func (c *SourceClient) ProductSpecifications(ctx context.Context, productID string) ([]catalog.Specification, error) {
	var specs []catalog.Specification
	if err := c.do(ctx, http.MethodGet, "/api/catalog/products/"+productID+"/specifications", nil, nil, &specs); err != nil {
		return nil, fmt.Errorf("failed to fetch specifications for product %s: %w", productID, err)
	}
	return specs, nil
}

func (c *SourceClient) Skus(ctx context.Context, ids []string) ([]catalog.Sku, error) {
	skus := make([]catalog.Sku, 0, len(ids))
	for _, id := range ids {
		var sku catalog.Sku
		if err := c.do(ctx, http.MethodGet, "/api/catalog/skus/"+id, nil, nil, &sku); err != nil {
			return nil, fmt.Errorf("failed to fetch sku %s: %w", id, err)
		}
		skus = append(skus, sku)
	}
	return skus, nil
}

func (c *SourceClient) SkuSpecifications(ctx context.Context, skuID string) ([]catalog.Specification, error) {
	var specs []catalog.Specification
	if err := c.do(ctx, http.MethodGet, "/api/catalog/skus/"+skuID+"/specifications", nil, nil, &specs); err != nil {
		return nil, fmt.Errorf("failed to fetch specifications for sku %s: %w", skuID, err)
	}
	return specs, nil
}

func (c *SourceClient) SkuImages(ctx context.Context, skuID string) ([]catalog.Image, error) {
	var images []catalog.Image
	if err := c.do(ctx, http.MethodGet, "/api/catalog/skus/"+skuID+"/images", nil, nil, &images); err != nil {
		return nil, fmt.Errorf("failed to fetch images for sku %s: %w", skuID, err)
	}
	return images, nil
}

func (c *SourceClient) Prices(ctx context.Context, skuIDs []string) ([]catalog.Price, error) {
	var prices []catalog.Price
	for _, chunk := range chunkIDs(skuIDs, c.pageSize) {
		q := url.Values{}
		q.Set("skuIds", strings.Join(chunk, ","))

		var batch []catalog.Price
		if err := c.do(ctx, http.MethodGet, "/api/pricing/prices", q, nil, &batch); err != nil {
			return nil, fmt.Errorf("failed to fetch prices: %w", err)
		}
		prices = append(prices, batch...)
	}
	return prices, nil
}

func (c *SourceClient) Inventories(ctx context.Context, skuIDs []string) ([]catalog.Inventory, error) {
	var inventories []catalog.Inventory
	for _, chunk := range chunkIDs(skuIDs, c.pageSize) {
		q := url.Values{}
		q.Set("skuIds", strings.Join(chunk, ","))

		var batch []catalog.Inventory
		if err := c.do(ctx, http.MethodGet, "/api/logistics/inventories", q, nil, &batch); err != nil {
			return nil, fmt.Errorf("failed to fetch inventories: %w", err)
		}
		inventories = append(inventories, batch...)
	}
	return inventories, nil
}

func chunkIDs(ids []string, size int) [][]string {
	if size <= 0 {
		size = defaultPageSize
	}
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
