package migration

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/storelift/migrator/internal/catalog"
	"github.com/storelift/migrator/internal/entities"
)

// fakeSource serves a fixed catalog snapshot.
type fakeSource struct {
	tree         []catalog.Category
	categories   map[string]catalog.Category
	brands       []catalog.Brand
	products     catalog.ProductsResult
	productSpecs map[string][]catalog.Specification
	skus         map[string]catalog.Sku
	skuSpecs     map[string][]catalog.Specification
	skuImages    map[string][]catalog.Image
	prices       []catalog.Price
	inventories  []catalog.Inventory
}

func (s *fakeSource) CategoryTree(context.Context) ([]catalog.Category, error) {
	return s.tree, nil
}

func (s *fakeSource) Categories(_ context.Context, ids []string) ([]catalog.Category, error) {
	out := make([]catalog.Category, 0, len(ids))
	for _, id := range ids {
		cat, ok := s.categories[id]
		if !ok {
			return nil, fmt.Errorf("unknown category %s", id)
		}
		out = append(out, cat)
	}
	return out, nil
}

func (s *fakeSource) Brands(context.Context) ([]catalog.Brand, error) {
	return s.brands, nil
}

func (s *fakeSource) Products(context.Context, []string) (catalog.ProductsResult, error) {
	return s.products, nil
}

func (s *fakeSource) ProductSpecifications(_ context.Context, id string) ([]catalog.Specification, error) {
	return s.productSpecs[id], nil
}

func (s *fakeSource) Skus(_ context.Context, ids []string) ([]catalog.Sku, error) {
	out := make([]catalog.Sku, 0, len(ids))
	for _, id := range ids {
		sku, ok := s.skus[id]
		if !ok {
			return nil, fmt.Errorf("unknown sku %s", id)
		}
		out = append(out, sku)
	}
	return out, nil
}

func (s *fakeSource) SkuSpecifications(_ context.Context, id string) ([]catalog.Specification, error) {
	return s.skuSpecs[id], nil
}

func (s *fakeSource) SkuImages(_ context.Context, id string) ([]catalog.Image, error) {
	return s.skuImages[id], nil
}

func (s *fakeSource) Prices(context.Context, []string) ([]catalog.Price, error) {
	return s.prices, nil
}

func (s *fakeSource) Inventories(context.Context, []string) ([]catalog.Inventory, error) {
	return s.inventories, nil
}

// fakeTarget records every write and hands out sequential ids.
type fakeTarget struct {
	mu     sync.Mutex
	nextID int

	existingCategories []catalog.Category

	createCategoryCalls  int
	createBrandCalls     int
	createProductCalls   int
	updateProductCalls   int
	createSkuCalls       int
	updateSkuCalls       int
	priceCalls           int
	inventoryCalls       int
	productSpecCalls     int
	skuSpecCalls         int
	imageCalls           int
	createdImages        []catalog.Image
	brandUpdates         []string
	failCreateSku        error
	createdSkus          []catalog.Sku
	createdInventories   []catalog.InventoryWrite
	createdPrices        []catalog.PriceWrite
	productsByRef        map[string]catalog.Product
	skusByRef            map[string]catalog.Sku
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		productsByRef: make(map[string]catalog.Product),
		skusByRef:     make(map[string]catalog.Sku),
	}
}

func (t *fakeTarget) newID(prefix string) string {
	t.nextID++
	return fmt.Sprintf("%s-%d", prefix, t.nextID)
}

func (t *fakeTarget) CreateCategory(_ context.Context, c catalog.Category) (catalog.Category, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.createCategoryCalls++
	c.ID = t.newID("tcat")
	t.existingCategories = append(t.existingCategories, c)
	return c, nil
}

func (t *fakeTarget) CategoryTreeFlattened(context.Context) ([]catalog.Category, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]catalog.Category(nil), t.existingCategories...), nil
}

func (t *fakeTarget) CreateBrand(_ context.Context, b catalog.Brand) (catalog.Brand, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.createBrandCalls++
	b.ID = t.newID("tbrand")
	return b, nil
}

func (t *fakeTarget) UpdateBrand(_ context.Context, id string, b catalog.Brand) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.brandUpdates = append(t.brandUpdates, id+":"+b.Name)
	if strings.Contains(b.Name, "FAIL") {
		return fmt.Errorf("remote rejected brand update")
	}
	return nil
}

func (t *fakeTarget) CreateProduct(_ context.Context, p catalog.Product) (catalog.Product, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.createProductCalls++
	p.ID = t.newID("tprod")
	t.productsByRef[p.RefID] = p
	return p, nil
}

func (t *fakeTarget) UpdateProduct(_ context.Context, id string, p catalog.Product) (catalog.Product, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.updateProductCalls++
	p.ID = id
	t.productsByRef[p.RefID] = p
	return p, nil
}

func (t *fakeTarget) ProductByRefID(_ context.Context, refID string) (*catalog.Product, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.productsByRef[refID]; ok {
		return &p, nil
	}
	return nil, nil
}

func (t *fakeTarget) AssociateProductSpecifications(_ context.Context, _ string, _ []catalog.Specification) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.productSpecCalls++
	return nil
}

func (t *fakeTarget) CreateSku(_ context.Context, s catalog.Sku) (catalog.Sku, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failCreateSku != nil {
		return catalog.Sku{}, t.failCreateSku
	}
	t.createSkuCalls++
	s.ID = t.newID("tsku")
	t.skusByRef[s.RefID] = s
	t.createdSkus = append(t.createdSkus, s)
	return s, nil
}

func (t *fakeTarget) UpdateSku(_ context.Context, id string, s catalog.Sku) (catalog.Sku, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.updateSkuCalls++
	s.ID = id
	t.skusByRef[s.RefID] = s
	return s, nil
}

func (t *fakeTarget) SkuByRefID(_ context.Context, refID string) (*catalog.Sku, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.skusByRef[refID]; ok {
		return &s, nil
	}
	return nil, nil
}

func (t *fakeTarget) AssociateSkuSpecifications(_ context.Context, _ string, _ []catalog.Specification) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.skuSpecCalls++
	return nil
}

func (t *fakeTarget) CreateSkuImage(_ context.Context, _ string, img catalog.Image) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.imageCalls++
	t.createdImages = append(t.createdImages, img)
	return nil
}

func (t *fakeTarget) CreatePrice(_ context.Context, _ string, p catalog.PriceWrite) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.priceCalls++
	t.createdPrices = append(t.createdPrices, p)
	return nil
}

func (t *fakeTarget) CreateInventory(_ context.Context, _, _ string, inv catalog.InventoryWrite) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inventoryCalls++
	t.createdInventories = append(t.createdInventories, inv)
	return nil
}

func (t *fakeTarget) DeleteEntity(_ context.Context, _ entities.EntityKind, _ string) error {
	return nil
}

func (t *fakeTarget) createCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.createCategoryCalls + t.createBrandCalls + t.createProductCalls +
		t.createSkuCalls + t.priceCalls + t.inventoryCalls + t.imageCalls
}
