// Package catalog defines the contracts the migration engine requires
// from the source and target store catalog APIs, plus the data shapes
// exchanged with them. Concrete HTTP clients live in subpackages.
package catalog

// Category is a node of a store's category tree.
type Category struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	FatherCategoryID string     `json:"fatherCategoryId,omitempty"`
	Title            string     `json:"title,omitempty"`
	Description      string     `json:"description,omitempty"`
	Keywords         string     `json:"keywords,omitempty"`
	IsActive         bool       `json:"isActive"`
	Children         []Category `json:"children,omitempty"`
}

// Brand is a product brand registered in a store account.
type Brand struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Text     string `json:"text,omitempty"`
	Keywords string `json:"keywords,omitempty"`
	IsActive bool   `json:"isActive"`
}

// Product groups one or more sellable SKUs.
type Product struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DepartmentID string `json:"departmentId,omitempty"`
	CategoryID   string `json:"categoryId,omitempty"`
	BrandID      string `json:"brandId,omitempty"`
	LinkID       string `json:"linkId,omitempty"`
	RefID        string `json:"refId,omitempty"`
	Title        string `json:"title,omitempty"`
	Description  string `json:"description,omitempty"`
	IsVisible    bool   `json:"isVisible"`
	IsActive     bool   `json:"isActive"`
}

// Sku is one sellable variation of a product.
type Sku struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	RefID     string `json:"refId,omitempty"`
	EAN       string `json:"ean,omitempty"`
	IsActive  bool   `json:"isActive"`

	// ActivateIfPossible carries the source active flag while the SKU
	// itself is created inactive; activation is deferred until price
	// and stock data are settled.
	ActivateIfPossible bool `json:"activateIfPossible"`
}

// Image is one picture attached to a SKU.
type Image struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	URL    string `json:"url"`
	IsMain bool   `json:"isMain"`
}

// Specification is a name/value attribute attached to a product or SKU.
type Specification struct {
	FieldID string   `json:"fieldId,omitempty"`
	Name    string   `json:"name"`
	Values  []string `json:"values"`
}

// Price is the price entry of one SKU.
type Price struct {
	SkuID     string   `json:"skuId"`
	ListPrice *float64 `json:"listPrice,omitempty"`
	CostPrice *float64 `json:"costPrice,omitempty"`
}

// Inventory is the stock position of one SKU in one warehouse.
type Inventory struct {
	SkuID                string `json:"skuId"`
	WarehouseID          string `json:"warehouseId,omitempty"`
	TotalQuantity        int    `json:"totalQuantity"`
	HasUnlimitedQuantity bool   `json:"hasUnlimitedQuantity"`
}

// InventoryWrite is the stock body pushed to the target warehouse.
type InventoryWrite struct {
	Quantity          int  `json:"quantity"`
	UnlimitedQuantity bool `json:"unlimitedQuantity"`
}

// PriceWrite is the price body pushed to the target account.
type PriceWrite struct {
	ListPrice *float64 `json:"listPrice,omitempty"`
	BasePrice *float64 `json:"basePrice,omitempty"`
}

// ProductsResult is the product listing for a category subtree together
// with the SKU ids discovered while walking it.
type ProductsResult struct {
	Items  []Product
	SkuIDs []string
}

// FlattenCategories walks a category tree depth-first, parents before
// children, and returns the nodes as a flat list. Step order depends on
// parents appearing before their children so parent ids can be remapped
// as the list is processed.
func FlattenCategories(tree []Category) []Category {
	var flat []Category
	for _, node := range tree {
		children := node.Children
		node.Children = nil
		flat = append(flat, node)
		flat = append(flat, FlattenCategories(children)...)
	}
	return flat
}
