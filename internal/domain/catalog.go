package domain

// CatalogItem is an authoritative product row. Read-only to this module.
type CatalogItem struct {
	ProductID    int64   `json:"product_id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Stock        int     `json:"stock"`
	CategoryName string  `json:"category_name"`
	ImageRef     *string `json:"image_ref,omitempty"`
}

// InStock reports whether the item can be displayed as available.
func (c CatalogItem) InStock() bool { return c.Stock > 0 }

// RankedCatalogItem is a catalog item joined with a ranking score.
type RankedCatalogItem struct {
	CatalogItem
	Score float64 `json:"score"`
}

// CatalogIndex maps product ids to catalog rows.
type CatalogIndex map[int64]CatalogItem

// IndexCatalog builds a lookup from an unordered set of rows.
func IndexCatalog(items []CatalogItem) CatalogIndex {
	idx := make(CatalogIndex, len(items))
	for _, it := range items {
		idx[it.ProductID] = it
	}
	return idx
}
