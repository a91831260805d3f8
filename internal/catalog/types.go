package catalog

import "context"

// Item is the normalized catalog product shape. Upstream endpoints
// disagree about field layout; normalization happens in this package and
// nowhere else.
type Item struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Category     string   `json:"category,omitempty"`
	CategoryID   string   `json:"category_id,omitempty"`
	Brand        string   `json:"brand,omitempty"`
	SalePrice    *float64 `json:"sale_price,omitempty"`
	RegularPrice *float64 `json:"regular_price,omitempty"`
	OnSale       bool     `json:"on_sale"`
	ImageURL     string   `json:"image_url,omitempty"`
	ProductURL   string   `json:"product_url,omitempty"`
}

// CurrentPrice resolves the effective price: sale price if present,
// otherwise regular price, otherwise absent.
func (i Item) CurrentPrice() (float64, bool) {
	if i.SalePrice != nil {
		return *i.SalePrice, true
	}
	if i.RegularPrice != nil {
		return *i.RegularPrice, true
	}
	return 0, false
}

// OriginalPrice is the pre-discount price when one is known.
func (i Item) OriginalPrice() (float64, bool) {
	if i.RegularPrice != nil {
		return *i.RegularPrice, true
	}
	return 0, false
}

// Client is the catalog service contract. Every call may return an empty
// list or fail with a transport error; none is retried here.
type Client interface {
	SearchByUPC(ctx context.Context, code string) ([]Item, error)
	GetByID(ctx context.Context, id string) (Item, error)
	AlsoViewed(ctx context.Context, id string) ([]Item, error)
	Similar(ctx context.Context, id string) ([]Item, error)
	MostViewedByCategory(ctx context.Context, categoryID string, limit int) ([]Item, error)
}
