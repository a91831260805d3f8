package catalog

import (
	"context"
	"fmt"
	"strings"
)

// MockClient is a local fallback catalog used when no API key is configured.
// It serves a small fixed inventory so the rest of the system stays usable.
type MockClient struct {
	items []Item
}

func NewMockClient() *MockClient {
	price := func(v float64) *float64 { return &v }
	return &MockClient{
		items: []Item{
			{ID: "6501902", Name: "55\" 4K Smart TV", Category: "TVs", CategoryID: "cat-tv", Brand: "Novavision", SalePrice: price(399.99), RegularPrice: price(499.99), OnSale: true},
			{ID: "6418599", Name: "Wireless Noise Cancelling Headphones", Category: "Headphones", CategoryID: "cat-audio", Brand: "Auralux", RegularPrice: price(279.99)},
			{ID: "6447382", Name: "Portable Bluetooth Speaker", Category: "Speakers", CategoryID: "cat-audio", Brand: "Auralux", SalePrice: price(89.99), RegularPrice: price(119.99), OnSale: true},
			{ID: "6522177", Name: "14\" Ultrabook Laptop", Category: "Laptops", CategoryID: "cat-laptops", Brand: "Vertexa", RegularPrice: price(949.99)},
			{ID: "6533810", Name: "Mechanical Gaming Keyboard", Category: "Keyboards", CategoryID: "cat-laptops", Brand: "Vertexa", SalePrice: price(59.99), RegularPrice: price(79.99), OnSale: true},
		},
	}
}

func (m *MockClient) SearchByUPC(_ context.Context, code string) ([]Item, error) {
	if strings.TrimSpace(code) == "" {
		return nil, nil
	}
	// Any non-empty code resolves to the first mock item.
	return []Item{m.items[0]}, nil
}

func (m *MockClient) GetByID(_ context.Context, id string) (Item, error) {
	for _, it := range m.items {
		if it.ID == id {
			return it, nil
		}
	}
	return Item{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (m *MockClient) AlsoViewed(_ context.Context, id string) ([]Item, error) {
	return m.othersThan(id), nil
}

func (m *MockClient) Similar(_ context.Context, id string) ([]Item, error) {
	anchor, err := m.GetByID(context.Background(), id)
	if err != nil {
		return m.othersThan(id), nil
	}
	out := make([]Item, 0, len(m.items))
	for _, it := range m.items {
		if it.ID != id && it.CategoryID == anchor.CategoryID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *MockClient) MostViewedByCategory(_ context.Context, categoryID string, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = 10
	}
	out := make([]Item, 0, limit)
	for _, it := range m.items {
		if it.CategoryID == categoryID || it.Category == categoryID {
			out = append(out, it)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MockClient) othersThan(id string) []Item {
	out := make([]Item, 0, len(m.items))
	for _, it := range m.items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}
