package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"shopmate/internal/reliability"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(HTTPConfig{
		BaseURL:           srv.URL,
		APIKey:            "test-key",
		RequestsPerMinute: 100,
	})
}

func TestSearchByUPCNormalizesFlatShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apiKey") != "test-key" {
			t.Errorf("apiKey missing from request: %s", r.URL.String())
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"products":[{
			"sku": 6501902,
			"name": "55\" 4K Smart TV",
			"salePrice": 399.99,
			"regularPrice": 499.99,
			"onSale": true,
			"manufacturer": "Novavision",
			"categoryPath": [{"id":"cat00000","name":"All"},{"id":"abcat0101000","name":"TVs"}]
		}]}`))
	})

	items, err := c.SearchByUPC(context.Background(), "0123456789")
	if err != nil {
		t.Fatalf("SearchByUPC() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	it := items[0]
	if it.ID != "6501902" || it.Brand != "Novavision" {
		t.Fatalf("unexpected item: %+v", it)
	}
	if it.Category != "TVs" || it.CategoryID != "abcat0101000" {
		t.Fatalf("category should come from the path leaf: %+v", it)
	}
	if price, ok := it.CurrentPrice(); !ok || price != 399.99 {
		t.Fatalf("CurrentPrice() = %v, %v; want 399.99 from sale price", price, ok)
	}
}

func TestAlsoViewedNormalizesNestedShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{
			"sku": 6418599,
			"names": {"title": "Wireless Headphones"},
			"prices": {"current": 249.99, "regular": 279.99},
			"images": {"standard": "https://img.example/6418599.jpg"}
		}]}`))
	})

	items, err := c.AlsoViewed(context.Background(), "6501902")
	if err != nil {
		t.Fatalf("AlsoViewed() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	it := items[0]
	if it.ID != "6418599" || it.Name != "Wireless Headphones" {
		t.Fatalf("unexpected item: %+v", it)
	}
	if price, ok := it.CurrentPrice(); !ok || price != 249.99 {
		t.Fatalf("CurrentPrice() = %v, %v; want 249.99", price, ok)
	}
	if orig, ok := it.OriginalPrice(); !ok || orig != 279.99 {
		t.Fatalf("OriginalPrice() = %v, %v; want 279.99", orig, ok)
	}
}

func TestUpstreamErrorBecomesTransportError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := c.Similar(context.Background(), "6501902")
	var te *reliability.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want TransportError", err)
	}
	if te.Status != http.StatusTooManyRequests {
		t.Fatalf("Status = %d, want 429", te.Status)
	}
	if !te.Retryable() {
		t.Fatalf("429 should classify as retryable")
	}
}

func TestGetByIDNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such sku", http.StatusNotFound)
	})

	_, err := c.GetByID(context.Background(), "999")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestCurrentPriceFallbackOrder(t *testing.T) {
	sale, regular := 10.0, 20.0
	cases := []struct {
		name string
		item Item
		want float64
		ok   bool
	}{
		{"sale wins", Item{SalePrice: &sale, RegularPrice: &regular}, 10.0, true},
		{"regular fallback", Item{RegularPrice: &regular}, 20.0, true},
		{"absent", Item{}, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.item.CurrentPrice()
			if got != tc.want || ok != tc.ok {
				t.Fatalf("CurrentPrice() = %v, %v; want %v, %v", got, ok, tc.want, tc.ok)
			}
		})
	}
}
