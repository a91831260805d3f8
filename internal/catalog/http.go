package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shopmate/internal/reliability"
)

const itemFields = "sku,name,salePrice,regularPrice,onSale,manufacturer,categoryPath,image,url"

// ErrNotFound is returned when the catalog has no item for the given id.
var ErrNotFound = errors.New("catalog item not found")

// HTTPClient talks to the catalog REST API and normalizes its two wire
// shapes (flat product records and nested recommendation records) into Item.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *RateLimiter
}

type HTTPConfig struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerMinute int
}

func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		client:  &http.Client{Timeout: timeout},
		limiter: NewRateLimiter(cfg.RequestsPerMinute, time.Minute),
	}
}

// flatProduct is the shape of search and direct-lookup responses.
type flatProduct struct {
	SKU          json.Number `json:"sku"`
	Name         string      `json:"name"`
	SalePrice    *float64    `json:"salePrice"`
	RegularPrice *float64    `json:"regularPrice"`
	OnSale       bool        `json:"onSale"`
	Manufacturer string      `json:"manufacturer"`
	CategoryPath []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"categoryPath"`
	Image string `json:"image"`
	URL   string `json:"url"`
}

// nestedProduct is the shape of recommendation endpoints.
type nestedProduct struct {
	SKU   json.Number `json:"sku"`
	Names struct {
		Title string `json:"title"`
	} `json:"names"`
	Prices struct {
		Current *float64 `json:"current"`
		Regular *float64 `json:"regular"`
	} `json:"prices"`
	Images struct {
		Standard string `json:"standard"`
	} `json:"images"`
	URL string `json:"url"`
}

func (p flatProduct) normalize() Item {
	item := Item{
		ID:           p.SKU.String(),
		Name:         p.Name,
		Brand:        p.Manufacturer,
		SalePrice:    p.SalePrice,
		RegularPrice: p.RegularPrice,
		OnSale:       p.OnSale,
		ImageURL:     p.Image,
		ProductURL:   p.URL,
	}
	// The leaf of the category path is the item's own category.
	if n := len(p.CategoryPath); n > 0 {
		item.Category = p.CategoryPath[n-1].Name
		item.CategoryID = p.CategoryPath[n-1].ID
	}
	return item
}

func (p nestedProduct) normalize() Item {
	return Item{
		ID:           p.SKU.String(),
		Name:         p.Names.Title,
		SalePrice:    p.Prices.Current,
		RegularPrice: p.Prices.Regular,
		ImageURL:     p.Images.Standard,
		ProductURL:   p.URL,
	}
}

func (c *HTTPClient) SearchByUPC(ctx context.Context, code string) ([]Item, error) {
	path := fmt.Sprintf("/v1/products(upc=%s)", url.PathEscape(strings.TrimSpace(code)))
	var res struct {
		Products []flatProduct `json:"products"`
	}
	if err := c.doGet(ctx, "search by upc", path, url.Values{"show": {itemFields}}, &res); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(res.Products))
	for _, p := range res.Products {
		items = append(items, p.normalize())
	}
	return items, nil
}

func (c *HTTPClient) GetByID(ctx context.Context, id string) (Item, error) {
	path := fmt.Sprintf("/v1/products/%s.json", url.PathEscape(strings.TrimSpace(id)))
	var p flatProduct
	if err := c.doGet(ctx, "get item", path, url.Values{"show": {itemFields}}, &p); err != nil {
		var te *reliability.TransportError
		if errors.As(err, &te) && te.Status == http.StatusNotFound {
			return Item{}, ErrNotFound
		}
		return Item{}, err
	}
	return p.normalize(), nil
}

func (c *HTTPClient) AlsoViewed(ctx context.Context, id string) ([]Item, error) {
	path := fmt.Sprintf("/beta/products/%s/alsoViewed", url.PathEscape(strings.TrimSpace(id)))
	return c.getNested(ctx, "also viewed", path, nil)
}

func (c *HTTPClient) Similar(ctx context.Context, id string) ([]Item, error) {
	path := fmt.Sprintf("/beta/products/%s/similar", url.PathEscape(strings.TrimSpace(id)))
	return c.getNested(ctx, "similar", path, nil)
}

func (c *HTTPClient) MostViewedByCategory(ctx context.Context, categoryID string, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = 10
	}
	path := fmt.Sprintf("/beta/products/mostViewed(categoryId=%s)", url.PathEscape(strings.TrimSpace(categoryID)))
	q := url.Values{"pageSize": {fmt.Sprintf("%d", limit)}}
	return c.getNested(ctx, "most viewed by category", path, q)
}

func (c *HTTPClient) getNested(ctx context.Context, op, path string, query url.Values) ([]Item, error) {
	var res struct {
		Results []nestedProduct `json:"results"`
	}
	if err := c.doGet(ctx, op, path, query, &res); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(res.Results))
	for _, p := range res.Results {
		items = append(items, p.normalize())
	}
	return items, nil
}

func (c *HTTPClient) doGet(ctx context.Context, op, path string, query url.Values, out any) error {
	if err := c.limiter.Acquire(ctx); err != nil {
		return &reliability.TransportError{Op: op, Err: err}
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("format", "json")
	if c.apiKey != "" {
		query.Set("apiKey", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return &reliability.TransportError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return &reliability.TransportError{Op: op, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return &reliability.TransportError{
			Op:     op,
			Status: res.StatusCode,
			Err:    fmt.Errorf("catalog http status %d: %s", res.StatusCode, string(body)),
		}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return &reliability.TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &reliability.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
