// Package catalog provides a typed client for the Fake Store API.
//
// The client is a thin REST wrapper: every method takes a context, performs
// one GET against the store, and decodes into the typed Product model.
// Consumers depend on their own small interfaces, not on *Client.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Rating holds the aggregate review score of a product.
type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// Product is one catalog entry as served by the store API.
type Product struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
	Rating      Rating  `json:"rating"`
}

// StatusError reports a non-2xx response from the store API.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog: %s returned status %d", e.URL, e.StatusCode)
}

// Client fetches products from the Fake Store API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a catalog client for the given base URL.
// A zero timeout falls back to 10 seconds.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Products returns the full catalog.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.get(ctx, "/products", &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Product returns a single product by ID.
func (c *Client) Product(ctx context.Context, id int) (*Product, error) {
	// The store returns an empty body with 200 for unknown IDs, so decode
	// failures and zero-ID results both mean "not found".
	req, err := c.newRequest(ctx, fmt.Sprintf("/products/%d", id))
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetching product %d: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: req.URL.String()}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("catalog: reading product %d: %w", id, err)
	}
	if len(body) == 0 || string(body) == "null" {
		return nil, nil
	}

	var p Product
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, nil
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

// Categories returns all category names known to the store.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := c.get(ctx, "/products/categories", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// ProductsByCategory returns all products in the given category.
// The category is sent verbatim; callers normalize first (see NormalizeCategory).
func (c *Client) ProductsByCategory(ctx context.Context, category string) ([]Product, error) {
	var products []Product
	path := "/products/category/" + url.PathEscape(category)
	if err := c.get(ctx, path, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) newRequest(ctx context.Context, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: building request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, path)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("catalog: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &StatusError{StatusCode: resp.StatusCode, URL: req.URL.String()}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("catalog: decoding %s: %w", path, err)
	}
	return nil
}
