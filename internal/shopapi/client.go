// Package shopapi is the HTTP client for the remote catalog/order
// service. It is the only component that leaves the process: everything
// above it sees plain ListProducts/SubmitOrder collaborator interfaces.
package shopapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jcmexdev/storefront/internal/basket"
	"github.com/jcmexdev/storefront/internal/catalog"
	"github.com/jcmexdev/storefront/internal/pkg/cache"
)

var (
	// ErrBadCatalogPayload reports a catalog response without the
	// expected {total, items} envelope.
	ErrBadCatalogPayload = errors.New("shopapi: malformed catalog response")

	// ErrBadOrderPayload reports an order response without an order ID.
	ErrBadOrderPayload = errors.New("shopapi: malformed order response")
)

const (
	catalogCacheTTL = 5 * time.Minute
	requestTimeout  = 10 * time.Second
)

// listResponse is the remote service's list envelope.
type listResponse struct {
	Total int               `json:"total"`
	Items []catalog.Product `json:"items"`
}

// Client talks to the shop backend. Product image paths are returned
// relative by the backend and prefixed with the CDN base URL here, so
// the rest of the system only ever sees absolute URLs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cdnURL     string
	cache      cache.Cache
	logger     *slog.Logger
}

// NewClient builds a client for the given base URL. The cache is used
// read-through for the product list; pass a memory cache when Redis is
// not configured.
func NewClient(baseURL, cdnURL string, c cache.Cache, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout:   requestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		cdnURL:  strings.TrimRight(cdnURL, "/"),
		cache:   c,
		logger:  logger,
	}
}

// ListProducts fetches the product list, serving from cache when a fresh
// copy exists. Cache failures are logged and treated as misses.
func (c *Client) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	cacheKey := c.cache.GenerateKey("catalog", "list")

	if cached, err := c.cache.Get(ctx, cacheKey); err != nil {
		c.logger.WarnContext(ctx, "catalog cache read failed", slog.Any("error", err))
	} else if cached != "" {
		var products []catalog.Product
		if err := json.Unmarshal([]byte(cached), &products); err == nil {
			return products, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable catalog cache entry")
	}

	body, err := c.get(ctx, "/product")
	if err != nil {
		return nil, err
	}

	var list listResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadCatalogPayload, err)
	}
	if list.Items == nil {
		return nil, ErrBadCatalogPayload
	}

	products := make([]catalog.Product, len(list.Items))
	for i, p := range list.Items {
		p.Image = c.imageURL(p.Image)
		products[i] = p
	}

	if encoded, err := json.Marshal(products); err == nil {
		if err := c.cache.Set(ctx, cacheKey, string(encoded), catalogCacheTTL); err != nil {
			c.logger.WarnContext(ctx, "catalog cache write failed", slog.Any("error", err))
		}
	}

	return products, nil
}

// SubmitOrder posts the order and returns the remote result. Network and
// server errors come back unwrapped beyond a short prefix; the basket
// store tags them for the checkout flow.
func (c *Client) SubmitOrder(ctx context.Context, req basket.OrderRequest) (basket.OrderResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return basket.OrderResult{}, fmt.Errorf("shopapi: encode order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/order", bytes.NewReader(payload))
	if err != nil {
		return basket.OrderResult{}, fmt.Errorf("shopapi: build order request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return basket.OrderResult{}, fmt.Errorf("shopapi: post order: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return basket.OrderResult{}, fmt.Errorf("shopapi: read order response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return basket.OrderResult{}, fmt.Errorf("shopapi: order rejected with status %d: %s", resp.StatusCode, truncate(body))
	}

	var result basket.OrderResult
	if err := json.Unmarshal(body, &result); err != nil {
		return basket.OrderResult{}, fmt.Errorf("%w: %w", ErrBadOrderPayload, err)
	}
	if result.ID == "" {
		return basket.OrderResult{}, ErrBadOrderPayload
	}
	return result, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("shopapi: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("shopapi: get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("shopapi: get %s: unexpected status %d", path, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// imageURL prefixes relative image paths with the CDN base URL.
func (c *Client) imageURL(image string) string {
	if image == "" || strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://") {
		return image
	}
	if !strings.HasPrefix(image, "/") {
		image = "/" + image
	}
	return c.cdnURL + image
}

func truncate(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
