// Package marketplace is the REST collaborator for the remote marketplace.
// The wire protocol here is a minimal JSON envelope; request signing is
// intentionally out of scope.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"marketsync/internal/logger"
	"marketsync/internal/models"

	"github.com/cenkalti/backoff/v5"
)

// ErrMissingCredentials aborts a job before any phase runs.
var ErrMissingCredentials = errors.New("marketplace credentials not configured")

// OrderFilter narrows an order fetch.
type OrderFilter struct {
	ParentStatus int
	Since        time.Time
}

// Client is the collaborator interface the workflow phases consume.
// Push operations must be idempotent absolute-target calls: a group may be
// re-pushed after a crash between push and local mark-as-synced.
type Client interface {
	Validate() error
	FetchOrders(ctx context.Context, f OrderFilter) ([]models.Order, error)
	FetchProducts(ctx context.Context) ([]models.Product, error)
	PushStock(ctx context.Context, goodsID string, items []models.SyncDelta) error
	PushTracking(ctx context.Context, carrier string, orders []models.Order) error
}

// Config carries the REST credentials and endpoint.
type Config struct {
	AppKey      string
	AppSecret   string
	AccessToken string
	Endpoint    string
}

// HTTPClient talks to the marketplace REST API with bounded exponential
// retry on transient failures. 4xx responses are permanent.
type HTTPClient struct {
	cfg      Config
	http     *http.Client
	log      *logger.Logger
	maxTries uint
}

var _ Client = (*HTTPClient)(nil)

const (
	requestTimeout  = 30 * time.Second
	defaultMaxTries = 4
)

func NewHTTPClient(cfg Config, log *logger.Logger) *HTTPClient {
	return &HTTPClient{
		cfg:      cfg,
		http:     &http.Client{Timeout: requestTimeout},
		log:      log,
		maxTries: defaultMaxTries,
	}
}

// Validate reports whether all credentials are present.
func (c *HTTPClient) Validate() error {
	if c.cfg.AppKey == "" || c.cfg.AppSecret == "" || c.cfg.AccessToken == "" || c.cfg.Endpoint == "" {
		return ErrMissingCredentials
	}
	return nil
}

// envelope is the generic response wrapper the API returns.
type envelope struct {
	Success  bool            `json:"success"`
	ErrorMsg string          `json:"error_msg,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
}

// FetchOrders pulls orders matching the filter.
func (c *HTTPClient) FetchOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	payload := map[string]any{
		"type":                "order.list.get",
		"parent_order_status": f.ParentStatus,
		"create_after":        f.Since.UTC().Unix(),
	}
	raw, err := c.call(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("fetch orders: %w", err)
	}

	var result struct {
		Orders []models.Order `json:"orders"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode order list: %w", err)
	}
	return result.Orders, nil
}

// FetchProducts pulls the SKU catalog.
func (c *HTTPClient) FetchProducts(ctx context.Context) ([]models.Product, error) {
	raw, err := c.call(ctx, map[string]any{"type": "goods.sku.list.get"})
	if err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}

	var result struct {
		Products []models.Product `json:"products"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode product list: %w", err)
	}
	return result.Products, nil
}

// PushStock sets absolute stock targets for all SKUs of one goods id.
func (c *HTTPClient) PushStock(ctx context.Context, goodsID string, items []models.SyncDelta) error {
	skus := make([]map[string]any, 0, len(items))
	for _, it := range items {
		skus = append(skus, map[string]any{
			"sku_id":       it.SkuID,
			"stock_target": it.Target, // absolute value, safe to re-push
		})
	}
	_, err := c.call(ctx, map[string]any{
		"type":     "goods.quantity.update",
		"goods_id": goodsID,
		"skus":     skus,
	})
	if err != nil {
		return fmt.Errorf("push stock for goods %s: %w", goodsID, err)
	}
	return nil
}

// PushTracking confirms shipment tracking for all orders of one carrier.
func (c *HTTPClient) PushTracking(ctx context.Context, carrier string, orders []models.Order) error {
	shipments := make([]map[string]any, 0, len(orders))
	for _, o := range orders {
		shipments = append(shipments, map[string]any{
			"order_sn":        o.OrderSN,
			"tracking_number": o.TrackingNumber,
		})
	}
	_, err := c.call(ctx, map[string]any{
		"type":      "logistics.shipment.confirm",
		"carrier":   carrier,
		"shipments": shipments,
	})
	if err != nil {
		return fmt.Errorf("push tracking for carrier %s: %w", carrier, err)
	}
	return nil
}

// call posts one request, retrying transient failures with exponential
// backoff. A non-2xx status below 500 is permanent and never retried.
func (c *HTTPClient) call(ctx context.Context, payload map[string]any) (json.RawMessage, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	payload["app_key"] = c.cfg.AppKey
	payload["access_token"] = c.cfg.AccessToken
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	if c.log != nil {
		c.log.Debugw("marketplace_call", "type", payload["type"])
	}
	operation := func() (json.RawMessage, error) {
		return c.post(ctx, body)
	}
	raw, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.maxTries),
	)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *HTTPClient) post(ctx context.Context, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err // network error, retryable
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("marketplace %d: %s", resp.StatusCode, truncate(data))
	case resp.StatusCode >= 300:
		return nil, backoff.Permanent(fmt.Errorf("marketplace %d: %s", resp.StatusCode, truncate(data)))
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	if !env.Success {
		return nil, backoff.Permanent(fmt.Errorf("marketplace rejected request: %s", env.ErrorMsg))
	}
	return env.Result, nil
}

func truncate(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
