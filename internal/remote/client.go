// Package remote talks to the order-persistence service that is authoritative
// for submitted orders. Every call is a single attempt bounded by the
// configured timeout; callers fall back to the local ledger on any error.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logger"
)

var (
	// ErrRemoteDisabled is returned by every call when no base URL is configured.
	ErrRemoteDisabled = errors.New("remote order service disabled")
	// ErrUnavailable covers transport failures and unexpected status codes.
	ErrUnavailable = errors.New("remote order service unavailable")
	// ErrRejected means the service answered but did not accept the order.
	ErrRejected = errors.New("remote order service rejected order")
)

const maxResponseSize = 1 << 20

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	log        *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     cfg.APIKey,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.OrNop(log).Named("remote"),
	}
}

// Enabled reports whether a base URL is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// CreateOrder submits o and returns the id the service assigned to it.
func (c *Client) CreateOrder(ctx context.Context, o domain.Order) (string, error) {
	body, err := json.Marshal(FromDomain(o))
	if err != nil {
		return "", fmt.Errorf("encode order: %w", err)
	}
	raw, status, err := c.do(ctx, http.MethodPost, "/orders", body)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return "", fmt.Errorf("%w: POST /orders returned %d", ErrUnavailable, status)
	}
	var resp CreateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("%w: decode create response: %v", ErrUnavailable, err)
	}
	if !resp.Success {
		return "", fmt.Errorf("%w: %s", ErrRejected, resp.Error)
	}
	if strings.TrimSpace(resp.OrderID) == "" {
		return "", fmt.Errorf("%w: empty order id", ErrRejected)
	}
	return resp.OrderID, nil
}

// GetOrder fetches one order. A 404 maps to domain.ErrNotFound.
func (c *Client) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	raw, status, err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil)
	if err != nil {
		return domain.Order{}, err
	}
	switch {
	case status == http.StatusNotFound:
		return domain.Order{}, domain.ErrNotFound
	case status != http.StatusOK:
		return domain.Order{}, fmt.Errorf("%w: GET /orders/%s returned %d", ErrUnavailable, orderID, status)
	}
	var rec Order
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Order{}, fmt.Errorf("%w: decode order: %v", ErrUnavailable, err)
	}
	if rec.OrderID == "" {
		return domain.Order{}, domain.ErrNotFound
	}
	return rec.ToDomain(), nil
}

// ListUserOrders returns up to limit orders placed by userID.
func (c *Client) ListUserOrders(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	path := "/users/" + url.PathEscape(userID) + "/orders"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	raw, status, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: GET %s returned %d", ErrUnavailable, path, status)
	}
	var resp listResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode order list: %v", ErrUnavailable, err)
	}
	out := make([]domain.Order, 0, len(resp.Orders))
	for _, rec := range resp.Orders {
		if rec.OrderID == "" {
			continue
		}
		out = append(out, rec.ToDomain())
	}
	return out, nil
}

// UpdateOrderStatus asks the service to move an order to status and returns
// the stored result. 404 maps to domain.ErrNotFound; 400 and 409 mean the
// service refused the transition and map to ErrRejected.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error) {
	body, err := json.Marshal(StatusRequest{Status: string(status)})
	if err != nil {
		return domain.Order{}, fmt.Errorf("encode status: %w", err)
	}
	path := "/orders/" + url.PathEscape(orderID) + "/status"
	raw, code, err := c.do(ctx, http.MethodPatch, path, body)
	if err != nil {
		return domain.Order{}, err
	}
	switch code {
	case http.StatusOK:
	case http.StatusNotFound:
		return domain.Order{}, domain.ErrNotFound
	case http.StatusBadRequest, http.StatusConflict:
		return domain.Order{}, fmt.Errorf("%w: PATCH %s returned %d", ErrRejected, path, code)
	default:
		return domain.Order{}, fmt.Errorf("%w: PATCH %s returned %d", ErrUnavailable, path, code)
	}
	var rec Order
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Order{}, fmt.Errorf("%w: decode order: %v", ErrUnavailable, err)
	}
	return rec.ToDomain(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, int, error) {
	if !c.Enabled() {
		return nil, 0, ErrRemoteDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	c.log.Debug("remote call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(started)))
	return raw, resp.StatusCode, nil
}
