// Package api is the thin HTTP layer between the storefront client and the
// backend REST API. It owns timeouts, the error taxonomy and the
// 401 -> refresh -> single retry contract; feature packages never see a raw
// *http.Response.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pantry-shop/internal/observability"
)

// HeaderSource supplies the session-identifying headers attached to every
// request. Implemented by the session manager.
type HeaderSource interface {
	Headers() map[string]string
}

// Refresher performs a credential refresh after a 401. Implemented by the
// session service; it is expected to de-duplicate concurrent refreshes and to
// wipe local credentials when the refresh itself fails.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Client calls the backend REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	headers    HeaderSource
	refresher  Refresher
}

// New creates a client. Every request inherits the given timeout; a timeout
// aborts the underlying request and surfaces as a timeout-classified error.
func New(baseURL string, timeout time.Duration, headers HeaderSource) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		headers:    headers,
	}
}

// SetRefresher wires the refresh hook. Set once at startup; requests issued
// without it fail with an auth error on 401 instead of retrying.
func (c *Client) SetRefresher(r Refresher) { c.refresher = r }

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// envelope is the uniform response wrapper the backend uses.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *wireError      `json:"error"`
}

type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Do issues a request with session headers and decodes the envelope's data
// into out (which may be nil). On a 401 it performs exactly one refresh
// attempt and, if that succeeds, exactly one transparent retry with fresh
// headers. A failed refresh surfaces as a session-expired error.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	return c.do(ctx, method, path, body, out, true)
}

// DoOnce is Do without the refresh-and-retry behavior. The auth endpoints
// themselves go through here so a failing refresh can never recurse.
func (c *Client) DoOnce(ctx context.Context, method, path string, body, out any) error {
	return c.do(ctx, method, path, body, out, false)
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, allowRefresh bool) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindDecode, Message: "encode request body", Err: err}
		}
	}

	err := c.attempt(ctx, method, path, payload, out)

	apiErr, ok := err.(*Error)
	if !ok || !allowRefresh || apiErr.Kind != KindAuth || c.refresher == nil {
		return err
	}

	// One refresh, one retry. The refresher wipes local credentials on
	// failure, so a session-expired result here is terminal for the caller.
	if refreshErr := c.refresher.Refresh(ctx); refreshErr != nil {
		return &Error{
			Kind:    KindSessionExpired,
			Status:  apiErr.Status,
			Message: "session expired, please log in again",
			Err:     refreshErr,
		}
	}
	return c.attempt(ctx, method, path, payload, out)
}

// attempt performs a single request/response cycle.
func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Kind: KindDecode, Message: "build request", Err: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers.Headers() {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		transportErr := classifyTransport(err)
		c.observe(method, path, 0, time.Since(start))
		return transportErr
	}
	defer resp.Body.Close()

	c.observe(method, path, resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &Error{Kind: KindNetwork, Status: resp.StatusCode, Message: "read response", Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{
			Kind:    classifyStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: http.StatusText(resp.StatusCode),
		}
		if decodeErr == nil && env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if decodeErr != nil {
		return &Error{Kind: KindDecode, Status: resp.StatusCode, Message: "decode response", Err: decodeErr}
	}
	if !env.Success {
		apiErr := &Error{Kind: KindServer, Status: resp.StatusCode, Message: "request rejected"}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Kind: KindDecode, Status: resp.StatusCode, Message: "decode response data", Err: err}
	}
	return nil
}

func (c *Client) observe(method, path string, status int, elapsed time.Duration) {
	label := metricPath(path)
	code := "transport_error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	observability.APIRequestDuration.WithLabelValues(method, label, code).Observe(elapsed.Seconds())
	observability.APIRequestsTotal.WithLabelValues(method, label, code).Inc()
}

// metricPath collapses resource ids so metric cardinality stays bounded.
func metricPath(path string) string {
	fixed := map[string]bool{
		"auth": true, "cart": true, "products": true, "orders": true,
		"login": true, "register": true, "refresh": true, "logout": true,
		"me": true, "merge": true, "items": true,
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p != "" && !fixed[p] {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

// Endpoint paths consumed by the storefront client.
const (
	PathLogin     = "/auth/login"
	PathRegister  = "/auth/register"
	PathRefresh   = "/auth/refresh"
	PathLogout    = "/auth/logout"
	PathMe        = "/auth/me"
	PathCart      = "/cart"
	PathCartMerge = "/cart/merge"
	PathProducts  = "/products"
	PathOrders    = "/orders"
)

// CartItemPath returns the path for a single cart line.
func CartItemPath(itemID string) string {
	return fmt.Sprintf("/cart/items/%s", itemID)
}
