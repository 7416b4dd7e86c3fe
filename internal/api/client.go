package api

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

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/five82/trolley/internal/apperr"
	"github.com/five82/trolley/internal/cart"
)

// CartBackend is the remote cart service. *Client implements it; tests use
// fakes.
type CartBackend interface {
	FetchCart(ctx context.Context, token string) (cart.Cart, error)
	UpdateQuantity(ctx context.Context, token string, itemID int64, quantity int) error
	RemoveItem(ctx context.Context, token string, itemID int64) error
}

// Ensure Client implements CartBackend at compile time.
var _ CartBackend = (*Client)(nil)

// Client talks to the storefront REST API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	breaker   *gobreaker.CircuitBreaker[[]byte]
}

// Option customizes a Client.
type Option func(*Client)

// BreakerSettings configure the circuit breaker in front of the backend.
type BreakerSettings struct {
	// Failures is the number of consecutive transport or 5xx failures that
	// open the circuit. Zero disables the breaker.
	Failures uint32
	// Cooldown is how long the circuit stays open before one probe request.
	Cooldown time.Duration
	// OnStateChange, when set, observes transitions such as "closed" -> "open".
	OnStateChange func(from, to string)
}

// WithCircuitBreaker makes the client fail fast while the backend keeps
// failing. Rejections while open carry CodeNetworkFailure.
func WithCircuitBreaker(settings BreakerSettings) Option {
	return func(c *Client) {
		if settings.Failures == 0 {
			c.breaker = nil
			return
		}
		st := gobreaker.Settings{
			Name:        "cart-api",
			MaxRequests: 1,
			Timeout:     settings.Cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= settings.Failures
			},
			IsSuccessful: backendHealthy,
		}
		if hook := settings.OnStateChange; hook != nil {
			st.OnStateChange = func(_ string, from, to gobreaker.State) {
				hook(from.String(), to.String())
			}
		}
		c.breaker = gobreaker.NewCircuitBreaker[[]byte](st)
	}
}

// backendHealthy reports whether err still proves the backend is up.
// Client errors such as 401 or 404 do not count against the breaker.
func backendHealthy(err error) bool {
	if err == nil {
		return true
	}
	typed := apperr.As(err)
	if typed == nil || typed.Code() == apperr.CodeNetworkFailure {
		return false
	}
	return typed.Status() > 0 && typed.Status() < http.StatusInternalServerError
}

const (
	defaultAPIBase   = "http://127.0.0.1:8000/api"
	defaultUserAgent = "trolley/0.1"
	// DefaultTimeout bounds every request.
	DefaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

// NewClient builds a Client for apiBase (scheme optional, path kept).
// A non-positive timeout uses DefaultTimeout.
func NewClient(apiBase string, timeout time.Duration, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(apiBase)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: timeout,
		},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized API base.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// FetchCart retrieves the authoritative cart.
func (c *Client) FetchCart(ctx context.Context, token string) (cart.Cart, error) {
	if c == nil {
		return cart.Cart{}, fmt.Errorf("client is nil")
	}
	body, err := c.do(ctx, http.MethodGet, c.baseURL.JoinPath("cart"), token, nil)
	if err != nil {
		return cart.Cart{}, err
	}
	resp, err := decodeCart(body)
	if err != nil {
		return cart.Cart{}, apperr.Wrap(apperr.CodeInvalidResponse, err, "decode response")
	}
	if err := resp.Validate(); err != nil {
		return cart.Cart{}, apperr.Wrap(apperr.CodeInvalidResponse, err, "invalid cart")
	}
	return resp.ToCart(), nil
}

// UpdateQuantity sets the quantity of one row.
func (c *Client) UpdateQuantity(ctx context.Context, token string, itemID int64, quantity int) error {
	_, err := c.PatchItem(ctx, token, itemID, QuantityPatch(quantity))
	return err
}

// PatchItem applies patch to one row and returns the updated row when the
// backend echoes it.
func (c *Client) PatchItem(ctx context.Context, token string, itemID int64, patch ItemPatch) (*cart.Line, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if itemID <= 0 {
		return nil, fmt.Errorf("item id required")
	}
	if err := validate.Struct(patch); err != nil {
		return nil, fmt.Errorf("validate patch: %w", err)
	}
	payload, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("encode patch: %w", err)
	}
	body, err := c.do(ctx, http.MethodPatch, c.itemURL(itemID), token, payload)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var line LineResponse
	if err := json.Unmarshal(body, &line); err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidResponse, err, "decode response")
	}
	if line.ItemID == 0 {
		return nil, nil
	}
	out := line.ToLine()
	return &out, nil
}

// RemoveItem deletes one row.
func (c *Client) RemoveItem(ctx context.Context, token string, itemID int64) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if itemID <= 0 {
		return fmt.Errorf("item id required")
	}
	_, err := c.do(ctx, http.MethodDelete, c.itemURL(itemID), token, nil)
	return err
}

func (c *Client) itemURL(itemID int64) *url.URL {
	return c.baseURL.JoinPath("cart", strconv.FormatInt(itemID, 10))
}

func (c *Client) do(ctx context.Context, method string, reqURL *url.URL, token string, payload []byte) ([]byte, error) {
	if c.breaker == nil {
		return c.send(ctx, method, reqURL, token, payload)
	}
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.send(ctx, method, reqURL, token, payload)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, apperr.Wrap(apperr.CodeNetworkFailure, err, "backend unavailable")
	}
	return body, err
}

func (c *Client) send(ctx context.Context, method string, reqURL *url.URL, token string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeNetworkFailure, err, "execute request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeNetworkFailure, err, "read response")
	}

	if resp.StatusCode >= 400 {
		return nil, statusError(method, reqURL.Path, resp.StatusCode, body)
	}
	return body, nil
}

func statusError(method, path string, status int, body []byte) error {
	msg := fmt.Sprintf("api %s %s returned status %d", method, path, status)
	var payload errorResponse
	if json.Unmarshal(body, &payload) == nil {
		if text := payload.text(); text != "" {
			msg += ": " + text
		}
	}
	code := apperr.CodeServerRejected
	if status == http.StatusUnauthorized {
		code = apperr.CodeUnauthenticated
	}
	return apperr.New(code, msg).WithStatus(status)
}

func parseBaseURL(apiBase string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiBase)
	if trimmed == "" {
		trimmed = defaultAPIBase
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_base %q: %w", apiBase, err)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
