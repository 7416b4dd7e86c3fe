package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"

	"github.com/five82/trolley/internal/apperr"
	"github.com/five82/trolley/internal/cart"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.String() != defaultAPIBase {
		t.Fatalf("base = %q, want %q", u.String(), defaultAPIBase)
	}

	u, err = parseBaseURL("shop.example.com:8080/api/v1/?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" || u.Path != "/api/v1" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
}

func TestClient_FetchCart(t *testing.T) {
	t.Parallel()

	var gotAuth, gotUserAgent, gotRequestID, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUserAgent = r.Header.Get("User-Agent")
		gotRequestID = r.Header.Get("X-Request-ID")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"items": [
				{"item_id": 1, "product_id": 10, "quantity": 1, "unit_price": "55000", "product": {"id": 10, "name": "Semen", "image": "semen.jpg"}},
				{"item_id": 2, "quantity": 3, "unit_price": 5000, "product": {"id": 20, "name": "Paku"}}
			],
			"total_amount": "70000",
			"grand_total": 77700
		}`))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL+"/api", time.Second)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	got, err := c.FetchCart(context.Background(), "tok")
	if err != nil {
		t.Fatalf("FetchCart returned error: %v", err)
	}

	if gotPath != "/api/cart" {
		t.Fatalf("path = %q, want /api/cart", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("Authorization = %q, want Bearer tok", gotAuth)
	}
	if !strings.HasPrefix(gotUserAgent, "trolley/") {
		t.Fatalf("User-Agent = %q, want trolley/*", gotUserAgent)
	}
	if gotRequestID == "" {
		t.Fatalf("X-Request-ID should be set")
	}
	if len(got.Items) != 2 {
		t.Fatalf("items = %#v, want 2", got.Items)
	}
	first := got.Items[0]
	if first.ItemID != 1 || first.ProductID != 10 || first.Name != "Semen" || first.Image != "semen.jpg" {
		t.Fatalf("first line = %#v", first)
	}
	if !first.UnitPrice.Equal(decimal.NewFromInt(55000)) {
		t.Fatalf("unit price = %s, want 55000", first.UnitPrice)
	}
	if got.Items[1].ProductID != 20 {
		t.Fatalf("product id should fall back to embedded product, got %d", got.Items[1].ProductID)
	}
	if !got.ReportedGrandTotal.Equal(decimal.NewFromInt(77700)) {
		t.Fatalf("grand total = %s", got.ReportedGrandTotal)
	}
}

func TestClient_FetchCartAcceptsDataEnvelope(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"items": [{"item_id": 5, "quantity": 2, "unit_price": "100"}]}}`))
	}))
	t.Cleanup(server.Close)

	c, _ := NewClient(server.URL, 0)
	got, err := c.FetchCart(context.Background(), "tok")
	if err != nil {
		t.Fatalf("FetchCart returned error: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].ItemID != 5 {
		t.Fatalf("items = %#v", got.Items)
	}
}

func TestClient_FetchCartRejectsInvalidPayloads(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"not json":       `{nope`,
		"zero quantity":  `{"items": [{"item_id": 1, "quantity": 0, "unit_price": "1"}]}`,
		"missing id":     `{"items": [{"quantity": 1, "unit_price": "1"}]}`,
		"negative price": `{"items": [{"item_id": 1, "quantity": 1, "unit_price": "-1"}]}`,
		"duplicate id":   `{"items": [{"item_id": 1, "quantity": 1, "unit_price": "1"}, {"item_id": 1, "quantity": 2, "unit_price": "1"}]}`,
	}
	for name, body := range cases {
		body := body
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer server.Close()

			c, _ := NewClient(server.URL, time.Second)
			_, err := c.FetchCart(context.Background(), "tok")
			if !apperr.Is(err, apperr.CodeInvalidResponse) {
				t.Fatalf("FetchCart error = %v, want INVALID_RESPONSE", err)
			}
		})
	}
}

func TestClient_PatchAndDelete(t *testing.T) {
	t.Parallel()

	type call struct {
		method string
		path   string
		body   map[string]any
	}
	calls := make(chan call, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &body)
		}
		calls <- call{method: r.Method, path: r.URL.Path, body: body}
		switch r.Method {
		case http.MethodPatch:
			if _, ok := body["attributes"]; ok {
				_, _ = w.Write([]byte(`{"item_id": 4, "quantity": 2, "unit_price": "10"}`))
				return
			}
			w.WriteHeader(http.StatusNoContent)
		case http.MethodDelete:
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(server.Close)

	c, _ := NewClient(server.URL, time.Second)
	ctx := context.Background()

	if err := c.UpdateQuantity(ctx, "tok", 4, 3); err != nil {
		t.Fatalf("UpdateQuantity returned error: %v", err)
	}
	got := <-calls
	if got.method != http.MethodPatch || got.path != "/cart/4" || got.body["quantity"] != float64(3) {
		t.Fatalf("patch call = %#v", got)
	}
	if _, ok := got.body["attributes"]; ok {
		t.Fatalf("quantity patch should omit attributes: %#v", got.body)
	}

	line, err := c.PatchItem(ctx, "tok", 4, ItemPatch{Attributes: map[string]any{"note": "kirim pagi"}})
	if err != nil {
		t.Fatalf("PatchItem returned error: %v", err)
	}
	if line == nil || line.ItemID != 4 || line.Quantity != 2 {
		t.Fatalf("PatchItem line = %#v", line)
	}
	got = <-calls
	if _, ok := got.body["quantity"]; ok {
		t.Fatalf("attribute patch should omit quantity: %#v", got.body)
	}

	if err := c.RemoveItem(ctx, "tok", 4); err != nil {
		t.Fatalf("RemoveItem returned error: %v", err)
	}
	got = <-calls
	if got.method != http.MethodDelete || got.path != "/cart/4" {
		t.Fatalf("delete call = %#v", got)
	}
}

func TestClient_ArgumentValidation(t *testing.T) {
	c, _ := NewClient("127.0.0.1:1", time.Second)
	if err := c.RemoveItem(context.Background(), "tok", 0); err == nil {
		t.Fatalf("RemoveItem(0) returned nil error")
	}
	if err := c.UpdateQuantity(context.Background(), "tok", 1, 0); err == nil {
		t.Fatalf("UpdateQuantity(q=0) returned nil error")
	}
}

func TestClient_ErrorClassification(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cart/1":
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message": "stok tidak cukup"}`))
		case "/cart":
			w.WriteHeader(http.StatusUnauthorized)
		case "/cart/2":
			time.Sleep(300 * time.Millisecond)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, _ := NewClient(server.URL, 100*time.Millisecond)
	ctx := context.Background()

	err := c.UpdateQuantity(ctx, "tok", 1, 50)
	typed := apperr.As(err)
	if typed == nil || typed.Code() != apperr.CodeServerRejected || typed.Status() != http.StatusUnprocessableEntity {
		t.Fatalf("UpdateQuantity error = %v, want SERVER_REJECTED 422", err)
	}
	if !strings.Contains(err.Error(), "stok tidak cukup") {
		t.Fatalf("error %q should carry backend message", err)
	}

	if _, err := c.FetchCart(ctx, "stale"); !apperr.Is(err, apperr.CodeUnauthenticated) {
		t.Fatalf("FetchCart error = %v, want UNAUTHENTICATED", err)
	}

	if err := c.RemoveItem(ctx, "tok", 2); !apperr.Is(err, apperr.CodeNetworkFailure) {
		t.Fatalf("RemoveItem error = %v, want NETWORK_FAILURE on timeout", err)
	}
}

func TestClient_CircuitBreakerOpensOnServerErrors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	status := atomic.Int32{}
	status.Store(http.StatusBadGateway)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(int(status.Load()))
	}))
	t.Cleanup(server.Close)

	var transitions []string
	c, err := NewClient(server.URL, time.Second, WithCircuitBreaker(BreakerSettings{
		Failures: 2,
		Cooldown: time.Hour,
		OnStateChange: func(from, to string) {
			transitions = append(transitions, from+"->"+to)
		},
	}))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := c.RemoveItem(context.Background(), "tok", 1); !apperr.Is(err, apperr.CodeServerRejected) {
			t.Fatalf("call %d error = %v, want SERVER_REJECTED", i, err)
		}
	}

	err = c.RemoveItem(context.Background(), "tok", 1)
	if !apperr.Is(err, apperr.CodeNetworkFailure) || !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("open breaker error = %v, want NETWORK_FAILURE wrapping ErrOpenState", err)
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("server hits = %d, want 2 (third call short-circuited)", got)
	}
	if len(transitions) != 1 || transitions[0] != "closed->open" {
		t.Fatalf("transitions = %v, want [closed->open]", transitions)
	}
}

func TestClient_CircuitBreakerIgnoresClientErrors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, time.Second, WithCircuitBreaker(BreakerSettings{Failures: 1, Cooldown: time.Hour}))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := c.FetchCart(context.Background(), "tok"); !apperr.Is(err, apperr.CodeUnauthenticated) {
			t.Fatalf("call %d error = %v, want UNAUTHENTICATED", i, err)
		}
	}
	if got := hits.Load(); got != 3 {
		t.Fatalf("server hits = %d, want 3", got)
	}
}

func TestNewCartResponseRoundTrip(t *testing.T) {
	c := cart.Cart{Items: []cart.Line{
		{ItemID: 1, ProductID: 10, Quantity: 2, UnitPrice: decimal.NewFromInt(10000), Name: "Semen"},
	}}
	resp := NewCartResponse(c, decimal.RequireFromString("0.11"))
	if !resp.TotalAmount.Equal(decimal.NewFromInt(20000)) || !resp.GrandTotal.Equal(decimal.NewFromInt(22200)) {
		t.Fatalf("totals = %s / %s", resp.TotalAmount, resp.GrandTotal)
	}
	back := resp.ToCart()
	if back.Items[0].Name != "Semen" || back.Items[0].ProductID != 10 {
		t.Fatalf("ToCart = %#v", back.Items[0])
	}
}
