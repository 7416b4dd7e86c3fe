package main

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/five82/trolley/internal/api"
	"github.com/five82/trolley/internal/cart"
	"github.com/five82/trolley/internal/logger"
)

// stubOptions tune the in-memory backend.
type stubOptions struct {
	// Token is the accepted bearer token. Empty accepts any non-empty token.
	Token    string
	FailRate float64
	Latency  time.Duration
	TaxRate  decimal.Decimal
}

// cartServer is an in-memory cart backend speaking the trolley wire format.
type cartServer struct {
	mu    sync.Mutex
	items []cart.Line

	opts     stubOptions
	log      *logger.Logger
	validate *validator.Validate
	roll     func() float64
}

func newCartServer(seed []cart.Line, opts stubOptions, log *logger.Logger) *cartServer {
	if log == nil {
		log = logger.Nop()
	}
	return &cartServer{
		items:    append([]cart.Line(nil), seed...),
		opts:     opts,
		log:      log,
		validate: validator.New(),
		roll:     rand.Float64,
	}
}

// Router wires the cart endpoints under /api.
func (s *cartServer) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireToken)
		r.Use(s.chaos)

		r.Get("/cart", s.getCart)
		r.Patch("/cart/{itemID}", s.patchItem)
		r.Delete("/cart/{itemID}", s.deleteItem)
	})

	return r
}

func (s *cartServer) getCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	snapshot := cart.Cart{Items: append([]cart.Line(nil), s.items...)}
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, api.NewCartResponse(snapshot, s.opts.TaxRate))
}

func (s *cartServer) patchItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := parseItemID(w, r)
	if !ok {
		return
	}

	var req api.ItemPatch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "quantity is required")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "quantity must be at least 1")
		return
	}

	s.mu.Lock()
	updated, found := cart.Cart{Items: s.items}.WithQuantity(itemID, *req.Quantity)
	if found {
		s.items = updated.Items
	}
	line, _ := updated.Line(itemID)
	s.mu.Unlock()

	if !found {
		respondError(w, http.StatusNotFound, "item not found")
		return
	}

	s.log.Info(s.log.WithFields(r.Context(), map[string]any{
		"item_id":  itemID,
		"quantity": *req.Quantity,
	}), "quantity updated")

	respondJSON(w, http.StatusOK, api.NewCartResponse(cart.Cart{Items: []cart.Line{line}}, s.opts.TaxRate).Items[0])
}

func (s *cartServer) deleteItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := parseItemID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	remaining, _, _, found := cart.Cart{Items: s.items}.Without(itemID)
	if found {
		s.items = remaining.Items
	}
	s.mu.Unlock()

	if !found {
		respondError(w, http.StatusNotFound, "item not found")
		return
	}

	s.log.Info(s.log.WithItemID(r.Context(), itemID), "item removed")
	w.WriteHeader(http.StatusNoContent)
}

// requireToken rejects requests without the expected bearer token.
func (s *cartServer) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" || (s.opts.Token != "" && token != s.opts.Token) {
			respondError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// chaos delays every request by Latency and fails a FailRate share of them.
func (s *cartServer) chaos(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Latency > 0 {
			if err := sleepContext(r.Context(), s.opts.Latency); err != nil {
				return
			}
		}
		if s.opts.FailRate > 0 && s.roll() < s.opts.FailRate {
			s.log.Warn(r.Context(), "injected failure", errors.New(r.Method+" "+r.URL.Path))
			respondError(w, http.StatusServiceUnavailable, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *cartServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := s.log.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r.WithContext(ctx))

		s.log.Debug(s.log.WithFields(ctx, map[string]any{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}), "request")
	})
}

func parseItemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil || itemID <= 0 {
		respondError(w, http.StatusBadRequest, "item id must be a positive integer")
		return 0, false
	}
	return itemID, true
}

type errorResponse struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Message: message})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// seedCart is the cart the stub starts with.
func seedCart() []cart.Line {
	return []cart.Line{
		{ItemID: 1, ProductID: 101, Name: "Portland cement 50kg", Quantity: 1, UnitPrice: decimal.NewFromInt(55000)},
		{ItemID: 2, ProductID: 102, Name: "Concrete nails 5cm (1kg)", Quantity: 2, UnitPrice: decimal.NewFromInt(5000)},
		{ItemID: 3, ProductID: 103, Name: "Wall paint 5L", Quantity: 1, UnitPrice: decimal.NewFromInt(185000)},
	}
}
