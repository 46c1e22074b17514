// Package productapi is a small in-memory product service the load test can
// be pointed at.
package productapi

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Product is what the service stores per id.
type Product struct {
	ProductID    int32  `json:"product_id"`
	SKU          string `json:"sku"`
	Manufacturer string `json:"manufacturer"`
	CategoryID   int32  `json:"category_id"`
	Weight       int32  `json:"weight"`
	SomeOtherID  int32  `json:"some_other_id"`
}

type Store struct {
	mu       sync.RWMutex
	products map[int32]Product
}

func NewStore() *Store {
	return &Store{products: make(map[int32]Product)}
}

func (s *Store) Get(id int32) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	return p, ok
}

func (s *Store) Put(id int32, p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[id] = p
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}

type ServerConfig struct {
	Addr string

	// Artificial latency added to every request, drawn from [MinLatency, MaxLatency].
	MinLatency time.Duration
	MaxLatency time.Duration

	// Fraction of requests answered with 500 before touching the store.
	ErrorRate float64
}

// NewHandler routes GET /products/{id} and POST /products/{id}/details.
// The /details suffix is optional for both methods.
func NewHandler(store *Store, cfg ServerConfig) http.Handler {
	h := &handler{store: store, cfg: cfg}

	mux := http.NewServeMux()
	for _, p := range []string{"/products/{id}", "/products/{id}/details"} {
		mux.HandleFunc("GET "+p, h.chaos(h.getProduct))
		mux.HandleFunc("POST "+p, h.chaos(h.addProductDetails))
	}
	return mux
}

type handler struct {
	store *Store
	cfg   ServerConfig
}

func (h *handler) chaos(next func(http.ResponseWriter, *http.Request, int32)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 32)
		if err != nil {
			http.Error(w, "Invalid Product ID", http.StatusBadRequest)
			return
		}

		if h.cfg.MaxLatency > 0 {
			jitter := h.cfg.MinLatency
			if span := h.cfg.MaxLatency - h.cfg.MinLatency; span > 0 {
				jitter += time.Duration(rand.Int64N(int64(span)))
			}
			time.Sleep(jitter)
		}
		if h.cfg.ErrorRate > 0 && rand.Float64() < h.cfg.ErrorRate {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		next(w, r, int32(id))
	}
}

func (h *handler) getProduct(w http.ResponseWriter, r *http.Request, id int32) {
	log.Debug().Int32("product_id", id).Msg("get product")

	p, ok := h.store.Get(id)
	if !ok {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Warn().Err(err).Msg("write product")
	}
}

func (h *handler) addProductDetails(w http.ResponseWriter, r *http.Request, id int32) {
	var p Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// the URL id wins over the body
	h.store.Put(id, p)
	log.Debug().Int32("product_id", id).Str("sku", p.SKU).Msg("stored product details")

	w.WriteHeader(http.StatusNoContent)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func ListenAndServe(ctx context.Context, store *Store, cfg ServerConfig) error {
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(store, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errC := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("product API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- err
		}
		close(errC)
	}()

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Int("products", store.Len()).Msg("product API stopped")
	return nil
}
