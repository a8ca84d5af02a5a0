// Package api provides HTTP and WebSocket endpoints for the price oracle.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"tc.com/price-oracle/pkg/logging"
	"tc.com/price-oracle/pkg/metrics"
	"tc.com/price-oracle/pkg/oracle"
	"tc.com/price-oracle/pkg/oracle/twap"
	"tc.com/price-oracle/pkg/storage"
)

// Server represents the HTTP API server.
type Server struct {
	addr    string
	oracle  *oracle.Oracle
	acc     *twap.Accumulator
	journal *storage.Journal
	server  *http.Server
	logger  *logging.Logger
}

// PriceResponse is returned by /v1/price.
type PriceResponse struct {
	Pair      string `json:"pair"`
	Price     string `json:"price"`
	State     string `json:"state"`
	Timestamp string `json:"timestamp"`
}

// StatusResponse is returned by /v1/status.
type StatusResponse struct {
	Pair          string `json:"pair"`
	State         string `json:"state"`
	LastGoodPrice string `json:"last_good_price"`
	Observations  int    `json:"observations"`
	Capacity      int    `json:"capacity"`
}

// NewServer creates a new HTTP API server. The journal may be nil, in which
// case /v1/events reports an empty history.
func NewServer(addr string, o *oracle.Oracle, acc *twap.Accumulator, journal *storage.Journal, logger *logging.Logger) *Server {
	return &Server{
		addr:    addr,
		oracle:  o,
		acc:     acc,
		journal: journal,
		logger:  logger,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/price", s.handlePrice)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/events", s.handleEvents)

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		s.logger.Info("Stopping HTTP server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleHealth handles the /health endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest("/health", "200", time.Since(start))
	}()

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePrice handles the /v1/price endpoint.
func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest("/v1/price", status, time.Since(start))
	}()

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	price, err := s.oracle.GetPrice(ctx)
	if err != nil {
		status = "503"
		s.logger.Error("Price request failed", "error", err)
		http.Error(w, "no good price available", http.StatusServiceUnavailable)
		return
	}

	s.sendJSON(w, PriceResponse{
		Pair:      s.oracle.Pair(),
		Price:     price.String(),
		State:     s.oracle.Status().String(),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// handleStatus handles the /v1/status endpoint. It never triggers a price
// request; monitors can poll it freely.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest("/v1/status", "200", time.Since(start))
	}()

	s.sendJSON(w, StatusResponse{
		Pair:          s.oracle.Pair(),
		State:         s.oracle.Status().String(),
		LastGoodPrice: s.oracle.LastGoodPrice().String(),
		Observations:  s.acc.Count(),
		Capacity:      s.acc.Capacity(),
	})
}

// handleEvents handles the /v1/events endpoint.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest("/v1/events", status, time.Since(start))
	}()

	if s.journal == nil {
		s.sendJSON(w, []storage.StoredEvent{})
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			status = "400"
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	events, err := s.journal.RecentEvents(limit)
	if err != nil {
		status = "500"
		s.logger.Error("Failed to read events", "error", err)
		http.Error(w, "failed to read events", http.StatusInternalServerError)
		return
	}

	s.sendJSON(w, events)
}

// sendJSON sends a JSON response.
func (s *Server) sendJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}
