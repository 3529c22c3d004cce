package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"

	"lanscope/internal/classify"
	"lanscope/internal/codec"
	"lanscope/internal/domain"
	"lanscope/internal/service"
)

// Sweeper runs a sweep on demand
type Sweeper interface {
	Sweep(ctx context.Context, target string, forceRefresh bool) (*domain.Sweep, error)
}

// RecordSource exposes the classification cache
type RecordSource interface {
	Snapshot() map[string]domain.CacheRecord
	Get(mac string) (domain.CacheRecord, bool)
}

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SweepRequest is the body of POST /api/sweeps
type SweepRequest struct {
	Target string `json:"target"`
	Force  bool   `json:"force"`
}

// SweepResponse carries a sweep plus any persistence warnings
type SweepResponse struct {
	Sweep    *domain.Sweep `json:"sweep"`
	Warnings []string      `json:"warnings,omitempty"`
}

// SweepHandler serves sweep results and the classification cache
type SweepHandler struct {
	sweeper       Sweeper
	records       RecordSource
	defaultTarget string

	mu     sync.RWMutex
	latest *domain.Sweep
}

// NewSweepHandler creates a handler. defaultTarget is swept when a request
// names none.
func NewSweepHandler(sweeper Sweeper, records RecordSource, defaultTarget string) *SweepHandler {
	return &SweepHandler{sweeper: sweeper, records: records, defaultTarget: defaultTarget}
}

// Routes registers the API on mux. events, if non-nil, is mounted at
// /api/events.
func (h *SweepHandler) Routes(mux *http.ServeMux, events http.Handler) {
	mux.HandleFunc("GET /api/sweeps/latest", h.GetLatestSweep)
	mux.HandleFunc("POST /api/sweeps", h.TriggerSweep)
	mux.HandleFunc("GET /api/cache", h.ListRecords)
	mux.HandleFunc("GET /api/cache/{mac}", h.GetRecord)
	if events != nil {
		mux.Handle("GET /api/events", events)
	}
}

// RecordSweep remembers the outcome of a sweep run elsewhere (the
// scheduler). Its signature matches service.SweepFunc.
func (h *SweepHandler) RecordSweep(target string, sweep *domain.Sweep, err error) {
	if sweep == nil {
		return
	}
	h.mu.Lock()
	h.latest = sweep
	h.mu.Unlock()
}

// GetLatestSweep returns the most recent sweep
func (h *SweepHandler) GetLatestSweep(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	latest := h.latest
	h.mu.RUnlock()

	if latest == nil {
		writeError(w, "Not found", "no sweep has completed yet", http.StatusNotFound)
		return
	}
	writeJSON(w, latest, http.StatusOK)
}

// TriggerSweep runs a sweep and returns its results
func (h *SweepHandler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	var req SweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Target == "" {
		req.Target = h.defaultTarget
	}

	sweep, err := h.sweeper.Sweep(r.Context(), req.Target, req.Force)
	if err != nil && sweep == nil {
		if errors.Is(err, service.ErrInvalidTarget) {
			writeError(w, "Invalid target", err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("Failed to run sweep of %s: %v", req.Target, err)
		writeError(w, "Sweep failed", err.Error(), http.StatusInternalServerError)
		return
	}

	resp := SweepResponse{Sweep: sweep}
	if err != nil && errors.Is(err, classify.ErrPersist) {
		resp.Warnings = strings.Split(err.Error(), "\n")
	}

	h.RecordSweep(req.Target, sweep, err)
	writeJSON(w, resp, http.StatusOK)
}

// ListRecords exports the cache, as JSON by default or ?format=yaml
func (h *SweepHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	c, err := codec.ForFormat(format)
	if err != nil {
		writeError(w, "Unsupported format", err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", contentType(c.Format()))
	if err := c.ExportRecords(h.records.Snapshot(), w); err != nil {
		log.Printf("Failed to export records: %v", err)
	}
}

// GetRecord returns the cached classification for one MAC
func (h *SweepHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	mac := r.PathValue("mac")
	if err := domain.ValidateMAC(mac); err != nil {
		writeError(w, "Invalid MAC address", err.Error(), http.StatusBadRequest)
		return
	}

	rec, ok := h.records.Get(mac)
	if !ok {
		writeError(w, "Not found", fmt.Sprintf("no record for %s", domain.NormalizeMAC(mac)), http.StatusNotFound)
		return
	}
	writeJSON(w, rec, http.StatusOK)
}

func contentType(format string) string {
	if format == "yaml" {
		return "application/yaml"
	}
	return "application/json"
}

func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON: %v", err)
	}
}

func writeError(w http.ResponseWriter, error, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Details: details,
	}); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}
