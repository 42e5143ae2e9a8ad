// Package mockerp is a stand-in ERP that accepts vendor bills over HTTP and
// keeps them in SQLite, for demos and end-to-end tests.
package mockerp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"invoiceagent/internal/logger"
	"invoiceagent/internal/metrics"
	"invoiceagent/pkg/models"
)

// Handler serves the mock ERP API.
type Handler struct {
	store    *Store
	metrics  *metrics.MockERP
	gatherer prometheus.Gatherer
	log      zerolog.Logger
}

// New creates a Handler. gatherer backs GET /metrics and may be nil to omit it.
func New(store *Store, m *metrics.MockERP, gatherer prometheus.Gatherer) *Handler {
	return &Handler{
		store:    store,
		metrics:  m,
		gatherer: gatherer,
		log:      logger.WithComponent("mock-erp"),
	}
}

// Router returns the chi router with every route registered.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.observe)

	r.Get("/healthz", h.handleHealth)
	r.Post("/vendor-bills", h.handleCreateBill)
	r.Get("/vendor-bills/{id}", h.handleGetBill)
	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// observe records per-route metrics and a request log line.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.metrics.ObserveRequest(route, strconv.Itoa(status), time.Since(start))

		h.log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var bill models.VendorBill
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&bill); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if msg := validateBill(&bill); msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	id, created, err := h.store.CreateBill(r.Context(), bill)
	if err != nil {
		h.log.Error().Err(err).Str("invoice_number", bill.InvoiceNumber).Msg("Failed to store bill")
		writeError(w, http.StatusInternalServerError, "failed to store bill")
		return
	}
	if created {
		h.metrics.IncrementBillsCreated()
	}

	h.log.Info().
		Str("id", id).
		Str("vendor_id", bill.VendorID).
		Str("invoice_number", bill.InvoiceNumber).
		Int("lines", len(bill.Lines)).
		Bool("created", created).
		Msg("Vendor bill accepted")

	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (h *Handler) handleGetBill(w http.ResponseWriter, r *http.Request) {
	bill, err := h.store.GetBill(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, ErrBillNotFound) {
		writeError(w, http.StatusNotFound, "bill not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read bill")
		writeError(w, http.StatusInternalServerError, "failed to read bill")
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

// validateBill applies the request model defaults and reports the first
// missing required field.
func validateBill(b *models.VendorBill) string {
	switch {
	case b.VendorID == "":
		return "vendor_id is required"
	case b.InvoiceNumber == "":
		return "invoice_number is required"
	case b.InvoiceDate == "":
		return "invoice_date is required"
	case b.Lines == nil:
		return "lines is required"
	}
	if b.Currency == "" {
		b.Currency = "USD"
	}
	for i := range b.Lines {
		if b.Lines[i].Description == "" {
			return "lines[" + strconv.Itoa(i) + "].description is required"
		}
		if b.Lines[i].GLAccount == "" {
			b.Lines[i].GLAccount = "6401"
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
