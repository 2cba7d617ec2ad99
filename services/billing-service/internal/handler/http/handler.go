//services/billing-service/internal/handler/http/handler.go

// Package httphandler is the JSON admin API over the invoice engine.
package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/dispatch"
	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/invoice"
	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/ledger"
	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/recovery"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type InvoiceService interface {
	Consolidate(ctx context.Context, req invoice.ConsolidateRequest) (ledger.FleetInvoice, error)
	Get(ctx context.Context, id uuid.UUID) (ledger.FleetInvoice, error)
	List(ctx context.Context, filter ledger.FleetInvoiceFilter) ([]ledger.FleetInvoice, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, to ledger.FleetInvoiceStatus) (ledger.FleetInvoice, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type TrackingService interface {
	Get(ctx context.Context, id uuid.UUID) (ledger.InvoiceTracking, error)
	RecordPayment(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (ledger.InvoiceTracking, error)
	MarkDisputed(ctx context.Context, id uuid.UUID, notes string) (ledger.InvoiceTracking, error)
	WriteOff(ctx context.Context, id uuid.UUID, notes string) (ledger.InvoiceTracking, error)
}

type ReminderService interface {
	RecordReminderSent(ctx context.Context, id uuid.UUID) (ledger.InvoiceTracking, error)
	DueNow(ctx context.Context, ownerID uuid.UUID, now time.Time) ([]ledger.InvoiceTracking, error)
}

type DashboardService interface {
	Snapshot(ctx context.Context, ownerID uuid.UUID, subscriptionCost decimal.Decimal) (recovery.Snapshot, error)
}

// Deps groups the services the handler talks to.
type Deps struct {
	Invoices   InvoiceService
	Dispatcher dispatch.Dispatcher
	Tracking   TrackingService
	Reminders  ReminderService
	Dashboard  DashboardService
	// SubscriptionCost is used when a recovery request does not pass one.
	SubscriptionCost decimal.Decimal
}

type Handler struct {
	deps  Deps
	log   *zap.Logger
	clock func() time.Time
}

func NewHandler(deps Deps, log *zap.Logger) *Handler {
	return &Handler{deps: deps, log: log.Named("http"), clock: time.Now}
}

// Routes builds the router.
func (h *Handler) Routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.logRequests)

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)

	// Fleet invoices
	r.HandleFunc("/fleets/{fleetID}/invoices", h.consolidate).Methods(http.MethodPost)
	r.HandleFunc("/fleets/{fleetID}/invoices", h.listFleetInvoices).Methods(http.MethodGet)
	r.HandleFunc("/invoices/{id}", h.getFleetInvoice).Methods(http.MethodGet)
	r.HandleFunc("/invoices/{id}", h.deleteFleetInvoice).Methods(http.MethodDelete)
	r.HandleFunc("/invoices/{id}/status", h.updateStatus).Methods(http.MethodPatch)
	r.HandleFunc("/invoices/{id}/send", h.send).Methods(http.MethodPost)

	// Recovery tracking
	r.HandleFunc("/tracking/{id}", h.getTracking).Methods(http.MethodGet)
	r.HandleFunc("/tracking/{id}/reminders", h.recordReminder).Methods(http.MethodPost)
	r.HandleFunc("/tracking/{id}/payments", h.recordPayment).Methods(http.MethodPost)
	r.HandleFunc("/tracking/{id}/dispute", h.dispute).Methods(http.MethodPost)
	r.HandleFunc("/tracking/{id}/write-off", h.writeOff).Methods(http.MethodPost)
	r.HandleFunc("/owners/{ownerID}/recovery", h.recoverySnapshot).Methods(http.MethodGet)
	r.HandleFunc("/owners/{ownerID}/reminders/due", h.dueReminders).Methods(http.MethodGet)

	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		h.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("took", time.Since(start)),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---- helpers ----

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := MapError(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: kind})
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, errors.Join(ledger.ErrInvalidInput, err)
	}
	return id, nil
}

func decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(ledger.ErrInvalidInput, err)
	}
	return nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.Join(ledger.ErrInvalidInput, errors.New(name+" must be a non-negative integer"))
	}
	return n, nil
}
