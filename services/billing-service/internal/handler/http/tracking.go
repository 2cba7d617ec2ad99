//services/billing-service/internal/handler/http/tracking.go

package httphandler

import (
	"errors"
	"net/http"

	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/ledger"
	"github.com/shopspring/decimal"
)

// GET /tracking/{id}
func (h *Handler) getTracking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rec, err := h.deps.Tracking.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrackingResponse(rec))
}

// POST /tracking/{id}/reminders records that a reminder went out.
func (h *Handler) recordReminder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rec, err := h.deps.Reminders.RecordReminderSent(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrackingResponse(rec))
}

// POST /tracking/{id}/payments
func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req paymentRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	rec, err := h.deps.Tracking.RecordPayment(r.Context(), id, req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrackingResponse(rec))
}

// POST /tracking/{id}/dispute
func (h *Handler) dispute(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req notesRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	rec, err := h.deps.Tracking.MarkDisputed(r.Context(), id, req.Notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrackingResponse(rec))
}

// POST /tracking/{id}/write-off
func (h *Handler) writeOff(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req notesRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	rec, err := h.deps.Tracking.WriteOff(r.Context(), id, req.Notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrackingResponse(rec))
}

// GET /owners/{ownerID}/recovery?subscription_cost=
func (h *Handler) recoverySnapshot(w http.ResponseWriter, r *http.Request) {
	ownerID, err := pathID(r, "ownerID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	cost := h.deps.SubscriptionCost
	if raw := r.URL.Query().Get("subscription_cost"); raw != "" {
		cost, err = decimal.NewFromString(raw)
		if err != nil || cost.IsNegative() {
			h.writeError(w, r, errors.Join(ledger.ErrInvalidInput, err))
			return
		}
	}

	snap, err := h.deps.Dashboard.Snapshot(r.Context(), ownerID, cost)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"owner_id":     snap.OwnerID,
		"generated_at": snap.GeneratedAt,
		"stats":        snap.Stats,
		"roi":          snap.ROI,
		"buckets":      snap.Buckets,
		"due_now":      toTrackingResponses(snap.DueNow),
	})
}

// GET /owners/{ownerID}/reminders/due
func (h *Handler) dueReminders(w http.ResponseWriter, r *http.Request) {
	ownerID, err := pathID(r, "ownerID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	due, err := h.deps.Reminders.DueNow(r.Context(), ownerID, h.clock().UTC())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrackingResponses(due))
}
