//services/billing-service/internal/handler/http/fleet_invoices.go

package httphandler

import (
	"net/http"

	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/dispatch"
	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/invoice"
	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/ledger"
)

// POST /fleets/{fleetID}/invoices
func (h *Handler) consolidate(w http.ResponseWriter, r *http.Request) {
	fleetID, err := pathID(r, "fleetID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req consolidateRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	inv, err := h.deps.Invoices.Consolidate(r.Context(), invoice.ConsolidateRequest{
		FleetID:          fleetID,
		MemberInvoiceIDs: req.MemberInvoiceIDs,
		Recipient:        req.Recipient,
		Notes:            req.Notes,
		DueDate:          req.DueDate,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toFleetInvoiceResponse(inv))
}

// GET /fleets/{fleetID}/invoices?status=&limit=
func (h *Handler) listFleetInvoices(w http.ResponseWriter, r *http.Request) {
	fleetID, err := pathID(r, "fleetID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	filter := ledger.FleetInvoiceFilter{
		FleetID: fleetID,
		Status:  ledger.FleetInvoiceStatus(r.URL.Query().Get("status")),
		Limit:   limit,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: kindInvalidInput})
		return
	}

	invs, err := h.deps.Invoices.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]fleetInvoiceResponse, 0, len(invs))
	for _, inv := range invs {
		out = append(out, toFleetInvoiceResponse(inv))
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /invoices/{id}
func (h *Handler) getFleetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	inv, err := h.deps.Invoices.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFleetInvoiceResponse(inv))
}

// PATCH /invoices/{id}/status
func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req statusRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	// Sending also opens recovery tracking, which only the send flow does.
	if req.Status == ledger.FleetSent {
		if _, err := h.deps.Dispatcher.Send(r.Context(), dispatch.SendRequest{FleetInvoiceID: id}); err != nil {
			h.writeError(w, r, err)
			return
		}
		inv, err := h.deps.Invoices.Get(r.Context(), id)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toFleetInvoiceResponse(inv))
		return
	}
	inv, err := h.deps.Invoices.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFleetInvoiceResponse(inv))
}

// POST /invoices/{id}/send marks the invoice sent and opens its recovery tracking.
func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req sendRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.deps.Dispatcher.Send(r.Context(), dispatch.SendRequest{FleetInvoiceID: id, OwnerID: req.OwnerID})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DELETE /invoices/{id}
func (h *Handler) deleteFleetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.deps.Invoices.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
