//services/billing-service/internal/handler/http/dto.go

package httphandler

import (
	"time"

	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type consolidateRequest struct {
	MemberInvoiceIDs []uuid.UUID      `json:"member_invoice_ids"`
	Recipient        ledger.Recipient `json:"recipient"`
	Notes            string           `json:"notes"`
	DueDate          *time.Time       `json:"due_date"`
}

type statusRequest struct {
	Status ledger.FleetInvoiceStatus `json:"status"`
}

type sendRequest struct {
	OwnerID uuid.UUID `json:"owner_id"`
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

type fleetInvoiceResponse struct {
	ID               uuid.UUID        `json:"id"`
	FleetID          uuid.UUID        `json:"fleet_id"`
	InvoiceNumber    string           `json:"invoice_number"`
	MemberInvoiceIDs []uuid.UUID      `json:"member_invoice_ids"`
	TotalAmount      decimal.Decimal  `json:"total_amount"`
	Status           string           `json:"status"`
	Recipient        ledger.Recipient `json:"recipient"`
	Notes            string           `json:"notes,omitempty"`
	DueDate          *time.Time       `json:"due_date,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	SentAt           *time.Time       `json:"sent_at,omitempty"`
	PaidAt           *time.Time       `json:"paid_at,omitempty"`
}

func toFleetInvoiceResponse(f ledger.FleetInvoice) fleetInvoiceResponse {
	return fleetInvoiceResponse{
		ID:               f.ID,
		FleetID:          f.FleetID,
		InvoiceNumber:    f.InvoiceNumber,
		MemberInvoiceIDs: f.MemberInvoiceIDs,
		TotalAmount:      f.TotalAmount,
		Status:           string(f.Status),
		Recipient:        f.Recipient,
		Notes:            f.Notes,
		DueDate:          f.DueDate,
		CreatedAt:        f.CreatedAt,
		SentAt:           f.SentAt,
		PaidAt:           f.PaidAt,
	}
}

type trackingResponse struct {
	ID             uuid.UUID       `json:"id"`
	InvoiceID      uuid.UUID       `json:"invoice_id"`
	OwnerID        uuid.UUID       `json:"owner_id"`
	AmountInvoiced decimal.Decimal `json:"amount_invoiced"`
	AmountReceived decimal.Decimal `json:"amount_received"`
	PaymentStatus  string          `json:"payment_status"`
	ReminderCount  int             `json:"reminder_count"`
	LastReminderAt *time.Time      `json:"last_reminder_at,omitempty"`
	NextReminderAt *time.Time      `json:"next_reminder_at,omitempty"`
	SentAt         time.Time       `json:"sent_at"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	Notes          string          `json:"notes,omitempty"`
}

func toTrackingResponse(t ledger.InvoiceTracking) trackingResponse {
	return trackingResponse{
		ID:             t.ID,
		InvoiceID:      t.InvoiceID,
		OwnerID:        t.OwnerID,
		AmountInvoiced: t.AmountInvoiced,
		AmountReceived: t.AmountReceived,
		PaymentStatus:  string(t.PaymentStatus),
		ReminderCount:  t.ReminderCount,
		LastReminderAt: t.LastReminderAt,
		NextReminderAt: t.NextReminderAt,
		SentAt:         t.SentAt,
		PaidAt:         t.PaidAt,
		Notes:          t.Notes,
	}
}

func toTrackingResponses(recs []ledger.InvoiceTracking) []trackingResponse {
	out := make([]trackingResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, toTrackingResponse(r))
	}
	return out
}
