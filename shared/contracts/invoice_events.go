package contracts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fleet invoice lifecycle events, published on the fleet invoice topic keyed by invoice id.
const (
	EventFleetInvoiceCreated = "fleet_invoice.created"
	EventFleetInvoiceSent    = "fleet_invoice.sent"
	EventFleetInvoicePaid    = "fleet_invoice.paid"
	EventFleetInvoiceVoided  = "fleet_invoice.voided"
)

// FleetInvoiceEvent is the payload every producer and consumer of the topic agrees on.
type FleetInvoiceEvent struct {
	Event            string          `json:"event"`
	FleetInvoiceID   uuid.UUID       `json:"fleet_invoice_id"`
	FleetID          uuid.UUID       `json:"fleet_id"`
	InvoiceNumber    string          `json:"invoice_number"`
	Status           string          `json:"status"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	MemberInvoiceIDs []uuid.UUID     `json:"member_invoice_ids"`
	OccurredAt       time.Time       `json:"occurred_at"`
}

// EventType lets the producer stamp the event name into the message headers.
func (e FleetInvoiceEvent) EventType() string { return e.Event }

// ReminderJob asks the outbound delivery service to send one follow-up for an unpaid invoice.
type ReminderJob struct {
	TrackingID        uuid.UUID       `json:"tracking_id"`
	InvoiceID         uuid.UUID       `json:"invoice_id"`
	OwnerID           uuid.UUID       `json:"owner_id"`
	ReminderNumber    int             `json:"reminder_number"`
	AmountOutstanding decimal.Decimal `json:"amount_outstanding"`
	DaysOutstanding   int             `json:"days_outstanding"`
	Bucket            string          `json:"bucket"`
	QueuedAt          time.Time       `json:"queued_at"`
}
