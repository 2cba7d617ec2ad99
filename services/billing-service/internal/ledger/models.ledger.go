//services/billing-service/internal/ledger/models.ledger.go

package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MemberInvoiceStatus string

const (
	MemberDraft MemberInvoiceStatus = "draft"
	MemberSent  MemberInvoiceStatus = "sent"
	MemberPaid  MemberInvoiceStatus = "paid"
)

func (s MemberInvoiceStatus) Valid() bool {
	switch s {
	case MemberDraft, MemberSent, MemberPaid:
		return true
	}
	return false
}

type FleetInvoiceStatus string

const (
	FleetDraft FleetInvoiceStatus = "draft"
	FleetSent  FleetInvoiceStatus = "sent"
	FleetPaid  FleetInvoiceStatus = "paid"
	FleetVoid  FleetInvoiceStatus = "void"
)

func (s FleetInvoiceStatus) Valid() bool {
	switch s {
	case FleetDraft, FleetSent, FleetPaid, FleetVoid:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s FleetInvoiceStatus) Terminal() bool {
	return s == FleetPaid || s == FleetVoid
}

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentPartial    PaymentStatus = "partial"
	PaymentPaid       PaymentStatus = "paid"
	PaymentDisputed   PaymentStatus = "disputed"
	PaymentWrittenOff PaymentStatus = "written_off"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPartial, PaymentPaid, PaymentDisputed, PaymentWrittenOff:
		return true
	}
	return false
}

// MemberInvoice is the invoice owed by a single driver.
type MemberInvoice struct {
	ID          uuid.UUID
	MemberID    uuid.UUID
	FleetID     uuid.UUID
	TotalAmount decimal.Decimal
	Status      MemberInvoiceStatus
	CreatedAt   time.Time
}

type Recipient struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
	Address string `json:"address"`
}

// FleetInvoice consolidates member invoices into one bill for a third-party payer.
// MemberInvoiceIDs and TotalAmount are fixed when the invoice is created.
type FleetInvoice struct {
	ID               uuid.UUID
	FleetID          uuid.UUID
	InvoiceNumber    string
	MemberInvoiceIDs []uuid.UUID
	TotalAmount      decimal.Decimal
	Status           FleetInvoiceStatus
	Recipient        Recipient
	Notes            string
	DueDate          *time.Time
	CreatedAt        time.Time
	SentAt           *time.Time
	PaidAt           *time.Time
}

// InvoiceTracking is the recovery bookkeeping for one sent invoice.
type InvoiceTracking struct {
	ID             uuid.UUID
	InvoiceID      uuid.UUID
	OwnerID        uuid.UUID
	AmountInvoiced decimal.Decimal
	AmountReceived decimal.Decimal
	PaymentStatus  PaymentStatus
	ReminderCount  int
	LastReminderAt *time.Time
	NextReminderAt *time.Time
	SentAt         time.Time
	PaidAt         *time.Time
	Notes          string
	CreatedAt      time.Time
}

// Outstanding is what is still owed on the invoice.
func (t InvoiceTracking) Outstanding() decimal.Decimal {
	return t.AmountInvoiced.Sub(t.AmountReceived)
}

// FleetInvoiceFilter narrows ListFleetInvoices. Zero values match everything.
type FleetInvoiceFilter struct {
	FleetID uuid.UUID
	Status  FleetInvoiceStatus
	Limit   int
}
