//services/billing-service/internal/ledger/ledger_store.go

package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type MemberInvoiceStore interface {
	// GetMemberInvoices returns the invoices in the order of ids.
	// Missing ids are simply absent from the result.
	GetMemberInvoices(ctx context.Context, ids []uuid.UUID) ([]MemberInvoice, error)
	ListMemberInvoices(ctx context.Context, fleetID uuid.UUID) ([]MemberInvoice, error)
	CreateMemberInvoice(ctx context.Context, inv MemberInvoice) error
	// SetMemberInvoiceStatus is an unconditional write. Setting the current status again is a no-op.
	SetMemberInvoiceStatus(ctx context.Context, id uuid.UUID, status MemberInvoiceStatus) error
}

type FleetInvoiceStore interface {
	GetFleetInvoice(ctx context.Context, id uuid.UUID) (FleetInvoice, error)
	ListFleetInvoices(ctx context.Context, filter FleetInvoiceFilter) ([]FleetInvoice, error)
	// ListActiveFleetInvoices returns every non-void fleet invoice of the fleet.
	ListActiveFleetInvoices(ctx context.Context, fleetID uuid.UUID) ([]FleetInvoice, error)
	InvoiceNumberExists(ctx context.Context, number string) (bool, error)
	// CreateFleetInvoice returns ErrDuplicateNumber when the invoice number is taken.
	CreateFleetInvoice(ctx context.Context, inv FleetInvoice) error
	// TransitionFleetInvoice is a compare-and-swap on status. It stamps sent_at or paid_at
	// with at when moving into sent or paid. If the row exists but is not in from, it
	// returns ErrInvalidTransition.
	TransitionFleetInvoice(ctx context.Context, id uuid.UUID, from, to FleetInvoiceStatus, at time.Time) error
	// DeleteDraftFleetInvoice deletes only while the invoice is still draft; otherwise ErrNotDeletable.
	DeleteDraftFleetInvoice(ctx context.Context, id uuid.UUID) error
}

type TrackingStore interface {
	GetTracking(ctx context.Context, id uuid.UUID) (InvoiceTracking, error)
	GetTrackingByInvoice(ctx context.Context, invoiceID uuid.UUID) (InvoiceTracking, error)
	// ListTracking returns the owner's records, restricted to statuses when any are given.
	ListTracking(ctx context.Context, ownerID uuid.UUID, statuses ...PaymentStatus) ([]InvoiceTracking, error)
	// ListTrackingOwners returns the distinct owners having at least one record in status.
	ListTrackingOwners(ctx context.Context, status PaymentStatus) ([]uuid.UUID, error)
	// CreateTracking is idempotent per invoice id. It reports whether a row was inserted.
	CreateTracking(ctx context.Context, t InvoiceTracking) (bool, error)
	// UpdateTracking applies fn to the locked row and persists the result.
	// An error from fn aborts the update and is returned as is.
	UpdateTracking(ctx context.Context, id uuid.UUID, fn func(*InvoiceTracking) error) (InvoiceTracking, error)
}

// TxManager runs fn with exclusive access to one fleet's consolidation state.
// Stores reached through ctx inside fn take part in the same transaction.
type TxManager interface {
	RunInFleetTx(ctx context.Context, fleetID uuid.UUID, fn func(ctx context.Context) error) error
}

type LedgerStore interface {
	MemberInvoiceStore
	FleetInvoiceStore
	TrackingStore
	TxManager
}
