//services/billing-service/internal/dispatch/activities.go

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/ledger"
	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/recovery"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.temporal.io/sdk/temporal"
)

// Application error types carried across the Temporal boundary.
const (
	errTypeNotFound          = "NotFound"
	errTypeInvalidTransition = "InvalidTransition"
	errTypeInvalidInput      = "InvalidInput"
)

type InvoiceSender interface {
	Get(ctx context.Context, id uuid.UUID) (ledger.FleetInvoice, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, to ledger.FleetInvoiceStatus) (ledger.FleetInvoice, error)
}

type TrackingOpener interface {
	OpenTracking(ctx context.Context, req recovery.OpenTrackingRequest) (ledger.InvoiceTracking, error)
}

// SentInvoice is the part of a sent fleet invoice the send flow carries between steps.
type SentInvoice struct {
	FleetInvoiceID uuid.UUID       `json:"fleet_invoice_id"`
	FleetID        uuid.UUID       `json:"fleet_id"`
	InvoiceNumber  string          `json:"invoice_number"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	SentAt         time.Time       `json:"sent_at"`
}

type OpenTrackingInput struct {
	InvoiceID uuid.UUID       `json:"invoice_id"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Amount    decimal.Decimal `json:"amount"`
	SentAt    time.Time       `json:"sent_at"`
}

// Activities are the two ledger writes of sending a fleet invoice. Both are safe to repeat.
type Activities struct {
	Invoices InvoiceSender
	Tracker  TrackingOpener
}

// MarkSent moves the invoice to sent.
func (a *Activities) MarkSent(ctx context.Context, fleetInvoiceID uuid.UUID) (SentInvoice, error) {
	s, err := a.markSent(ctx, fleetInvoiceID)
	return s, asApplicationError(err)
}

// OpenTracking starts recovery tracking for the sent invoice and returns the tracking id.
func (a *Activities) OpenTracking(ctx context.Context, in OpenTrackingInput) (uuid.UUID, error) {
	id, err := a.openTracking(ctx, in)
	return id, asApplicationError(err)
}

func (a *Activities) markSent(ctx context.Context, id uuid.UUID) (SentInvoice, error) {
	inv, err := a.Invoices.UpdateStatus(ctx, id, ledger.FleetSent)
	if errors.Is(err, ledger.ErrInvalidTransition) {
		// A retry can land after its own earlier attempt already committed.
		if cur, getErr := a.Invoices.Get(ctx, id); getErr == nil && cur.Status == ledger.FleetSent {
			inv, err = cur, nil
		}
	}
	if err != nil {
		return SentInvoice{}, err
	}
	sentAt := time.Now().UTC()
	if inv.SentAt != nil {
		sentAt = *inv.SentAt
	}
	return SentInvoice{
		FleetInvoiceID: inv.ID,
		FleetID:        inv.FleetID,
		InvoiceNumber:  inv.InvoiceNumber,
		TotalAmount:    inv.TotalAmount,
		SentAt:         sentAt,
	}, nil
}

func (a *Activities) openTracking(ctx context.Context, in OpenTrackingInput) (uuid.UUID, error) {
	rec, err := a.Tracker.OpenTracking(ctx, recovery.OpenTrackingRequest{
		InvoiceID: in.InvoiceID,
		OwnerID:   in.OwnerID,
		Amount:    in.Amount,
		SentAt:    in.SentAt,
	})
	if err != nil {
		return uuid.Nil, err
	}
	return rec.ID, nil
}

// asApplicationError marks errors that no retry can fix as non-retryable.
// Everything else, store outages included, stays retryable.
func asApplicationError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledger.ErrNotFound):
		return temporal.NewNonRetryableApplicationError(err.Error(), errTypeNotFound, err)
	case errors.Is(err, ledger.ErrInvalidTransition):
		return temporal.NewNonRetryableApplicationError(err.Error(), errTypeInvalidTransition, err)
	case errors.Is(err, ledger.ErrInvalidInput):
		return temporal.NewNonRetryableApplicationError(err.Error(), errTypeInvalidInput, err)
	}
	return err
}

// fromApplicationError restores the ledger sentinel after a round trip through Temporal.
func fromApplicationError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return err
	}
	switch appErr.Type() {
	case errTypeNotFound:
		return fmt.Errorf("%w: %w", ledger.ErrNotFound, err)
	case errTypeInvalidTransition:
		return fmt.Errorf("%w: %w", ledger.ErrInvalidTransition, err)
	case errTypeInvalidInput:
		return fmt.Errorf("%w: %w", ledger.ErrInvalidInput, err)
	}
	return err
}
