//services/billing-service/internal/recovery/tracking.go

package recovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Tracker is the payment recording path. All tracking writes other than reminders go through it.
type Tracker struct {
	store ledger.TrackingStore
	log   *zap.Logger
	clock func() time.Time
}

func NewTracker(store ledger.TrackingStore, log *zap.Logger) *Tracker {
	return &Tracker{store: store, log: log.Named("recovery.tracker"), clock: time.Now}
}

func (t *Tracker) WithClock(clock func() time.Time) *Tracker {
	t.clock = clock
	return t
}

type OpenTrackingRequest struct {
	InvoiceID uuid.UUID
	OwnerID   uuid.UUID
	Amount    decimal.Decimal
	SentAt    time.Time
}

// OpenTracking starts recovery bookkeeping for a sent invoice. Calling it again for the
// same invoice returns the existing record.
func (t *Tracker) OpenTracking(ctx context.Context, req OpenTrackingRequest) (ledger.InvoiceTracking, error) {
	if req.InvoiceID == uuid.Nil || req.OwnerID == uuid.Nil {
		return ledger.InvoiceTracking{}, fmt.Errorf("%w: invoice and owner ids are required", ledger.ErrInvalidInput)
	}
	if req.Amount.IsNegative() {
		return ledger.InvoiceTracking{}, fmt.Errorf("%w: negative invoiced amount", ledger.ErrInvalidInput)
	}
	sentAt := req.SentAt.UTC()
	if req.SentAt.IsZero() {
		sentAt = t.clock().UTC()
	}
	next := sentAt.Add(NextReminderInterval(0))
	rec := ledger.InvoiceTracking{
		ID:             uuid.New(),
		InvoiceID:      req.InvoiceID,
		OwnerID:        req.OwnerID,
		AmountInvoiced: req.Amount,
		AmountReceived: decimal.Zero,
		PaymentStatus:  ledger.PaymentPending,
		NextReminderAt: &next,
		SentAt:         sentAt,
		CreatedAt:      t.clock().UTC(),
	}

	created, err := t.store.CreateTracking(ctx, rec)
	if err != nil {
		return ledger.InvoiceTracking{}, fmt.Errorf("create tracking: %w", err)
	}
	if !created {
		return t.store.GetTrackingByInvoice(ctx, req.InvoiceID)
	}
	t.log.Info("tracking opened", zap.String("invoice_id", req.InvoiceID.String()), zap.String("amount", req.Amount.String()))
	return rec, nil
}

func (t *Tracker) Get(ctx context.Context, id uuid.UUID) (ledger.InvoiceTracking, error) {
	return t.store.GetTracking(ctx, id)
}

// RecordPayment adds a received amount. The record is paid once the full amount is in,
// partial before that. Received never exceeds invoiced.
func (t *Tracker) RecordPayment(ctx context.Context, trackingID uuid.UUID, amount decimal.Decimal) (ledger.InvoiceTracking, error) {
	if !amount.IsPositive() {
		return ledger.InvoiceTracking{}, fmt.Errorf("%w: payment amount must be positive", ledger.ErrInvalidInput)
	}
	now := t.clock().UTC()
	rec, err := t.store.UpdateTracking(ctx, trackingID, func(rec *ledger.InvoiceTracking) error {
		switch rec.PaymentStatus {
		case ledger.PaymentPaid, ledger.PaymentWrittenOff:
			return fmt.Errorf("%w: cannot record payment on %s invoice", ledger.ErrInvalidTransition, rec.PaymentStatus)
		}
		rec.AmountReceived = decimal.Min(rec.AmountReceived.Add(amount), rec.AmountInvoiced)
		if rec.AmountReceived.GreaterThanOrEqual(rec.AmountInvoiced) {
			markPaid(rec, now)
		} else {
			rec.PaymentStatus = ledger.PaymentPartial
		}
		return nil
	})
	if err != nil {
		return ledger.InvoiceTracking{}, fmt.Errorf("record payment: %w", err)
	}
	t.log.Info("payment recorded",
		zap.String("tracking_id", trackingID.String()),
		zap.String("amount", amount.String()),
		zap.String("status", string(rec.PaymentStatus)),
	)
	return rec, nil
}

// MarkDisputed flags an open invoice as contested by the payer.
func (t *Tracker) MarkDisputed(ctx context.Context, trackingID uuid.UUID, notes string) (ledger.InvoiceTracking, error) {
	return t.setStatus(ctx, trackingID, ledger.PaymentDisputed, notes, ledger.PaymentPending, ledger.PaymentPartial)
}

// WriteOff gives up on collecting the rest of the invoice.
func (t *Tracker) WriteOff(ctx context.Context, trackingID uuid.UUID, notes string) (ledger.InvoiceTracking, error) {
	return t.setStatus(ctx, trackingID, ledger.PaymentWrittenOff, notes, ledger.PaymentPending, ledger.PaymentPartial, ledger.PaymentDisputed)
}

func (t *Tracker) setStatus(ctx context.Context, id uuid.UUID, to ledger.PaymentStatus, notes string, from ...ledger.PaymentStatus) (ledger.InvoiceTracking, error) {
	rec, err := t.store.UpdateTracking(ctx, id, func(rec *ledger.InvoiceTracking) error {
		allowed := false
		for _, s := range from {
			if rec.PaymentStatus == s {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("%w: %s -> %s", ledger.ErrInvalidTransition, rec.PaymentStatus, to)
		}
		rec.PaymentStatus = to
		if notes != "" {
			rec.Notes = notes
		}
		return nil
	})
	if err != nil {
		return ledger.InvoiceTracking{}, fmt.Errorf("set tracking status: %w", err)
	}
	t.log.Info("tracking status changed", zap.String("tracking_id", id.String()), zap.String("status", string(to)))
	return rec, nil
}

// SettleInvoice marks the tracking of a paid invoice as fully received.
// An invoice that was never tracked is not an error.
func (t *Tracker) SettleInvoice(ctx context.Context, invoiceID uuid.UUID) error {
	rec, err := t.store.GetTrackingByInvoice(ctx, invoiceID)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("settle invoice: %w", err)
	}
	if rec.PaymentStatus == ledger.PaymentPaid {
		return nil
	}
	now := t.clock().UTC()
	_, err = t.store.UpdateTracking(ctx, rec.ID, func(rec *ledger.InvoiceTracking) error {
		if rec.PaymentStatus == ledger.PaymentPaid {
			return nil
		}
		rec.AmountReceived = rec.AmountInvoiced
		markPaid(rec, now)
		return nil
	})
	if err != nil {
		return fmt.Errorf("settle invoice: %w", err)
	}
	return nil
}

func markPaid(rec *ledger.InvoiceTracking, at time.Time) {
	rec.PaymentStatus = ledger.PaymentPaid
	rec.PaidAt = &at
	rec.NextReminderAt = nil
}
