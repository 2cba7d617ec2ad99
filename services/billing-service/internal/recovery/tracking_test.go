package recovery

import (
	"context"
	"testing"
	"time"

	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/ledger"
	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/store/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var sentAt = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

func openTracking(t *testing.T, tr *Tracker, amount string) ledger.InvoiceTracking {
	t.Helper()
	rec, err := tr.OpenTracking(context.Background(), OpenTrackingRequest{
		InvoiceID: uuid.New(),
		OwnerID:   uuid.New(),
		Amount:    decimal.RequireFromString(amount),
		SentAt:    sentAt,
	})
	require.NoError(t, err)
	return rec
}

func TestOpenTracking(t *testing.T) {
	s := memory.New()
	tr := NewTracker(s, zap.NewNop())
	req := OpenTrackingRequest{InvoiceID: uuid.New(), OwnerID: uuid.New(), Amount: decimal.NewFromInt(250), SentAt: sentAt}

	rec, err := tr.OpenTracking(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, ledger.PaymentPending, rec.PaymentStatus)
	assert.Equal(t, 0, rec.ReminderCount)
	assert.True(t, rec.AmountReceived.IsZero())
	require.NotNil(t, rec.NextReminderAt)
	assert.Equal(t, sentAt.Add(7*day), *rec.NextReminderAt)

	again, err := tr.OpenTracking(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, again.ID)

	_, err = tr.OpenTracking(context.Background(), OpenTrackingRequest{OwnerID: uuid.New()})
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
}

func TestRecordPayment(t *testing.T) {
	tr := NewTracker(memory.New(), zap.NewNop())
	rec := openTracking(t, tr, "500")

	got, err := tr.RecordPayment(context.Background(), rec.ID, decimal.NewFromInt(200))
	require.NoError(t, err)
	assert.Equal(t, ledger.PaymentPartial, got.PaymentStatus)
	assert.True(t, decimal.NewFromInt(200).Equal(got.AmountReceived))
	assert.Nil(t, got.PaidAt)

	// Overpayment is capped at the invoiced amount.
	got, err = tr.RecordPayment(context.Background(), rec.ID, decimal.NewFromInt(400))
	require.NoError(t, err)
	assert.Equal(t, ledger.PaymentPaid, got.PaymentStatus)
	assert.True(t, decimal.NewFromInt(500).Equal(got.AmountReceived))
	assert.NotNil(t, got.PaidAt)
	assert.Nil(t, got.NextReminderAt)

	_, err = tr.RecordPayment(context.Background(), rec.ID, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
}

func TestRecordPayment_Validation(t *testing.T) {
	tr := NewTracker(memory.New(), zap.NewNop())
	rec := openTracking(t, tr, "100")

	_, err := tr.RecordPayment(context.Background(), rec.ID, decimal.Zero)
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
	_, err = tr.RecordPayment(context.Background(), rec.ID, decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
	_, err = tr.RecordPayment(context.Background(), uuid.New(), decimal.NewFromInt(5))
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestDisputeAndWriteOff(t *testing.T) {
	tr := NewTracker(memory.New(), zap.NewNop())

	disputed := openTracking(t, tr, "100")
	got, err := tr.MarkDisputed(context.Background(), disputed.ID, "payer says detention not owed")
	require.NoError(t, err)
	assert.Equal(t, ledger.PaymentDisputed, got.PaymentStatus)
	assert.Equal(t, "payer says detention not owed", got.Notes)

	_, err = tr.MarkDisputed(context.Background(), disputed.ID, "")
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)

	got, err = tr.WriteOff(context.Background(), disputed.ID, "")
	require.NoError(t, err)
	assert.Equal(t, ledger.PaymentWrittenOff, got.PaymentStatus)
	assert.Equal(t, "payer says detention not owed", got.Notes)

	_, err = tr.RecordPayment(context.Background(), disputed.ID, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)

	paid := openTracking(t, tr, "50")
	_, err = tr.RecordPayment(context.Background(), paid.ID, decimal.NewFromInt(50))
	require.NoError(t, err)
	_, err = tr.WriteOff(context.Background(), paid.ID, "")
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
}

func TestSettleInvoice(t *testing.T) {
	s := memory.New()
	tr := NewTracker(s, zap.NewNop())
	rec := openTracking(t, tr, "300")

	require.NoError(t, tr.SettleInvoice(context.Background(), rec.InvoiceID))
	got, err := tr.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.PaymentPaid, got.PaymentStatus)
	assert.True(t, got.AmountInvoiced.Equal(got.AmountReceived))

	// Repeats and untracked invoices are fine.
	require.NoError(t, tr.SettleInvoice(context.Background(), rec.InvoiceID))
	require.NoError(t, tr.SettleInvoice(context.Background(), uuid.New()))
}
