package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/ledger"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pq.Error{Code: "23505", Constraint: invoiceNumberUniqueKey}
	other := &pq.Error{Code: "23505", Constraint: "invoice_tracking_invoice_id_key"}
	fk := &pq.Error{Code: "23503"}

	assert.True(t, isUniqueViolation(dup, invoiceNumberUniqueKey))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", dup), invoiceNumberUniqueKey))
	assert.False(t, isUniqueViolation(other, invoiceNumberUniqueKey))
	assert.True(t, isUniqueViolation(other, ""))
	assert.False(t, isUniqueViolation(fk, ""))
	assert.False(t, isUniqueViolation(errors.New("boom"), ""))
}

func TestUnavailableWrapsBoth(t *testing.T) {
	cause := errors.New("connection reset")
	err := unavailable("get fleet invoice", cause)
	assert.ErrorIs(t, err, ledger.ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "get fleet invoice")
}

func TestNullTimeRoundTrip(t *testing.T) {
	assert.Nil(t, timePtr(nullTime(nil)))
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	got := timePtr(nullTime(&at))
	require.NotNil(t, got)
	assert.Equal(t, at, *got)
}

// The tests below need a real database: FLEET_TEST_DATABASE_URL=postgres://...

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("FLEET_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("FLEET_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(ctx, db))
	return New(db)
}

func seedMember(t *testing.T, s *Store, fleetID uuid.UUID, amount string) ledger.MemberInvoice {
	t.Helper()
	m := ledger.MemberInvoice{
		ID:          uuid.New(),
		MemberID:    uuid.New(),
		FleetID:     fleetID,
		TotalAmount: decimal.RequireFromString(amount),
		Status:      ledger.MemberSent,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, s.CreateMemberInvoice(context.Background(), m))
	return m
}

func TestPostgres_FleetInvoiceLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	fleet := uuid.New()
	a, b := seedMember(t, s, fleet, "10.25"), seedMember(t, s, fleet, "4.75")

	got, err := s.GetMemberInvoices(ctx, []uuid.UUID{b.ID, a.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, b.ID, got[0].ID)

	due := time.Now().UTC().Add(30 * 24 * time.Hour).Truncate(time.Microsecond)
	inv := ledger.FleetInvoice{
		ID:               uuid.New(),
		FleetID:          fleet,
		InvoiceNumber:    "TST-" + uuid.NewString()[:8],
		MemberInvoiceIDs: []uuid.UUID{a.ID, b.ID},
		TotalAmount:      decimal.RequireFromString("15.00"),
		Status:           ledger.FleetDraft,
		Recipient:        ledger.Recipient{Name: "AP", Company: "Shipper Co"},
		DueDate:          &due,
		CreatedAt:        time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, s.CreateFleetInvoice(ctx, inv))
	assert.ErrorIs(t, s.CreateFleetInvoice(ctx, ledger.FleetInvoice{
		ID: uuid.New(), FleetID: fleet, InvoiceNumber: inv.InvoiceNumber,
		MemberInvoiceIDs: []uuid.UUID{a.ID}, TotalAmount: decimal.Zero, Status: ledger.FleetDraft, CreatedAt: inv.CreatedAt,
	}), ledger.ErrDuplicateNumber)

	stored, err := s.GetFleetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.MemberInvoiceIDs, stored.MemberInvoiceIDs)
	assert.True(t, inv.TotalAmount.Equal(stored.TotalAmount))
	require.NotNil(t, stored.DueDate)
	assert.True(t, due.Equal(*stored.DueDate))

	at := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, s.TransitionFleetInvoice(ctx, inv.ID, ledger.FleetDraft, ledger.FleetSent, at))
	assert.ErrorIs(t, s.TransitionFleetInvoice(ctx, inv.ID, ledger.FleetDraft, ledger.FleetSent, at), ledger.ErrInvalidTransition)
	assert.ErrorIs(t, s.TransitionFleetInvoice(ctx, uuid.New(), ledger.FleetDraft, ledger.FleetSent, at), ledger.ErrNotFound)
	assert.ErrorIs(t, s.DeleteDraftFleetInvoice(ctx, inv.ID), ledger.ErrNotDeletable)

	active, err := s.ListActiveFleetInvoices(ctx, fleet)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.NotNil(t, active[0].SentAt)
	assert.True(t, at.Equal(*active[0].SentAt))
}

func TestPostgres_DuplicateNumberInsideFleetTxIsRecoverable(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	fleet := uuid.New()
	m := seedMember(t, s, fleet, "1")
	number := "TST-" + uuid.NewString()[:8]
	base := ledger.FleetInvoice{FleetID: fleet, MemberInvoiceIDs: []uuid.UUID{m.ID}, TotalAmount: decimal.NewFromInt(1), Status: ledger.FleetVoid, CreatedAt: time.Now().UTC()}

	first := base
	first.ID, first.InvoiceNumber = uuid.New(), number
	require.NoError(t, s.CreateFleetInvoice(ctx, first))

	err := s.RunInFleetTx(ctx, fleet, func(ctx context.Context) error {
		dup := base
		dup.ID, dup.InvoiceNumber = uuid.New(), number
		if err := s.CreateFleetInvoice(ctx, dup); !errors.Is(err, ledger.ErrDuplicateNumber) {
			return fmt.Errorf("expected duplicate, got %v", err)
		}
		retry := base
		retry.ID, retry.InvoiceNumber = uuid.New(), number+"-2"
		return s.CreateFleetInvoice(ctx, retry)
	})
	require.NoError(t, err)

	exists, err := s.InvoiceNumberExists(ctx, number+"-2")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPostgres_TrackingUpdatesAreSerialized(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	owner := uuid.New()
	rec := ledger.InvoiceTracking{
		ID: uuid.New(), InvoiceID: uuid.New(), OwnerID: owner,
		AmountInvoiced: decimal.NewFromInt(100), AmountReceived: decimal.Zero,
		PaymentStatus: ledger.PaymentPending, SentAt: time.Now().UTC(), CreatedAt: time.Now().UTC(),
	}
	created, err := s.CreateTracking(ctx, rec)
	require.NoError(t, err)
	require.True(t, created)
	created, err = s.CreateTracking(ctx, rec)
	require.NoError(t, err)
	assert.False(t, created)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdateTracking(ctx, rec.ID, func(t *ledger.InvoiceTracking) error {
				t.ReminderCount++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.GetTracking(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.ReminderCount)

	owners, err := s.ListTrackingOwners(ctx, ledger.PaymentPending)
	require.NoError(t, err)
	assert.Contains(t, owners, owner)

	pending, err := s.ListTracking(ctx, owner, ledger.PaymentPending, ledger.PaymentPartial)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}
