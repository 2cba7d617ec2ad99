//services/billing-service/internal/store/postgres/tracking_store.postgres.go

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/ledger"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const trackingColumns = `id, invoice_id, owner_id, amount_invoiced, amount_received, payment_status,
	reminder_count, last_reminder_at, next_reminder_at, sent_at, paid_at, notes, created_at`

func scanTracking(row rowScanner) (ledger.InvoiceTracking, error) {
	var (
		t                      ledger.InvoiceTracking
		status                 string
		lastAt, nextAt, paidAt sql.NullTime
	)
	err := row.Scan(
		&t.ID, &t.InvoiceID, &t.OwnerID, &t.AmountInvoiced, &t.AmountReceived, &status,
		&t.ReminderCount, &lastAt, &nextAt, &t.SentAt, &paidAt, &t.Notes, &t.CreatedAt,
	)
	if err != nil {
		return ledger.InvoiceTracking{}, err
	}
	t.PaymentStatus = ledger.PaymentStatus(status)
	t.LastReminderAt, t.NextReminderAt, t.PaidAt = timePtr(lastAt), timePtr(nextAt), timePtr(paidAt)
	t.SentAt, t.CreatedAt = t.SentAt.UTC(), t.CreatedAt.UTC()
	return t, nil
}

func (s *Store) getTracking(ctx context.Context, where string, arg any) (ledger.InvoiceTracking, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `SELECT `+trackingColumns+` FROM invoice_tracking WHERE `+where, arg)
	t, err := scanTracking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.InvoiceTracking{}, fmt.Errorf("tracking %v: %w", arg, ledger.ErrNotFound)
	}
	if err != nil {
		return ledger.InvoiceTracking{}, unavailable("get tracking", err)
	}
	return t, nil
}

func (s *Store) GetTracking(ctx context.Context, id uuid.UUID) (ledger.InvoiceTracking, error) {
	return s.getTracking(ctx, `id = $1`, id)
}

func (s *Store) GetTrackingByInvoice(ctx context.Context, invoiceID uuid.UUID) (ledger.InvoiceTracking, error) {
	return s.getTracking(ctx, `invoice_id = $1`, invoiceID)
}

func (s *Store) ListTracking(ctx context.Context, ownerID uuid.UUID, statuses ...ledger.PaymentStatus) ([]ledger.InvoiceTracking, error) {
	query := `SELECT ` + trackingColumns + ` FROM invoice_tracking WHERE owner_id = $1`
	args := []any{ownerID}
	if len(statuses) > 0 {
		names := make([]string, len(statuses))
		for i, st := range statuses {
			names[i] = string(st)
		}
		query += ` AND payment_status = ANY($2::text[])`
		args = append(args, pq.Array(names))
	}
	query += ` ORDER BY sent_at`

	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("list tracking", err)
	}
	defer rows.Close()

	var out []ledger.InvoiceTracking
	for rows.Next() {
		t, err := scanTracking(rows)
		if err != nil {
			return nil, unavailable("scan tracking", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate tracking", err)
	}
	return out, nil
}

func (s *Store) ListTrackingOwners(ctx context.Context, status ledger.PaymentStatus) ([]uuid.UUID, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT DISTINCT owner_id FROM invoice_tracking WHERE payment_status = $1 ORDER BY owner_id`, string(status))
	if err != nil {
		return nil, unavailable("list tracking owners", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, unavailable("scan tracking owner", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate tracking owners", err)
	}
	return out, nil
}

// CreateTracking is idempotent: a second record for the same invoice is silently skipped.
func (s *Store) CreateTracking(ctx context.Context, t ledger.InvoiceTracking) (bool, error) {
	query := `
		INSERT INTO invoice_tracking (
			id, invoice_id, owner_id, amount_invoiced, amount_received, payment_status,
			reminder_count, last_reminder_at, next_reminder_at, sent_at, paid_at, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (invoice_id) DO NOTHING`
	res, err := s.conn(ctx).ExecContext(ctx, query,
		t.ID, t.InvoiceID, t.OwnerID, t.AmountInvoiced, t.AmountReceived, string(t.PaymentStatus),
		t.ReminderCount, nullTime(t.LastReminderAt), nullTime(t.NextReminderAt), t.SentAt,
		nullTime(t.PaidAt), t.Notes, t.CreatedAt,
	)
	if err != nil {
		return false, unavailable("create tracking", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("create tracking", err)
	}
	return n > 0, nil
}

// UpdateTracking locks the row with SELECT ... FOR UPDATE, applies fn and writes back.
func (s *Store) UpdateTracking(ctx context.Context, id uuid.UUID, fn func(*ledger.InvoiceTracking) error) (ledger.InvoiceTracking, error) {
	var out ledger.InvoiceTracking
	err := s.runInTx(ctx, func(ctx context.Context) error {
		q := s.conn(ctx)
		row := q.QueryRowContext(ctx, `SELECT `+trackingColumns+` FROM invoice_tracking WHERE id = $1 FOR UPDATE`, id)
		t, err := scanTracking(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("tracking %s: %w", id, ledger.ErrNotFound)
		}
		if err != nil {
			return unavailable("lock tracking", err)
		}

		if err := fn(&t); err != nil {
			return err
		}

		query := `
			UPDATE invoice_tracking
			SET amount_received = $2, payment_status = $3, reminder_count = $4,
			    last_reminder_at = $5, next_reminder_at = $6, paid_at = $7, notes = $8
			WHERE id = $1`
		_, err = q.ExecContext(ctx, query,
			id, t.AmountReceived, string(t.PaymentStatus), t.ReminderCount,
			nullTime(t.LastReminderAt), nullTime(t.NextReminderAt), nullTime(t.PaidAt), t.Notes,
		)
		if err != nil {
			return unavailable("update tracking", err)
		}
		t.ID = id
		out = t
		return nil
	})
	if err != nil {
		return ledger.InvoiceTracking{}, err
	}
	return out, nil
}
