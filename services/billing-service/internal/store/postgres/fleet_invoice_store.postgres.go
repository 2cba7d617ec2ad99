//services/billing-service/internal/store/postgres/fleet_invoice_store.postgres.go

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/ledger"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const fleetColumns = `id, fleet_id, invoice_number, member_invoice_ids, total_amount, status,
	recipient_name, recipient_email, recipient_company, recipient_address,
	notes, due_date, created_at, sent_at, paid_at`

func scanFleet(row rowScanner) (ledger.FleetInvoice, error) {
	var (
		f                       ledger.FleetInvoice
		members                 []string
		status                  string
		dueDate, sentAt, paidAt sql.NullTime
	)
	err := row.Scan(
		&f.ID, &f.FleetID, &f.InvoiceNumber, pq.Array(&members), &f.TotalAmount, &status,
		&f.Recipient.Name, &f.Recipient.Email, &f.Recipient.Company, &f.Recipient.Address,
		&f.Notes, &dueDate, &f.CreatedAt, &sentAt, &paidAt,
	)
	if err != nil {
		return ledger.FleetInvoice{}, err
	}
	f.MemberInvoiceIDs = make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			return ledger.FleetInvoice{}, fmt.Errorf("member invoice id %q: %w", m, err)
		}
		f.MemberInvoiceIDs = append(f.MemberInvoiceIDs, id)
	}
	f.Status = ledger.FleetInvoiceStatus(status)
	f.CreatedAt = f.CreatedAt.UTC()
	f.DueDate, f.SentAt, f.PaidAt = timePtr(dueDate), timePtr(sentAt), timePtr(paidAt)
	return f, nil
}

func (s *Store) queryFleets(ctx context.Context, op, query string, args ...any) ([]ledger.FleetInvoice, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer rows.Close()

	var out []ledger.FleetInvoice
	for rows.Next() {
		f, err := scanFleet(rows)
		if err != nil {
			return nil, unavailable(op, err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}
	return out, nil
}

func (s *Store) GetFleetInvoice(ctx context.Context, id uuid.UUID) (ledger.FleetInvoice, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `SELECT `+fleetColumns+` FROM fleet_invoices WHERE id = $1`, id)
	f, err := scanFleet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.FleetInvoice{}, fmt.Errorf("fleet invoice %s: %w", id, ledger.ErrNotFound)
	}
	if err != nil {
		return ledger.FleetInvoice{}, unavailable("get fleet invoice", err)
	}
	return f, nil
}

func (s *Store) ListFleetInvoices(ctx context.Context, filter ledger.FleetInvoiceFilter) ([]ledger.FleetInvoice, error) {
	var (
		where []string
		args  []any
	)
	if filter.FleetID != uuid.Nil {
		args = append(args, filter.FleetID)
		where = append(where, fmt.Sprintf("fleet_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + fleetColumns + ` FROM fleet_invoices`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return s.queryFleets(ctx, "list fleet invoices", query, args...)
}

func (s *Store) ListActiveFleetInvoices(ctx context.Context, fleetID uuid.UUID) ([]ledger.FleetInvoice, error) {
	query := `SELECT ` + fleetColumns + ` FROM fleet_invoices WHERE fleet_id = $1 AND status <> 'void'`
	return s.queryFleets(ctx, "list active fleet invoices", query, fleetID)
}

func (s *Store) InvoiceNumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM fleet_invoices WHERE invoice_number = $1)`, number).Scan(&exists)
	if err != nil {
		return false, unavailable("check invoice number", err)
	}
	return exists, nil
}

// CreateFleetInvoice maps the invoice number unique key to ledger.ErrDuplicateNumber.
// Inside a transaction the insert runs under a savepoint so the caller can retry.
func (s *Store) CreateFleetInvoice(ctx context.Context, inv ledger.FleetInvoice) error {
	q := s.conn(ctx)
	_, inTx := txFrom(ctx)
	if inTx {
		if _, err := q.ExecContext(ctx, `SAVEPOINT create_fleet_invoice`); err != nil {
			return unavailable("savepoint", err)
		}
	}

	query := `
		INSERT INTO fleet_invoices (
			id, fleet_id, invoice_number, member_invoice_ids, total_amount, status,
			recipient_name, recipient_email, recipient_company, recipient_address,
			notes, due_date, created_at)
		VALUES ($1, $2, $3, $4::uuid[], $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := q.ExecContext(ctx, query,
		inv.ID, inv.FleetID, inv.InvoiceNumber, pq.Array(uuidStrings(inv.MemberInvoiceIDs)),
		inv.TotalAmount, string(inv.Status),
		inv.Recipient.Name, inv.Recipient.Email, inv.Recipient.Company, inv.Recipient.Address,
		inv.Notes, nullTime(inv.DueDate), inv.CreatedAt,
	)
	if err != nil {
		if inTx {
			if _, rbErr := q.ExecContext(ctx, `ROLLBACK TO SAVEPOINT create_fleet_invoice`); rbErr != nil {
				return unavailable("rollback to savepoint", rbErr)
			}
		}
		if isUniqueViolation(err, invoiceNumberUniqueKey) {
			return fmt.Errorf("invoice number %s: %w", inv.InvoiceNumber, ledger.ErrDuplicateNumber)
		}
		return unavailable("create fleet invoice", err)
	}

	if inTx {
		if _, err := q.ExecContext(ctx, `RELEASE SAVEPOINT create_fleet_invoice`); err != nil {
			return unavailable("release savepoint", err)
		}
	}
	return nil
}

// TransitionFleetInvoice is a compare-and-swap: UPDATE ... WHERE status = from.
func (s *Store) TransitionFleetInvoice(ctx context.Context, id uuid.UUID, from, to ledger.FleetInvoiceStatus, at time.Time) error {
	query := `
		UPDATE fleet_invoices
		SET status  = $3::text,
		    sent_at = CASE WHEN $3::text = 'sent' THEN $4::timestamptz ELSE sent_at END,
		    paid_at = CASE WHEN $3::text = 'paid' THEN $4::timestamptz ELSE paid_at END
		WHERE id = $1 AND status = $2::text`
	res, err := s.conn(ctx).ExecContext(ctx, query, id, string(from), string(to), at)
	if err != nil {
		return unavailable("transition fleet invoice", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("transition fleet invoice", err)
	}
	if n > 0 {
		return nil
	}

	// 0 rows: either the invoice is gone or another writer moved it first.
	current, err := s.fleetStatus(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: fleet invoice %s is %s, expected %s", ledger.ErrInvalidTransition, id, current, from)
}

func (s *Store) DeleteDraftFleetInvoice(ctx context.Context, id uuid.UUID) error {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM fleet_invoices WHERE id = $1 AND status = 'draft'`, id)
	if err != nil {
		return unavailable("delete fleet invoice", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("delete fleet invoice", err)
	}
	if n > 0 {
		return nil
	}
	current, err := s.fleetStatus(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: fleet invoice %s is %s", ledger.ErrNotDeletable, id, current)
}

func (s *Store) fleetStatus(ctx context.Context, id uuid.UUID) (string, error) {
	var status string
	err := s.conn(ctx).QueryRowContext(ctx, `SELECT status FROM fleet_invoices WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("fleet invoice %s: %w", id, ledger.ErrNotFound)
	}
	if err != nil {
		return "", unavailable("read fleet invoice status", err)
	}
	return status, nil
}
