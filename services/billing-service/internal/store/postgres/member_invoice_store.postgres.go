//services/billing-service/internal/store/postgres/member_invoice_store.postgres.go

package postgres

import (
	"context"
	"fmt"

	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/ledger"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const memberColumns = `id, member_id, fleet_id, total_amount, status, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (ledger.MemberInvoice, error) {
	var (
		m      ledger.MemberInvoice
		status string
	)
	if err := row.Scan(&m.ID, &m.MemberID, &m.FleetID, &m.TotalAmount, &status, &m.CreatedAt); err != nil {
		return ledger.MemberInvoice{}, err
	}
	m.Status = ledger.MemberInvoiceStatus(status)
	m.CreatedAt = m.CreatedAt.UTC()
	return m, nil
}

func (s *Store) GetMemberInvoices(ctx context.Context, ids []uuid.UUID) ([]ledger.MemberInvoice, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	// array_position keeps the caller's order.
	query := `SELECT ` + memberColumns + `
		FROM member_invoices
		WHERE id = ANY($1::uuid[])
		ORDER BY array_position($1::uuid[], id)`
	rows, err := s.conn(ctx).QueryContext(ctx, query, pq.Array(uuidStrings(ids)))
	if err != nil {
		return nil, unavailable("get member invoices", err)
	}
	defer rows.Close()

	var out []ledger.MemberInvoice
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, unavailable("scan member invoice", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate member invoices", err)
	}
	return out, nil
}

func (s *Store) ListMemberInvoices(ctx context.Context, fleetID uuid.UUID) ([]ledger.MemberInvoice, error) {
	query := `SELECT ` + memberColumns + ` FROM member_invoices WHERE fleet_id = $1 ORDER BY created_at`
	rows, err := s.conn(ctx).QueryContext(ctx, query, fleetID)
	if err != nil {
		return nil, unavailable("list member invoices", err)
	}
	defer rows.Close()

	var out []ledger.MemberInvoice
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, unavailable("scan member invoice", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate member invoices", err)
	}
	return out, nil
}

// CreateMemberInvoice is idempotent on id.
func (s *Store) CreateMemberInvoice(ctx context.Context, inv ledger.MemberInvoice) error {
	query := `
		INSERT INTO member_invoices (id, member_id, fleet_id, total_amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`
	_, err := s.conn(ctx).ExecContext(ctx, query,
		inv.ID, inv.MemberID, inv.FleetID, inv.TotalAmount, string(inv.Status), inv.CreatedAt)
	if err != nil {
		return unavailable("create member invoice", err)
	}
	return nil
}

func (s *Store) SetMemberInvoiceStatus(ctx context.Context, id uuid.UUID, status ledger.MemberInvoiceStatus) error {
	res, err := s.conn(ctx).ExecContext(ctx, `UPDATE member_invoices SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return unavailable("set member invoice status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("set member invoice status", err)
	}
	if n == 0 {
		return fmt.Errorf("member invoice %s: %w", id, ledger.ErrNotFound)
	}
	return nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
