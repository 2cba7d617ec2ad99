//services/billing-service/internal/invoice/manager.go

package invoice

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/ledger"
	"github.com/Tanmoy095/fleet-invoicing/shared/contracts"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrCascadeIncomplete is returned by RepairPaidCascade when some member invoices could not be marked paid.
var ErrCascadeIncomplete = errors.New("paid cascade incomplete")

const defaultCascadeConcurrency = 4

// Store is what the manager needs from the ledger.
type Store interface {
	ledger.MemberInvoiceStore
	ledger.FleetInvoiceStore
	ledger.TxManager
}

// Publisher emits domain events. Implemented by shared/kafka.KafkaProducer.
type Publisher interface {
	Publish(ctx context.Context, key string, value any) error
}

type Options struct {
	NumberPrefix       string
	MaxNumberAttempts  int
	CascadeConcurrency int
}

// Manager consolidates member invoices into fleet invoices and owns the fleet invoice lifecycle.
type Manager struct {
	store              Store
	numbers            *NumberGenerator
	publisher          Publisher
	log                *zap.Logger
	clock              func() time.Time
	cascadeConcurrency int
}

func NewManager(store Store, log *zap.Logger, opts Options) *Manager {
	if opts.CascadeConcurrency <= 0 {
		opts.CascadeConcurrency = defaultCascadeConcurrency
	}
	return &Manager{
		store:              store,
		numbers:            NewNumberGenerator(opts.NumberPrefix, opts.MaxNumberAttempts),
		log:                log.Named("invoice.manager"),
		clock:              time.Now,
		cascadeConcurrency: opts.CascadeConcurrency,
	}
}

func (m *Manager) WithClock(clock func() time.Time) *Manager {
	m.clock = clock
	return m
}

func (m *Manager) WithPublisher(p Publisher) *Manager {
	m.publisher = p
	return m
}

type ConsolidateRequest struct {
	FleetID          uuid.UUID
	MemberInvoiceIDs []uuid.UUID
	Recipient        ledger.Recipient
	Notes            string
	DueDate          *time.Time
}

// Consolidate merges member invoices into one draft fleet invoice.
// The overlap check and the insert run under the fleet's lock so two admins
// consolidating the same member invoice cannot both succeed.
func (m *Manager) Consolidate(ctx context.Context, req ConsolidateRequest) (ledger.FleetInvoice, error) {
	ids := uniqueIDs(req.MemberInvoiceIDs)
	if req.FleetID == uuid.Nil {
		return ledger.FleetInvoice{}, fmt.Errorf("%w: fleet id is required", ledger.ErrInvalidInput)
	}
	if len(ids) == 0 {
		return ledger.FleetInvoice{}, fmt.Errorf("%w: at least one member invoice is required", ledger.ErrInvalidInput)
	}

	var created ledger.FleetInvoice
	err := m.store.RunInFleetTx(ctx, req.FleetID, func(ctx context.Context) error {
		// 1. Every requested member invoice must exist.
		members, err := m.store.GetMemberInvoices(ctx, ids)
		if err != nil {
			return fmt.Errorf("fetch member invoices: %w", err)
		}
		if len(members) != len(ids) {
			return fmt.Errorf("member invoice %s: %w", firstMissing(ids, members), ledger.ErrNotFound)
		}
		// A member invoice is only billed through its own fleet, so the fleet lock
		// covers every fleet invoice it could already be on.
		for _, mi := range members {
			if mi.FleetID != req.FleetID {
				return fmt.Errorf("%w: member invoice %s belongs to fleet %s", ledger.ErrInvalidInput, mi.ID, mi.FleetID)
			}
		}

		// 2. None of them may already sit on a live fleet invoice.
		active, err := m.store.ListActiveFleetInvoices(ctx, req.FleetID)
		if err != nil {
			return fmt.Errorf("list active fleet invoices: %w", err)
		}
		taken := make(map[uuid.UUID]string)
		for _, fi := range active {
			for _, id := range fi.MemberInvoiceIDs {
				taken[id] = fi.InvoiceNumber
			}
		}
		for _, id := range ids {
			if number, ok := taken[id]; ok {
				return fmt.Errorf("%w: member invoice %s is on %s", ledger.ErrAlreadyConsolidated, id, number)
			}
		}

		// 3. Total is frozen now and never recomputed.
		total := decimal.Zero
		for _, mi := range members {
			total = total.Add(mi.TotalAmount)
		}

		// 4 + 5. Number and insert.
		now := m.clock().UTC()
		inv := ledger.FleetInvoice{
			ID:               uuid.New(),
			FleetID:          req.FleetID,
			MemberInvoiceIDs: ids,
			TotalAmount:      total,
			Status:           ledger.FleetDraft,
			Recipient:        req.Recipient,
			Notes:            req.Notes,
			DueDate:          req.DueDate,
			CreatedAt:        now,
		}
		if err := m.insertWithNumber(ctx, &inv, now); err != nil {
			return err
		}
		created = inv
		return nil
	})
	if err != nil {
		return ledger.FleetInvoice{}, err
	}

	m.log.Info("fleet invoice created",
		zap.String("fleet_invoice_id", created.ID.String()),
		zap.String("invoice_number", created.InvoiceNumber),
		zap.Int("members", len(created.MemberInvoiceIDs)),
		zap.String("total", created.TotalAmount.String()),
	)
	m.publish(ctx, contracts.EventFleetInvoiceCreated, created)
	return created, nil
}

// insertWithNumber tries a bounded number of candidate numbers. A candidate can lose either
// at the existence check or at the unique key on insert.
func (m *Manager) insertWithNumber(ctx context.Context, inv *ledger.FleetInvoice, now time.Time) error {
	for attempt := 1; attempt <= m.numbers.MaxAttempts(); attempt++ {
		number := m.numbers.Next(now)

		exists, err := m.store.InvoiceNumberExists(ctx, number)
		if err != nil {
			return fmt.Errorf("check invoice number: %w", err)
		}
		if exists {
			m.log.Debug("invoice number collision", zap.String("number", number), zap.Int("attempt", attempt))
			continue
		}

		inv.InvoiceNumber = number
		err = m.store.CreateFleetInvoice(ctx, *inv)
		if errors.Is(err, ledger.ErrDuplicateNumber) {
			m.log.Debug("invoice number taken on insert", zap.String("number", number), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return fmt.Errorf("create fleet invoice: %w", err)
		}
		return nil
	}
	inv.InvoiceNumber = ""
	return fmt.Errorf("%w: %d attempts", ledger.ErrNumberGenerationFailed, m.numbers.MaxAttempts())
}

func (m *Manager) Get(ctx context.Context, id uuid.UUID) (ledger.FleetInvoice, error) {
	return m.store.GetFleetInvoice(ctx, id)
}

func (m *Manager) List(ctx context.Context, filter ledger.FleetInvoiceFilter) ([]ledger.FleetInvoice, error) {
	return m.store.ListFleetInvoices(ctx, filter)
}

// UpdateStatus moves a fleet invoice along the state machine. Moving to paid also marks
// every member invoice paid; failures there are logged and left for RepairPaidCascade.
func (m *Manager) UpdateStatus(ctx context.Context, id uuid.UUID, to ledger.FleetInvoiceStatus) (ledger.FleetInvoice, error) {
	if !to.Valid() {
		return ledger.FleetInvoice{}, fmt.Errorf("%w: unknown status %q", ledger.ErrInvalidTransition, to)
	}
	inv, err := m.store.GetFleetInvoice(ctx, id)
	if err != nil {
		return ledger.FleetInvoice{}, err
	}
	if !CanTransition(inv.Status, to) {
		return ledger.FleetInvoice{}, fmt.Errorf("%w: %s -> %s", ledger.ErrInvalidTransition, inv.Status, to)
	}

	// The store re-checks the current status, so a concurrent transition makes this one fail.
	now := m.clock().UTC()
	if err := m.store.TransitionFleetInvoice(ctx, id, inv.Status, to, now); err != nil {
		return ledger.FleetInvoice{}, err
	}
	from := inv.Status
	inv.Status = to
	switch to {
	case ledger.FleetSent:
		inv.SentAt = &now
	case ledger.FleetPaid:
		inv.PaidAt = &now
		if failed := m.cascadePaid(ctx, inv); failed > 0 {
			m.log.Warn("paid cascade incomplete",
				zap.String("fleet_invoice_id", id.String()),
				zap.Int("failed", failed),
				zap.Int("members", len(inv.MemberInvoiceIDs)),
			)
		}
	}

	m.log.Info("fleet invoice status changed",
		zap.String("fleet_invoice_id", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	m.publish(ctx, eventFor(to), inv)
	return inv, nil
}

// RepairPaidCascade re-applies the paid status to the member invoices of a paid fleet invoice.
// Safe to run any number of times.
func (m *Manager) RepairPaidCascade(ctx context.Context, id uuid.UUID) error {
	inv, err := m.store.GetFleetInvoice(ctx, id)
	if err != nil {
		return err
	}
	if inv.Status != ledger.FleetPaid {
		return fmt.Errorf("%w: fleet invoice %s is %s, not paid", ledger.ErrInvalidTransition, id, inv.Status)
	}
	if failed := m.cascadePaid(ctx, inv); failed > 0 {
		return fmt.Errorf("%w: %d of %d member invoices", ErrCascadeIncomplete, failed, len(inv.MemberInvoiceIDs))
	}
	return nil
}

// cascadePaid never fails the caller. It returns how many member writes failed.
func (m *Manager) cascadePaid(ctx context.Context, inv ledger.FleetInvoice) int {
	var (
		g      errgroup.Group
		failed atomic.Int32
	)
	g.SetLimit(m.cascadeConcurrency)
	for _, memberID := range inv.MemberInvoiceIDs {
		g.Go(func() error {
			if err := m.store.SetMemberInvoiceStatus(ctx, memberID, ledger.MemberPaid); err != nil {
				failed.Add(1)
				m.log.Error("mark member invoice paid",
					zap.String("fleet_invoice_id", inv.ID.String()),
					zap.String("member_invoice_id", memberID.String()),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(failed.Load())
}

// Delete removes a fleet invoice that was never sent.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	if err := m.store.DeleteDraftFleetInvoice(ctx, id); err != nil {
		return err
	}
	m.log.Info("draft fleet invoice deleted", zap.String("fleet_invoice_id", id.String()))
	return nil
}

func (m *Manager) publish(ctx context.Context, event string, inv ledger.FleetInvoice) {
	if m.publisher == nil || event == "" {
		return
	}
	ev := contracts.FleetInvoiceEvent{
		Event:            event,
		FleetInvoiceID:   inv.ID,
		FleetID:          inv.FleetID,
		InvoiceNumber:    inv.InvoiceNumber,
		Status:           string(inv.Status),
		TotalAmount:      inv.TotalAmount,
		MemberInvoiceIDs: inv.MemberInvoiceIDs,
		OccurredAt:       m.clock().UTC(),
	}
	// The ledger is already committed; a lost event is recovered by consumers re-reading state.
	if err := m.publisher.Publish(ctx, inv.ID.String(), ev); err != nil {
		m.log.Warn("publish fleet invoice event", zap.String("event", event), zap.String("fleet_invoice_id", inv.ID.String()), zap.Error(err))
	}
}

func eventFor(s ledger.FleetInvoiceStatus) string {
	switch s {
	case ledger.FleetSent:
		return contracts.EventFleetInvoiceSent
	case ledger.FleetPaid:
		return contracts.EventFleetInvoicePaid
	case ledger.FleetVoid:
		return contracts.EventFleetInvoiceVoided
	}
	return ""
}

// uniqueIDs drops repeats and uuid.Nil, keeping first-seen order.
func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func firstMissing(ids []uuid.UUID, found []ledger.MemberInvoice) uuid.UUID {
	have := make(map[uuid.UUID]struct{}, len(found))
	for _, mi := range found {
		have[mi.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			return id
		}
	}
	return uuid.Nil
}
