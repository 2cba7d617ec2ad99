//services/billing-service/internal/store/memory/store.memory.go

// Package memory is an in-process ledger store for tests and local runs.
// RunInFleetTx gives mutual exclusion per fleet but no rollback.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/ledger"
	"github.com/google/uuid"
)

type Store struct {
	mu       sync.RWMutex
	members  map[uuid.UUID]ledger.MemberInvoice
	fleets   map[uuid.UUID]ledger.FleetInvoice
	numbers  map[string]uuid.UUID
	tracking map[uuid.UUID]ledger.InvoiceTracking
	byInv    map[uuid.UUID]uuid.UUID // invoice id -> tracking id

	locksMu    sync.Mutex
	fleetLocks map[uuid.UUID]*sync.Mutex
}

var _ ledger.LedgerStore = (*Store)(nil)

func New() *Store {
	return &Store{
		members:    make(map[uuid.UUID]ledger.MemberInvoice),
		fleets:     make(map[uuid.UUID]ledger.FleetInvoice),
		numbers:    make(map[string]uuid.UUID),
		tracking:   make(map[uuid.UUID]ledger.InvoiceTracking),
		byInv:      make(map[uuid.UUID]uuid.UUID),
		fleetLocks: make(map[uuid.UUID]*sync.Mutex),
	}
}

func alive(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrStoreUnavailable, err)
	}
	return nil
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneFleet(f ledger.FleetInvoice) ledger.FleetInvoice {
	f.MemberInvoiceIDs = append([]uuid.UUID(nil), f.MemberInvoiceIDs...)
	f.DueDate = cloneTime(f.DueDate)
	f.SentAt = cloneTime(f.SentAt)
	f.PaidAt = cloneTime(f.PaidAt)
	return f
}

func cloneTracking(t ledger.InvoiceTracking) ledger.InvoiceTracking {
	t.LastReminderAt = cloneTime(t.LastReminderAt)
	t.NextReminderAt = cloneTime(t.NextReminderAt)
	t.PaidAt = cloneTime(t.PaidAt)
	return t
}

// ---- Tx ----

func (s *Store) fleetLock(fleetID uuid.UUID) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.fleetLocks[fleetID]
	if !ok {
		l = &sync.Mutex{}
		s.fleetLocks[fleetID] = l
	}
	return l
}

func (s *Store) RunInFleetTx(ctx context.Context, fleetID uuid.UUID, fn func(ctx context.Context) error) error {
	if err := alive(ctx); err != nil {
		return err
	}
	l := s.fleetLock(fleetID)
	l.Lock()
	defer l.Unlock()
	return fn(ctx)
}

// ---- Member invoices ----

func (s *Store) GetMemberInvoices(ctx context.Context, ids []uuid.UUID) ([]ledger.MemberInvoice, error) {
	if err := alive(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.MemberInvoice, 0, len(ids))
	for _, id := range ids {
		if m, ok := s.members[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) ListMemberInvoices(ctx context.Context, fleetID uuid.UUID) ([]ledger.MemberInvoice, error) {
	if err := alive(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ledger.MemberInvoice
	for _, m := range s.members {
		if m.FleetID == fleetID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateMemberInvoice(ctx context.Context, inv ledger.MemberInvoice) error {
	if err := alive(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[inv.ID]; ok {
		return nil
	}
	s.members[inv.ID] = inv
	return nil
}

func (s *Store) SetMemberInvoiceStatus(ctx context.Context, id uuid.UUID, status ledger.MemberInvoiceStatus) error {
	if err := alive(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return fmt.Errorf("member invoice %s: %w", id, ledger.ErrNotFound)
	}
	m.Status = status
	s.members[id] = m
	return nil
}

// ---- Fleet invoices ----

func (s *Store) GetFleetInvoice(ctx context.Context, id uuid.UUID) (ledger.FleetInvoice, error) {
	if err := alive(ctx); err != nil {
		return ledger.FleetInvoice{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.fleets[id]
	if !ok {
		return ledger.FleetInvoice{}, fmt.Errorf("fleet invoice %s: %w", id, ledger.ErrNotFound)
	}
	return cloneFleet(f), nil
}

func (s *Store) ListFleetInvoices(ctx context.Context, filter ledger.FleetInvoiceFilter) ([]ledger.FleetInvoice, error) {
	if err := alive(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ledger.FleetInvoice
	for _, f := range s.fleets {
		if filter.FleetID != uuid.Nil && f.FleetID != filter.FleetID {
			continue
		}
		if filter.Status != "" && f.Status != filter.Status {
			continue
		}
		out = append(out, cloneFleet(f))
	}
	// newest first, like the postgres listing
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) ListActiveFleetInvoices(ctx context.Context, fleetID uuid.UUID) ([]ledger.FleetInvoice, error) {
	if err := alive(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ledger.FleetInvoice
	for _, f := range s.fleets {
		if f.FleetID == fleetID && f.Status != ledger.FleetVoid {
			out = append(out, cloneFleet(f))
		}
	}
	return out, nil
}

func (s *Store) InvoiceNumberExists(ctx context.Context, number string) (bool, error) {
	if err := alive(ctx); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.numbers[number]
	return ok, nil
}

func (s *Store) CreateFleetInvoice(ctx context.Context, inv ledger.FleetInvoice) error {
	if err := alive(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.numbers[inv.InvoiceNumber]; ok {
		return fmt.Errorf("invoice number %s: %w", inv.InvoiceNumber, ledger.ErrDuplicateNumber)
	}
	s.fleets[inv.ID] = cloneFleet(inv)
	s.numbers[inv.InvoiceNumber] = inv.ID
	return nil
}

func (s *Store) TransitionFleetInvoice(ctx context.Context, id uuid.UUID, from, to ledger.FleetInvoiceStatus, at time.Time) error {
	if err := alive(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fleets[id]
	if !ok {
		return fmt.Errorf("fleet invoice %s: %w", id, ledger.ErrNotFound)
	}
	if f.Status != from {
		return fmt.Errorf("%w: fleet invoice %s is %s, expected %s", ledger.ErrInvalidTransition, id, f.Status, from)
	}
	f.Status = to
	switch to {
	case ledger.FleetSent:
		f.SentAt = &at
	case ledger.FleetPaid:
		f.PaidAt = &at
	}
	s.fleets[id] = f
	return nil
}

func (s *Store) DeleteDraftFleetInvoice(ctx context.Context, id uuid.UUID) error {
	if err := alive(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fleets[id]
	if !ok {
		return fmt.Errorf("fleet invoice %s: %w", id, ledger.ErrNotFound)
	}
	if f.Status != ledger.FleetDraft {
		return fmt.Errorf("%w: fleet invoice %s is %s", ledger.ErrNotDeletable, id, f.Status)
	}
	delete(s.fleets, id)
	delete(s.numbers, f.InvoiceNumber)
	return nil
}

// ---- Tracking ----

func (s *Store) GetTracking(ctx context.Context, id uuid.UUID) (ledger.InvoiceTracking, error) {
	if err := alive(ctx); err != nil {
		return ledger.InvoiceTracking{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tracking[id]
	if !ok {
		return ledger.InvoiceTracking{}, fmt.Errorf("tracking %s: %w", id, ledger.ErrNotFound)
	}
	return cloneTracking(t), nil
}

func (s *Store) GetTrackingByInvoice(ctx context.Context, invoiceID uuid.UUID) (ledger.InvoiceTracking, error) {
	if err := alive(ctx); err != nil {
		return ledger.InvoiceTracking{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byInv[invoiceID]
	if !ok {
		return ledger.InvoiceTracking{}, fmt.Errorf("tracking for invoice %s: %w", invoiceID, ledger.ErrNotFound)
	}
	return cloneTracking(s.tracking[id]), nil
}

func (s *Store) ListTracking(ctx context.Context, ownerID uuid.UUID, statuses ...ledger.PaymentStatus) ([]ledger.InvoiceTracking, error) {
	if err := alive(ctx); err != nil {
		return nil, err
	}
	want := make(map[ledger.PaymentStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ledger.InvoiceTracking
	for _, t := range s.tracking {
		if t.OwnerID != ownerID {
			continue
		}
		if len(want) > 0 && !want[t.PaymentStatus] {
			continue
		}
		out = append(out, cloneTracking(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SentAt.Before(out[j].SentAt) })
	return out, nil
}

func (s *Store) ListTrackingOwners(ctx context.Context, status ledger.PaymentStatus) ([]uuid.UUID, error) {
	if err := alive(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	for _, t := range s.tracking {
		if t.PaymentStatus != status || seen[t.OwnerID] {
			continue
		}
		seen[t.OwnerID] = true
		out = append(out, t.OwnerID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (s *Store) CreateTracking(ctx context.Context, t ledger.InvoiceTracking) (bool, error) {
	if err := alive(ctx); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byInv[t.InvoiceID]; ok {
		return false, nil
	}
	s.tracking[t.ID] = cloneTracking(t)
	s.byInv[t.InvoiceID] = t.ID
	return true, nil
}

func (s *Store) UpdateTracking(ctx context.Context, id uuid.UUID, fn func(*ledger.InvoiceTracking) error) (ledger.InvoiceTracking, error) {
	if err := alive(ctx); err != nil {
		return ledger.InvoiceTracking{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.tracking[id]
	if !ok {
		return ledger.InvoiceTracking{}, fmt.Errorf("tracking %s: %w", id, ledger.ErrNotFound)
	}
	next := cloneTracking(cur)
	if err := fn(&next); err != nil {
		return ledger.InvoiceTracking{}, err
	}
	// id and invoice id are the record's identity
	next.ID, next.InvoiceID = cur.ID, cur.InvoiceID
	s.tracking[id] = cloneTracking(next)
	return next, nil
}
