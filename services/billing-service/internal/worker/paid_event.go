//services/billing-service/internal/worker/paid_event.go

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/ledger"
	"github.com/Tanmoy095/fleet-invoicing/shared/contracts"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CascadeRepairer interface {
	RepairPaidCascade(ctx context.Context, fleetInvoiceID uuid.UUID) error
}

type InvoiceSettler interface {
	SettleInvoice(ctx context.Context, invoiceID uuid.UUID) error
}

// PaidEventHandler consumes fleet_invoice.paid events. It finishes anything the paid
// transition left undone: member invoices still unpaid and tracking still open.
type PaidEventHandler struct {
	cascade CascadeRepairer
	settler InvoiceSettler
	log     *zap.Logger
}

func NewPaidEventHandler(cascade CascadeRepairer, settler InvoiceSettler, log *zap.Logger) *PaidEventHandler {
	return &PaidEventHandler{cascade: cascade, settler: settler, log: log.Named("worker.paid_events")}
}

// Handle matches shared/kafka.Handler. A returned error leaves the message uncommitted.
func (h *PaidEventHandler) Handle(ctx context.Context, key, value []byte) error {
	var ev contracts.FleetInvoiceEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		// Redelivering a malformed message would never succeed.
		h.log.Error("drop malformed event", zap.ByteString("key", key), zap.Error(err))
		return nil
	}
	if ev.Event != contracts.EventFleetInvoicePaid {
		return nil
	}

	log := h.log.With(zap.String("fleet_invoice_id", ev.FleetInvoiceID.String()))
	err := h.cascade.RepairPaidCascade(ctx, ev.FleetInvoiceID)
	switch {
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, ledger.ErrInvalidTransition):
		// Deleted or no longer paid; nothing to finish.
		log.Warn("skip paid event", zap.Error(err))
		return nil
	case err != nil:
		return fmt.Errorf("repair paid cascade: %w", err)
	}

	if err := h.settler.SettleInvoice(ctx, ev.FleetInvoiceID); err != nil {
		return fmt.Errorf("settle tracking: %w", err)
	}
	log.Info("paid event processed")
	return nil
}
