//services/billing-service/internal/dispatch/dispatcher.go

package dispatch

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
)

// Dispatcher runs the send flow of a fleet invoice.
type Dispatcher interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}

// InlineDispatcher runs both steps in the calling goroutine. Used when no Temporal
// server is configured. A crash between the steps leaves a sent invoice without
// tracking; sending again repairs it.
type InlineDispatcher struct {
	acts *Activities
	log  *zap.Logger
}

func NewInlineDispatcher(acts *Activities, log *zap.Logger) *InlineDispatcher {
	return &InlineDispatcher{acts: acts, log: log.Named("dispatch.inline")}
}

func (d *InlineDispatcher) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	sent, err := d.acts.markSent(ctx, req.FleetInvoiceID)
	if err != nil {
		return SendResult{}, err
	}
	owner := req.OwnerID
	if owner == uuid.Nil {
		owner = sent.FleetID
	}
	trackingID, err := d.acts.openTracking(ctx, OpenTrackingInput{
		InvoiceID: sent.FleetInvoiceID,
		OwnerID:   owner,
		Amount:    sent.TotalAmount,
		SentAt:    sent.SentAt,
	})
	if err != nil {
		d.log.Error("invoice sent but tracking not opened", zap.String("fleet_invoice_id", sent.FleetInvoiceID.String()), zap.Error(err))
		return SendResult{}, fmt.Errorf("open tracking: %w", err)
	}
	return SendResult{Invoice: sent, TrackingID: trackingID}, nil
}

// TemporalDispatcher starts SendFleetInvoiceWorkflow and waits for its result.
type TemporalDispatcher struct {
	client client.Client
	log    *zap.Logger
}

func NewTemporalDispatcher(c client.Client, log *zap.Logger) *TemporalDispatcher {
	return &TemporalDispatcher{client: c, log: log.Named("dispatch.temporal")}
}

func (d *TemporalDispatcher) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	opts := client.StartWorkflowOptions{
		// One send flow per invoice at a time.
		ID:        "send-fleet-invoice-" + req.FleetInvoiceID.String(),
		TaskQueue: TaskQueue,
	}
	run, err := d.client.ExecuteWorkflow(ctx, opts, SendFleetInvoiceWorkflow, req)
	if err != nil {
		return SendResult{}, fmt.Errorf("start send workflow: %w", err)
	}
	d.log.Info("send workflow started", zap.String("workflow_id", run.GetID()), zap.String("run_id", run.GetRunID()))

	var res SendResult
	if err := run.Get(ctx, &res); err != nil {
		return SendResult{}, fromApplicationError(err)
	}
	return res, nil
}
