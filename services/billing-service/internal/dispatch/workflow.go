//services/billing-service/internal/dispatch/workflow.go

package dispatch

import (
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const TaskQueue = "FLEET_INVOICE_TASK_QUEUE"

type SendRequest struct {
	FleetInvoiceID uuid.UUID `json:"fleet_invoice_id"`
	// OwnerID owns the recovery tracking. Defaults to the fleet.
	OwnerID uuid.UUID `json:"owner_id"`
}

type SendResult struct {
	Invoice    SentInvoice `json:"invoice"`
	TrackingID uuid.UUID   `json:"tracking_id"`
}

func activityOptions() workflow.ActivityOptions {
	// If the ledger is down keep retrying with backoff; bad input fails at once.
	return workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    10,
		},
	}
}

// SendFleetInvoiceWorkflow marks the invoice sent, then opens its recovery tracking.
// Temporal guarantees the second step runs once the first has committed.
func SendFleetInvoiceWorkflow(ctx workflow.Context, req SendRequest) (SendResult, error) {
	ctx = workflow.WithActivityOptions(ctx, activityOptions())
	var a *Activities

	var sent SentInvoice
	if err := workflow.ExecuteActivity(ctx, a.MarkSent, req.FleetInvoiceID).Get(ctx, &sent); err != nil {
		return SendResult{}, err
	}

	owner := req.OwnerID
	if owner == uuid.Nil {
		owner = sent.FleetID
	}
	var trackingID uuid.UUID
	err := workflow.ExecuteActivity(ctx, a.OpenTracking, OpenTrackingInput{
		InvoiceID: sent.FleetInvoiceID,
		OwnerID:   owner,
		Amount:    sent.TotalAmount,
		SentAt:    sent.SentAt,
	}).Get(ctx, &trackingID)
	if err != nil {
		return SendResult{}, err
	}

	workflow.GetLogger(ctx).Info("fleet invoice sent", "invoice_number", sent.InvoiceNumber, "tracking_id", trackingID.String())
	return SendResult{Invoice: sent, TrackingID: trackingID}, nil
}
