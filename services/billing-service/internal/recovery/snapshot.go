//services/billing-service/internal/recovery/snapshot.go

package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Snapshot is the recovery dashboard for one owner, recomputed on every read.
type Snapshot struct {
	OwnerID     uuid.UUID                `json:"owner_id"`
	GeneratedAt time.Time                `json:"generated_at"`
	Stats       RecoveryStats            `json:"stats"`
	ROI         ROI                      `json:"roi"`
	Buckets     []BucketSummary          `json:"buckets"`
	DueNow      []ledger.InvoiceTracking `json:"due_now"`
}

// Dashboard collapses identical concurrent snapshot requests into one store scan.
// Nothing is cached between calls.
type Dashboard struct {
	store ledger.TrackingStore
	clock func() time.Time
	group singleflight.Group
}

func NewDashboard(store ledger.TrackingStore) *Dashboard {
	return &Dashboard{store: store, clock: time.Now}
}

func (d *Dashboard) WithClock(clock func() time.Time) *Dashboard {
	d.clock = clock
	return d
}

// Snapshot builds the owner's dashboard. Callers that share a scan do not depend on
// each other's contexts: the scan runs detached, and a caller whose ctx ends stops
// waiting with that error.
func (d *Dashboard) Snapshot(ctx context.Context, ownerID uuid.UUID, subscriptionCost decimal.Decimal) (Snapshot, error) {
	key := ownerID.String() + "|" + subscriptionCost.String()
	scanCtx := context.WithoutCancel(ctx)
	ch := d.group.DoChan(key, func() (any, error) {
		records, err := d.store.ListTracking(scanCtx, ownerID)
		if err != nil {
			return nil, fmt.Errorf("list tracking: %w", err)
		}
		now := d.clock().UTC()
		stats := Aggregate(records)
		return Snapshot{
			OwnerID:     ownerID,
			GeneratedAt: now,
			Stats:       stats,
			ROI:         ComputeROI(stats, subscriptionCost),
			Buckets:     BucketSummaries(records, now),
			DueNow:      FilterDue(records, now),
		}, nil
	})

	select {
	case <-ctx.Done():
		return Snapshot{}, fmt.Errorf("%w: %w", ledger.ErrStoreUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return Snapshot{}, res.Err
		}
		return res.Val.(Snapshot), nil
	}
}
