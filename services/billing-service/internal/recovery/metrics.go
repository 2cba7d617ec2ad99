//services/billing-service/internal/recovery/metrics.go

package recovery

import (
	"time"

	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/ledger"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type RecoveryStats struct {
	Total          int             `json:"total"`
	Pending        int             `json:"pending"`
	Partial        int             `json:"partial"`
	Paid           int             `json:"paid"`
	Disputed       int             `json:"disputed"`
	WrittenOff     int             `json:"written_off"`
	TotalInvoiced  decimal.Decimal `json:"total_invoiced"`
	TotalReceived  decimal.Decimal `json:"total_received"`
	PendingAmount  decimal.Decimal `json:"pending_amount"`
	CollectionRate decimal.Decimal `json:"collection_rate"` // percent, one decimal place
}

type ROI struct {
	TotalReceived    decimal.Decimal `json:"total_received"`
	SubscriptionCost decimal.Decimal `json:"subscription_cost"`
	RoiMultiplier    decimal.Decimal `json:"roi_multiplier"`
	NetGain          decimal.Decimal `json:"net_gain"`
}

type BucketSummary struct {
	Bucket AgingBucket     `json:"bucket"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// Aggregate counts records by payment status and sums their amounts.
// Only paid and partial records contribute to TotalReceived.
func Aggregate(records []ledger.InvoiceTracking) RecoveryStats {
	stats := RecoveryStats{
		TotalInvoiced:  decimal.Zero,
		TotalReceived:  decimal.Zero,
		PendingAmount:  decimal.Zero,
		CollectionRate: decimal.Zero,
	}
	for _, r := range records {
		stats.Total++
		stats.TotalInvoiced = stats.TotalInvoiced.Add(r.AmountInvoiced)
		switch r.PaymentStatus {
		case ledger.PaymentPending:
			stats.Pending++
		case ledger.PaymentPartial:
			stats.Partial++
			stats.TotalReceived = stats.TotalReceived.Add(r.AmountReceived)
		case ledger.PaymentPaid:
			stats.Paid++
			stats.TotalReceived = stats.TotalReceived.Add(r.AmountReceived)
		case ledger.PaymentDisputed:
			stats.Disputed++
		case ledger.PaymentWrittenOff:
			stats.WrittenOff++
		}
	}
	stats.PendingAmount = stats.TotalInvoiced.Sub(stats.TotalReceived)
	if !stats.TotalInvoiced.IsZero() {
		stats.CollectionRate = stats.TotalReceived.Div(stats.TotalInvoiced).Mul(hundred).Round(1)
	}
	return stats
}

// ComputeROI relates what was recovered to what the subscription cost.
func ComputeROI(stats RecoveryStats, subscriptionCost decimal.Decimal) ROI {
	roi := ROI{
		TotalReceived:    stats.TotalReceived,
		SubscriptionCost: subscriptionCost,
		RoiMultiplier:    decimal.Zero,
		NetGain:          stats.TotalReceived.Sub(subscriptionCost).Round(2),
	}
	if !subscriptionCost.IsZero() {
		roi.RoiMultiplier = stats.TotalReceived.Div(subscriptionCost).Round(1)
	}
	return roi
}

// BucketSummaries always returns the four buckets in canonical order. Only open
// (pending or partial) records are counted.
func BucketSummaries(records []ledger.InvoiceTracking, now time.Time) []BucketSummary {
	buckets := Buckets()
	index := make(map[AgingBucket]int, len(buckets))
	out := make([]BucketSummary, len(buckets))
	for i, b := range buckets {
		index[b] = i
		out[i] = BucketSummary{Bucket: b, Amount: decimal.Zero}
	}
	for _, r := range records {
		if r.PaymentStatus != ledger.PaymentPending && r.PaymentStatus != ledger.PaymentPartial {
			continue
		}
		_, b := Classify(r.SentAt, now)
		s := &out[index[b]]
		s.Count++
		s.Amount = s.Amount.Add(r.Outstanding())
	}
	return out
}
