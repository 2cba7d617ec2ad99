package recovery

import (
	"testing"
	"time"

	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func record(status ledger.PaymentStatus, invoiced, received string, sent time.Time) ledger.InvoiceTracking {
	return ledger.InvoiceTracking{
		PaymentStatus:  status,
		AmountInvoiced: dec(invoiced),
		AmountReceived: dec(received),
		SentAt:         sent,
	}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func TestAggregate_Empty(t *testing.T) {
	stats := Aggregate(nil)
	assert.Equal(t, 0, stats.Total)
	assertDecimal(t, "0", stats.TotalInvoiced)
	assertDecimal(t, "0", stats.TotalReceived)
	assertDecimal(t, "0", stats.PendingAmount)
	assertDecimal(t, "0", stats.CollectionRate)
}

func TestAggregate_CollectionRate(t *testing.T) {
	var records []ledger.InvoiceTracking
	for i := 0; i < 7; i++ {
		records = append(records, record(ledger.PaymentPaid, "500", "500", time.Time{}))
	}
	for i := 0; i < 3; i++ {
		records = append(records, record(ledger.PaymentPending, "500", "0", time.Time{}))
	}

	stats := Aggregate(records)
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 7, stats.Paid)
	assert.Equal(t, 3, stats.Pending)
	assertDecimal(t, "5000", stats.TotalInvoiced)
	assertDecimal(t, "3500", stats.TotalReceived)
	assertDecimal(t, "1500", stats.PendingAmount)
	assertDecimal(t, "70.0", stats.CollectionRate)
}

func TestAggregate_OnlyPaidAndPartialCountAsReceived(t *testing.T) {
	stats := Aggregate([]ledger.InvoiceTracking{
		record(ledger.PaymentPartial, "300", "100", time.Time{}),
		record(ledger.PaymentDisputed, "200", "50", time.Time{}),
		record(ledger.PaymentWrittenOff, "100", "0", time.Time{}),
	})
	assert.Equal(t, 1, stats.Partial)
	assert.Equal(t, 1, stats.Disputed)
	assert.Equal(t, 1, stats.WrittenOff)
	assertDecimal(t, "100", stats.TotalReceived)
	assertDecimal(t, "500", stats.PendingAmount)
	assertDecimal(t, "16.7", stats.CollectionRate)
}

func TestComputeROI(t *testing.T) {
	roi := ComputeROI(RecoveryStats{TotalReceived: dec("3500")}, dec("12.99"))
	assertDecimal(t, "269.4", roi.RoiMultiplier)
	assertDecimal(t, "3487.01", roi.NetGain)

	free := ComputeROI(RecoveryStats{TotalReceived: dec("3500")}, decimal.Zero)
	assertDecimal(t, "0", free.RoiMultiplier)
	assertDecimal(t, "3500", free.NetGain)

	loss := ComputeROI(RecoveryStats{TotalReceived: decimal.Zero}, dec("49.99"))
	assertDecimal(t, "-49.99", loss.NetGain)
}

func TestBucketSummaries(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	ago := func(days int) time.Time { return now.Add(-time.Duration(days) * day) }

	empty := BucketSummaries(nil, now)
	require.Len(t, empty, 4)
	for i, b := range Buckets() {
		assert.Equal(t, b, empty[i].Bucket)
		assert.Equal(t, 0, empty[i].Count)
		assertDecimal(t, "0", empty[i].Amount)
	}

	got := BucketSummaries([]ledger.InvoiceTracking{
		record(ledger.PaymentPending, "100", "0", ago(3)),
		record(ledger.PaymentPartial, "100", "40", ago(14)),
		record(ledger.PaymentPending, "200", "0", ago(15)),
		record(ledger.PaymentPending, "80", "0", ago(61)),
		record(ledger.PaymentPaid, "999", "999", ago(90)),
		record(ledger.PaymentDisputed, "999", "0", ago(90)),
	}, now)

	require.Len(t, got, 4)
	assert.Equal(t, 2, got[0].Count)
	assertDecimal(t, "160", got[0].Amount)
	assert.Equal(t, 1, got[1].Count)
	assertDecimal(t, "200", got[1].Amount)
	assert.Equal(t, 0, got[2].Count)
	assert.Equal(t, 1, got[3].Count)
	assertDecimal(t, "80", got[3].Amount)
}
