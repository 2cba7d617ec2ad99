//services/billing-service/internal/recovery/aging.go

package recovery

import "time"

// AgingBucket is derived from days outstanding. It is never persisted.
type AgingBucket string

const (
	BucketCurrent  AgingBucket = "current"
	BucketAging    AgingBucket = "aging"
	BucketOverdue  AgingBucket = "overdue"
	BucketCritical AgingBucket = "critical"
)

// Upper bounds, inclusive, in days since sent.
const (
	currentMaxDays = 14
	agingMaxDays   = 30
	overdueMaxDays = 60
)

const day = 24 * time.Hour

// Buckets returns the canonical bucket order.
func Buckets() []AgingBucket {
	return []AgingBucket{BucketCurrent, BucketAging, BucketOverdue, BucketCritical}
}

// Classify returns whole days elapsed since sentAt (never negative) and the bucket they fall in.
func Classify(sentAt, now time.Time) (int, AgingBucket) {
	days := 0
	if elapsed := now.Sub(sentAt); elapsed > 0 {
		days = int(elapsed / day)
	}
	return days, bucketFor(days)
}

func bucketFor(days int) AgingBucket {
	switch {
	case days <= currentMaxDays:
		return BucketCurrent
	case days <= agingMaxDays:
		return BucketAging
	case days <= overdueMaxDays:
		return BucketOverdue
	default:
		return BucketCritical
	}
}
