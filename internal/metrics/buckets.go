// Package metrics is the in-memory aggregation core of the dashboard.
// Everything here is a pure function of its inputs: "now" is always an
// explicit parameter and no function reads the clock or any global state.
package metrics

import "time"

// DayDuration is the fixed length of one day bucket.
const DayDuration = 24 * time.Hour

// BuildBuckets returns rangeDays day-start timestamps in loc, oldest first.
// The newest bucket is today's midnight relative to now; each earlier
// bucket is the midnight of the preceding day. rangeDays is 7 or 30;
// other values are a caller error.
func BuildBuckets(now time.Time, rangeDays int, loc *time.Location) []time.Time {
	if loc == nil {
		loc = time.UTC
	}

	buckets := make([]time.Time, 0, rangeDays)
	for i := rangeDays - 1; i >= 0; i-- {
		day := now.Add(-time.Duration(i) * DayDuration).In(loc)
		buckets = append(buckets,
			time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc))
	}
	return buckets
}

// FindBucket returns the latest bucket at or before ts, scanning from the
// most recent bucket backwards. ok is false when ts precedes every bucket,
// i.e. the record falls outside the selected range.
func FindBucket(ts time.Time, buckets []time.Time) (time.Time, bool) {
	for i := len(buckets) - 1; i >= 0; i-- {
		if !ts.Before(buckets[i]) {
			return buckets[i], true
		}
	}
	return time.Time{}, false
}
