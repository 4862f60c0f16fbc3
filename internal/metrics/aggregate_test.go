package metrics_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantryadmin/internal/metrics"
	"pantryadmin/internal/store"
)

func TestAggregateScenarioDAUWAUTopUsers(t *testing.T) {
	// U1 has 3 events, 2 within the last 24h; U2 has 1 event 8 days old.
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	buckets := metrics.BuildBuckets(now, 7, time.UTC)

	events := []store.EventRecord{
		{ID: "e1", UID: "u1", Type: "app_open", Timestamp: now.Add(-2 * time.Hour)},
		{ID: "e2", UID: "u1", Type: "app_open", Timestamp: now.Add(-20 * time.Hour)},
		{ID: "e3", UID: "u1", Type: "post_uploaded", Timestamp: now.Add(-3 * 24 * time.Hour)},
		{ID: "e4", UID: "u2", Type: "app_open", Timestamp: now.Add(-8 * 24 * time.Hour)},
	}

	result := metrics.Aggregate(events, nil, buckets, now)

	assert.Equal(t, 1, result.DAU, "only u1 is active in the last 24h")
	assert.Equal(t, 1, result.WAU, "u2's event is outside the 7d window")

	require.Len(t, result.TopUsers, 2)
	assert.Equal(t, metrics.UserCount{UID: "u1", Count: 3}, result.TopUsers[0])
	assert.Equal(t, metrics.UserCount{UID: "u2", Count: 1}, result.TopUsers[1])
}

func TestAggregateWAUWindowIndependentOfRange(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	buckets := metrics.BuildBuckets(now, 30, time.UTC)

	// 10 days old: inside the 30d chart range, outside the 7d WAU window.
	events := []store.EventRecord{
		{ID: "e1", UID: "u1", Type: "app_open", Timestamp: now.Add(-10 * 24 * time.Hour)},
		{ID: "e2", UID: "u2", Type: "app_open", Timestamp: now.Add(-2 * 24 * time.Hour)},
	}

	result := metrics.Aggregate(events, nil, buckets, now)

	assert.Equal(t, 0, result.DAU)
	assert.Equal(t, 1, result.WAU, "WAU is always a 7-day window, even on the 30d view")
}

func TestAggregatePerDaySeries(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	buckets := metrics.BuildBuckets(now, 7, time.UTC)

	events := []store.EventRecord{
		{ID: "e1", UID: "u1", Type: "app_open", Timestamp: now.Add(-1 * time.Hour)},
		{ID: "e2", UID: "u1", Type: "app_open", Timestamp: now.Add(-2 * time.Hour)},
		{ID: "e3", UID: "u1", Type: "app_open", Timestamp: now.Add(-3 * 24 * time.Hour)},
		// Outside the range: counts toward nothing in the day series.
		{ID: "e4", UID: "u1", Type: "app_open", Timestamp: now.Add(-9 * 24 * time.Hour)},
		// No timestamp: excluded everywhere.
		{ID: "e5", UID: "u1", Type: "app_open"},
	}
	posts := []store.PostRecord{
		{ID: "p1", UID: "u1", CreatedAt: now.Add(-30 * time.Minute)},
		{ID: "p2", UserID: "u1"}, // no timestamp
	}

	result := metrics.Aggregate(events, posts, buckets, now)

	// One entry per bucket, zero-filled, in bucket order.
	require.Len(t, result.EventsPerDay, 7)
	require.Len(t, result.PostsPerDay, 7)
	for i, point := range result.EventsPerDay {
		assert.Equal(t, buckets[i], point.Day)
	}

	eventTotal := 0
	for _, point := range result.EventsPerDay {
		eventTotal += point.Count
	}
	assert.Equal(t, 3, eventTotal, "out-of-range and timestamp-less events are excluded")

	assert.Equal(t, 2, result.EventsPerDay[6].Count, "today's bucket")
	assert.Equal(t, 1, result.EventsPerDay[3].Count, "three days ago")
	assert.Equal(t, 1, result.PostsPerDay[6].Count)
}

func TestAggregateEventsByType(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	buckets := metrics.BuildBuckets(now, 7, time.UTC)

	events := []store.EventRecord{
		{ID: "e1", UID: "u1", Type: "app_open", Timestamp: now.Add(-time.Hour)},
		{ID: "e2", UID: "u1", Type: "app_open", Timestamp: now.Add(-2 * time.Hour)},
		{ID: "e3", UID: "u2", Type: "post_uploaded", Timestamp: now.Add(-time.Hour)},
		{ID: "e4", UID: "u2", Type: "", Timestamp: now.Add(-time.Hour)}, // untyped
	}

	result := metrics.Aggregate(events, nil, buckets, now)

	assert.Equal(t, map[string]int{"app_open": 2, "post_uploaded": 1}, result.EventsByType)
}

func TestAggregateOwnerlessEventsFeedSeriesOnly(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	buckets := metrics.BuildBuckets(now, 7, time.UTC)

	events := []store.EventRecord{
		{ID: "e1", Type: "app_open", Timestamp: now.Add(-time.Hour)},
	}

	result := metrics.Aggregate(events, nil, buckets, now)

	assert.Equal(t, 0, result.DAU)
	assert.Equal(t, 0, result.WAU)
	assert.Empty(t, result.TopUsers)
	assert.Equal(t, 1, result.EventsPerDay[6].Count)
	assert.Equal(t, 1, result.EventsByType["app_open"])
}

func TestAggregateTopUsersTruncationAndDeterminism(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	buckets := metrics.BuildBuckets(now, 7, time.UTC)

	// 12 distinct owners with one event each plus one heavy user.
	events := []store.EventRecord{
		{ID: "heavy1", UID: "heavy", Type: "app_open", Timestamp: now.Add(-time.Hour)},
		{ID: "heavy2", UID: "heavy", Type: "app_open", Timestamp: now.Add(-time.Hour)},
	}
	for i := 0; i < 12; i++ {
		events = append(events, store.EventRecord{
			ID:        fmt.Sprintf("e%d", i),
			UID:       fmt.Sprintf("u%02d", i),
			Type:      "app_open",
			Timestamp: now.Add(-time.Hour),
		})
	}

	first := metrics.Aggregate(events, nil, buckets, now)
	second := metrics.Aggregate(events, nil, buckets, now)

	require.Len(t, first.TopUsers, metrics.TopUserLimit)
	assert.Equal(t, "heavy", first.TopUsers[0].UID)

	// Counts strictly non-increasing.
	for i := 1; i < len(first.TopUsers); i++ {
		assert.GreaterOrEqual(t, first.TopUsers[i-1].Count, first.TopUsers[i].Count)
	}

	// Ties resolve in first-seen order, so re-running yields identical output.
	assert.Equal(t, first.TopUsers, second.TopUsers)
	assert.Equal(t, "u00", first.TopUsers[1].UID)
}

func TestAggregateEmptyInputs(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	buckets := metrics.BuildBuckets(now, 7, time.UTC)

	result := metrics.Aggregate(nil, nil, buckets, now)

	assert.Equal(t, 0, result.DAU)
	assert.Equal(t, 0, result.WAU)
	assert.Empty(t, result.TopUsers)
	assert.Empty(t, result.EventsByType)
	require.Len(t, result.EventsPerDay, 7)
	for _, point := range result.EventsPerDay {
		assert.Zero(t, point.Count)
	}
}
