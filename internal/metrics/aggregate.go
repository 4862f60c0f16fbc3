package metrics

import (
	"sort"
	"time"

	"pantryadmin/internal/store"
)

// TopUserLimit caps the top-users ranking length.
const TopUserLimit = 10

// wauWindow is always 7 days, independent of the selected chart range:
// the 30-day view still reports a 7-day WAU.
const wauWindow = 7 * DayDuration

// DayCount is one point of a per-day series.
type DayCount struct {
	Day   time.Time `json:"day"`
	Count int       `json:"count"`
}

// UserCount pairs a user ID with its event count in the segment.
type UserCount struct {
	UID   string `json:"uid"`
	Count int    `json:"count"`
}

// Result holds the aggregates for one render pass. It has no identity and
// is never persisted; callers rebuild it from scratch on every refresh.
type Result struct {
	DAU          int
	WAU          int
	EventsPerDay []DayCount
	PostsPerDay  []DayCount
	EventsByType map[string]int
	TopUsers     []UserCount
}

// Aggregate derives all dashboard metrics from segment events and posts.
//
// Events missing a timestamp are excluded entirely; events missing an owner
// still feed the day and type series but not DAU/WAU or the ranking. Posts
// feed only their per-day series. Every bucket appears in the per-day
// output, zero-filled when empty. Records older than the earliest bucket
// are dropped from the day series.
func Aggregate(events []store.EventRecord, posts []store.PostRecord, buckets []time.Time, now time.Time) *Result {
	eventsPerDay := make(map[time.Time]int, len(buckets))
	postsPerDay := make(map[time.Time]int, len(buckets))
	for _, bucket := range buckets {
		eventsPerDay[bucket] = 0
		postsPerDay[bucket] = 0
	}

	typeCounts := make(map[string]int)
	userCounts := make(map[string]int)
	userOrder := make([]string, 0)
	dauSet := make(map[string]struct{})
	wauSet := make(map[string]struct{})

	dauCutoff := now.Add(-DayDuration)
	wauCutoff := now.Add(-wauWindow)

	for _, ev := range events {
		if ev.Timestamp.IsZero() {
			continue
		}

		if bucket, ok := FindBucket(ev.Timestamp, buckets); ok {
			eventsPerDay[bucket]++
		}

		if ev.Type != "" {
			typeCounts[ev.Type]++
		}

		if ev.UID == "" {
			continue
		}
		if _, seen := userCounts[ev.UID]; !seen {
			userOrder = append(userOrder, ev.UID)
		}
		userCounts[ev.UID]++

		if !ev.Timestamp.Before(dauCutoff) {
			dauSet[ev.UID] = struct{}{}
		}
		if !ev.Timestamp.Before(wauCutoff) {
			wauSet[ev.UID] = struct{}{}
		}
	}

	for _, post := range posts {
		if post.CreatedAt.IsZero() {
			continue
		}
		if bucket, ok := FindBucket(post.CreatedAt, buckets); ok {
			postsPerDay[bucket]++
		}
	}

	return &Result{
		DAU:          len(dauSet),
		WAU:          len(wauSet),
		EventsPerDay: toDaySeries(eventsPerDay, buckets),
		PostsPerDay:  toDaySeries(postsPerDay, buckets),
		EventsByType: typeCounts,
		TopUsers:     rankUsers(userCounts, userOrder),
	}
}

// toDaySeries flattens a bucket->count map into bucket order. The map is
// never iterated directly; ordering always comes from the bucket sequence.
func toDaySeries(counts map[time.Time]int, buckets []time.Time) []DayCount {
	series := make([]DayCount, 0, len(buckets))
	for _, bucket := range buckets {
		series = append(series, DayCount{Day: bucket, Count: counts[bucket]})
	}
	return series
}

// rankUsers sorts per-user counts descending and truncates to TopUserLimit.
// The sort is stable over first-seen order, so equal counts keep a
// deterministic ordering across runs on the same input.
func rankUsers(counts map[string]int, order []string) []UserCount {
	ranking := make([]UserCount, 0, len(order))
	for _, uid := range order {
		ranking = append(ranking, UserCount{UID: uid, Count: counts[uid]})
	}

	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Count > ranking[j].Count
	})

	if len(ranking) > TopUserLimit {
		ranking = ranking[:TopUserLimit]
	}
	return ranking
}
