// Package dashboard assembles the admin dashboard payload: it pushes the
// cohort filter to the store, fans out the remaining fetches, and feeds the
// snapshots through the metrics core. Aggregation is recomputed from
// scratch on every build; nothing here is cached or persisted.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"log/slog"

	"pantryadmin/internal/cohort"
	"pantryadmin/internal/metrics"
	"pantryadmin/internal/pkg/async"
	"pantryadmin/internal/store"
)

// globalEventWindow is the fixed lookback for the global event total shown
// in the header, independent of the selected chart range.
const globalEventWindow = 30 * metrics.DayDuration

// ErrStale reports that a newer refresh started while this one was in
// flight; its result must be discarded, not rendered.
var ErrStale = errors.New("dashboard: superseded by a newer refresh")

// Dashboard is the full payload handed to the presentation layer. It lives
// for one render pass only.
type Dashboard struct {
	Filters cohort.Filters `json:"filters"`

	GlobalUserCount   int64 `json:"globalUserCount"`
	GlobalEventCount  int64 `json:"globalEventCount"`
	SegmentUserCount  int   `json:"segmentUserCount"`
	SegmentEventCount int   `json:"segmentEventCount"`

	DAU int `json:"dau"`
	WAU int `json:"wau"`

	EventsPerDay []metrics.DayCount   `json:"eventsPerDay"`
	PostsPerDay  []metrics.DayCount   `json:"postsPerDay"`
	EventsByType map[string]int       `json:"eventsByType"`
	TopUsers     []metrics.TopUserRow `json:"topUsers"`
}

// Service builds dashboards from a store. The bucket timezone is fixed at
// construction; "now" is supplied per call so builds stay deterministic.
type Service struct {
	store  store.Store
	logger *slog.Logger
	loc    *time.Location
}

// NewService creates a dashboard service.
func NewService(st store.Store, logger *slog.Logger, loc *time.Location) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: st, logger: logger, loc: loc}
}

// Build fetches everything the dashboard needs and aggregates it. Any fetch
// failure fails the build; callers surface the error instead of rendering
// stale data.
func (s *Service) Build(ctx context.Context, filters cohort.Filters, now time.Time) (*Dashboard, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	// Cohort constraints are pushed down for users only; events and posts
	// get joined against the segment in memory.
	users, err := s.store.ListUsers(ctx, filters.Constraints())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch segment users: %w", err)
	}

	since := filters.Since(now)

	tasks := []async.Task{
		{
			Name: "globalUsers",
			Execute: func() (any, error) {
				return s.store.CountUsers(ctx)
			},
		},
		{
			Name: "globalEvents",
			Execute: func() (any, error) {
				return s.store.CountEvents(ctx, now.Add(-globalEventWindow))
			},
		},
	}

	// An empty segment needs no event or post fetch; the aggregates are
	// zero either way.
	events := []store.EventRecord{}
	posts := []store.PostRecord{}
	if len(users) > 0 {
		tasks = append(tasks,
			async.Task{
				Name: "events",
				Execute: func() (any, error) {
					return s.store.ListEvents(ctx, since)
				},
			},
			async.Task{
				Name: "posts",
				Execute: func() (any, error) {
					return s.store.ListPosts(ctx, since)
				},
			})
	}

	results := async.NewPool(len(tasks)).Execute(ctx, tasks)
	for _, task := range tasks {
		result, ok := results[task.Name]
		if !ok {
			return nil, fmt.Errorf("fetch %s cancelled: %w", task.Name, ctx.Err())
		}
		if result.Err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", task.Name, result.Err)
		}
	}

	globalUsers := results["globalUsers"].Data.(int64)
	globalEvents := results["globalEvents"].Data.(int64)
	if len(users) > 0 {
		events = results["events"].Data.([]store.EventRecord)
		posts = results["posts"].Data.([]store.PostRecord)
	}

	segment := metrics.BuildSegment(users, events, posts)
	buckets := metrics.BuildBuckets(now, filters.RangeDays(), s.loc)
	aggregates := metrics.Aggregate(segment.Events, segment.Posts, buckets, now)

	s.logger.Debug("Built dashboard",
		slog.Int("segmentUsers", len(segment.Users)),
		slog.Int("segmentEvents", len(segment.Events)),
		slog.Int("segmentPosts", len(segment.Posts)),
		slog.String("range", filters.DateRange))

	return &Dashboard{
		Filters:           filters,
		GlobalUserCount:   globalUsers,
		GlobalEventCount:  globalEvents,
		SegmentUserCount:  len(segment.Users),
		SegmentEventCount: len(segment.Events),
		DAU:               aggregates.DAU,
		WAU:               aggregates.WAU,
		EventsPerDay:      aggregates.EventsPerDay,
		PostsPerDay:       aggregates.PostsPerDay,
		EventsByType:      aggregates.EventsByType,
		TopUsers:          metrics.ResolveTopUsers(aggregates.TopUsers, segment.Users),
	}, nil
}

// Refresher serializes dashboard refreshes with a generation counter so a
// slow fetch can never overwrite the result of a newer filter change.
type Refresher struct {
	service    *Service
	generation atomic.Uint64
}

// NewRefresher wraps a service with stale-refresh detection.
func NewRefresher(service *Service) *Refresher {
	return &Refresher{service: service}
}

// Refresh builds a dashboard and returns ErrStale when another Refresh
// started after this one, whatever the build outcome was.
func (r *Refresher) Refresh(ctx context.Context, filters cohort.Filters, now time.Time) (*Dashboard, error) {
	generation := r.generation.Add(1)

	d, err := r.service.Build(ctx, filters, now)

	if r.generation.Load() != generation {
		return nil, ErrStale
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}
