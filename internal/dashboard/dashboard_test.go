package dashboard_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantryadmin/internal/cohort"
	"pantryadmin/internal/dashboard"
	"pantryadmin/internal/store"
)

// fakeStore is an in-memory Store that applies user constraints itself and
// records which calls were made.
type fakeStore struct {
	mu    sync.Mutex
	users []store.UserRecord
	event []store.EventRecord
	posts []store.PostRecord

	listEventsErr error
	calls         []string
	userGate      chan struct{} // when set, ListUsers blocks until closed
}

func (f *fakeStore) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeStore) callCount(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, c := range f.calls {
		if c == call {
			count++
		}
	}
	return count
}

func (f *fakeStore) called(call string) bool {
	return f.callCount(call) > 0
}

func (f *fakeStore) ListUsers(ctx context.Context, constraints []store.Constraint) ([]store.UserRecord, error) {
	f.record("ListUsers")
	if f.userGate != nil {
		<-f.userGate
	}
	var out []store.UserRecord
	for _, u := range f.users {
		match := true
		for _, c := range constraints {
			switch c.Field {
			case "userType":
				match = match && u.UserType == c.Value
			case "abTestGroup":
				match = match && u.ABTestGroup == c.Value
			default:
				return nil, store.ErrUnknownField
			}
		}
		if match {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeStore) ListEvents(ctx context.Context, since time.Time) ([]store.EventRecord, error) {
	f.record("ListEvents")
	if f.listEventsErr != nil {
		return nil, f.listEventsErr
	}
	var out []store.EventRecord
	for _, ev := range f.event {
		if !ev.Timestamp.Before(since) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeStore) ListPosts(ctx context.Context, since time.Time) ([]store.PostRecord, error) {
	f.record("ListPosts")
	var out []store.PostRecord
	for _, p := range f.posts {
		if !p.CreatedAt.Before(since) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) CountUsers(ctx context.Context) (int64, error) {
	f.record("CountUsers")
	return int64(len(f.users)), nil
}

func (f *fakeStore) CountEvents(ctx context.Context, since time.Time) (int64, error) {
	f.record("CountEvents")
	var count int64
	for _, ev := range f.event {
		if !ev.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) ListJournalEntries(ctx context.Context, since, until time.Time) ([]store.JournalEntryRecord, error) {
	return nil, nil
}

func (f *fakeStore) ListCheckIns(ctx context.Context, since, until time.Time) ([]store.CheckInRecord, error) {
	return nil, nil
}

func (f *fakeStore) AddEvent(ctx context.Context, event store.EventRecord) error {
	return errors.New("read-only fake")
}

func testNow() time.Time {
	return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
}

func seededStore(now time.Time) *fakeStore {
	return &fakeStore{
		users: []store.UserRecord{
			{ID: "u1", DisplayName: "Ada", Email: "ada@example.com", UserType: store.UserTypeStudent, ABTestGroup: store.ABTestGroupA},
			{ID: "u2", DisplayName: "Grace", Email: "grace@example.com", UserType: store.UserTypeWorkingProfessional, ABTestGroup: store.ABTestGroupB},
		},
		event: []store.EventRecord{
			{ID: "e1", UID: "u1", Type: "app_open", Timestamp: now.Add(-2 * time.Hour)},
			{ID: "e2", UID: "u1", Type: "post_uploaded", Timestamp: now.Add(-3 * 24 * time.Hour)},
			{ID: "e3", UID: "u2", Type: "app_open", Timestamp: now.Add(-2 * 24 * time.Hour)},
		},
		posts: []store.PostRecord{
			{ID: "p1", UID: "u1", CreatedAt: now.Add(-time.Hour)},
			{ID: "p2", UserID: "u2", CreatedAt: now.Add(-4 * 24 * time.Hour)},
		},
	}
}

func TestServiceBuild(t *testing.T) {
	now := testNow()
	st := seededStore(now)
	service := dashboard.NewService(st, nil, time.UTC)

	d, err := service.Build(context.Background(), cohort.DefaultFilters(), now)

	require.NoError(t, err)
	assert.Equal(t, int64(2), d.GlobalUserCount)
	assert.Equal(t, int64(3), d.GlobalEventCount)
	assert.Equal(t, 2, d.SegmentUserCount)
	assert.Equal(t, 3, d.SegmentEventCount)
	assert.Equal(t, 1, d.DAU)
	assert.Equal(t, 2, d.WAU)
	require.Len(t, d.EventsPerDay, 7)
	require.Len(t, d.PostsPerDay, 7)
	assert.Equal(t, map[string]int{"app_open": 2, "post_uploaded": 1}, d.EventsByType)

	require.Len(t, d.TopUsers, 2)
	assert.Equal(t, "u1", d.TopUsers[0].ID)
	assert.Equal(t, 2, d.TopUsers[0].EventCount)
	assert.Equal(t, "ada@example.com", d.TopUsers[0].Email)
}

func TestServiceBuildCohortPushdown(t *testing.T) {
	now := testNow()
	st := seededStore(now)
	service := dashboard.NewService(st, nil, time.UTC)

	filters := cohort.Filters{UserType: "student", Variant: "all", DateRange: "7d"}
	d, err := service.Build(context.Background(), filters, now)

	require.NoError(t, err)
	assert.Equal(t, 1, d.SegmentUserCount)
	assert.Equal(t, 2, d.SegmentEventCount, "u2's events are joined out")
	// Global totals ignore the cohort filter.
	assert.Equal(t, int64(2), d.GlobalUserCount)
}

func TestServiceBuildEmptySegmentSkipsFetches(t *testing.T) {
	now := testNow()
	st := seededStore(now)
	service := dashboard.NewService(st, nil, time.UTC)

	// No user is a student in Group B.
	filters := cohort.Filters{UserType: "student", Variant: "B", DateRange: "7d"}
	d, err := service.Build(context.Background(), filters, now)

	require.NoError(t, err)
	assert.Zero(t, d.SegmentUserCount)
	assert.Zero(t, d.SegmentEventCount)
	assert.Zero(t, d.DAU)
	assert.Empty(t, d.TopUsers)
	require.Len(t, d.EventsPerDay, 7)
	for _, point := range d.EventsPerDay {
		assert.Zero(t, point.Count)
	}

	assert.False(t, st.called("ListEvents"))
	assert.False(t, st.called("ListPosts"))
	assert.True(t, st.called("CountUsers"))
}

func TestServiceBuildSurfacesFetchErrors(t *testing.T) {
	now := testNow()
	st := seededStore(now)
	st.listEventsErr = errors.New("store unavailable")
	service := dashboard.NewService(st, nil, time.UTC)

	d, err := service.Build(context.Background(), cohort.DefaultFilters(), now)

	require.Error(t, err)
	assert.Nil(t, d)
	assert.ErrorContains(t, err, "store unavailable")
}

func TestServiceBuildRejectsInvalidFilters(t *testing.T) {
	service := dashboard.NewService(seededStore(testNow()), nil, time.UTC)

	_, err := service.Build(context.Background(), cohort.Filters{UserType: "nope", Variant: "all", DateRange: "7d"}, testNow())

	assert.Error(t, err)
}

func TestRefresherDiscardsStaleResults(t *testing.T) {
	now := testNow()

	slow := seededStore(now)
	slow.userGate = make(chan struct{})

	service := dashboard.NewService(slow, nil, time.UTC)
	refresher := dashboard.NewRefresher(service)

	type outcome struct {
		d   *dashboard.Dashboard
		err error
	}
	firstDone := make(chan outcome, 1)
	go func() {
		d, err := refresher.Refresh(context.Background(), cohort.DefaultFilters(), now)
		firstDone <- outcome{d, err}
	}()

	// Wait for the first refresh to reach the store, then supersede it.
	require.Eventually(t, func() bool { return slow.callCount("ListUsers") == 1 },
		time.Second, 5*time.Millisecond)

	secondDone := make(chan outcome, 1)
	go func() {
		d, err := refresher.Refresh(context.Background(), cohort.Filters{UserType: "all", Variant: "all", DateRange: "30d"}, now)
		secondDone <- outcome{d, err}
	}()

	// Only open the gate once both refreshes hold a generation, so the
	// first is guaranteed to be superseded.
	require.Eventually(t, func() bool { return slow.callCount("ListUsers") == 2 },
		time.Second, 5*time.Millisecond)
	close(slow.userGate)

	first := <-firstDone
	second := <-secondDone

	assert.ErrorIs(t, first.err, dashboard.ErrStale)
	assert.Nil(t, first.d)
	require.NoError(t, second.err)
	assert.Equal(t, "30d", second.d.Filters.DateRange)
}
