package metrics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantryadmin/internal/metrics"
	"pantryadmin/internal/store"
)

func TestBuildSegment(t *testing.T) {
	ts := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)

	users := []store.UserRecord{
		{ID: "u1", DisplayName: "Ada"},
		{ID: "u2", DisplayName: "Grace"},
	}
	events := []store.EventRecord{
		{ID: "e1", UID: "u1", Type: "post_uploaded", Timestamp: ts},
		{ID: "e2", UID: "u3", Type: "post_uploaded", Timestamp: ts}, // not in segment
		{ID: "e3", UID: "", Type: "app_open", Timestamp: ts},       // no owner
		{ID: "e4", UID: "u2", Type: "app_open", Timestamp: ts},
	}
	posts := []store.PostRecord{
		{ID: "p1", UID: "u1", CreatedAt: ts},
		{ID: "p2", UserID: "u2", CreatedAt: ts}, // alternate owner field
		{ID: "p3", UID: "u9", CreatedAt: ts},
		{ID: "p4", CreatedAt: ts}, // no owner at all
	}

	segment := metrics.BuildSegment(users, events, posts)

	require.Len(t, segment.Events, 2)
	assert.Equal(t, "e1", segment.Events[0].ID)
	assert.Equal(t, "e4", segment.Events[1].ID)

	require.Len(t, segment.Posts, 2)
	assert.Equal(t, "p1", segment.Posts[0].ID)
	assert.Equal(t, "p2", segment.Posts[1].ID)
}

func TestBuildSegmentEmptyUserSetShortCircuits(t *testing.T) {
	ts := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)
	events := []store.EventRecord{{ID: "e1", UID: "u1", Timestamp: ts}}
	posts := []store.PostRecord{{ID: "p1", UID: "u1", CreatedAt: ts}}

	segment := metrics.BuildSegment(nil, events, posts)

	// Empty segment means nothing matches, never "no filter".
	assert.Empty(t, segment.Events)
	assert.Empty(t, segment.Posts)
	assert.NotNil(t, segment.Events)
	assert.NotNil(t, segment.Posts)
}

func TestUserIDSet(t *testing.T) {
	users := []store.UserRecord{{ID: "u1"}, {ID: "u2"}}

	ids := metrics.UserIDSet(users)

	assert.Len(t, ids, 2)
	_, ok := ids["u1"]
	assert.True(t, ok)
	_, ok = ids["u3"]
	assert.False(t, ok)
}
