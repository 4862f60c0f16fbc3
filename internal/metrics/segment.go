package metrics

import "pantryadmin/internal/store"

// Segment is the filtered subset of users matching the active cohort, plus
// the events and posts owned by those users within the active date range.
// It is recomputed fully on every filter change, never updated in place.
type Segment struct {
	Users  []store.UserRecord
	Events []store.EventRecord
	Posts  []store.PostRecord
}

// UserIDSet builds the segment's user-ID membership set.
func UserIDSet(users []store.UserRecord) map[string]struct{} {
	ids := make(map[string]struct{}, len(users))
	for _, u := range users {
		ids[u.ID] = struct{}{}
	}
	return ids
}

// BuildSegment restricts raw events and posts to those owned by a segment
// user. The store filters users by cohort but cannot filter events or posts
// by a membership set, so that join happens here.
//
// An empty user set short-circuits to empty slices without scanning: an
// empty segment means "nothing matches", never "no filter".
func BuildSegment(users []store.UserRecord, events []store.EventRecord, posts []store.PostRecord) Segment {
	segment := Segment{
		Users:  users,
		Events: []store.EventRecord{},
		Posts:  []store.PostRecord{},
	}
	if len(users) == 0 {
		return segment
	}

	ids := UserIDSet(users)

	for _, ev := range events {
		if ev.UID == "" {
			continue
		}
		if _, ok := ids[ev.UID]; ok {
			segment.Events = append(segment.Events, ev)
		}
	}

	for _, post := range posts {
		owner := post.OwnerID()
		if owner == "" {
			continue
		}
		if _, ok := ids[owner]; ok {
			segment.Posts = append(segment.Posts, post)
		}
	}

	return segment
}
