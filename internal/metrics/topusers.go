package metrics

import "pantryadmin/internal/store"

// TopUserRow is a display row for the top-users table.
type TopUserRow struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	EventCount  int    `json:"eventCount"`
}

// ResolveTopUsers joins the ranking back against the segment's user records
// to attach display name and email. Lookups go against the segment, not the
// global user set; a ranked ID missing from the segment resolves to empty
// display fields with its count preserved. Ranking order is kept as given.
func ResolveTopUsers(ranking []UserCount, users []store.UserRecord) []TopUserRow {
	byID := make(map[string]store.UserRecord, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	rows := make([]TopUserRow, 0, len(ranking))
	for _, entry := range ranking {
		row := TopUserRow{ID: entry.UID, EventCount: entry.Count}
		if u, ok := byID[entry.UID]; ok {
			row.DisplayName = u.DisplayName
			row.Email = u.Email
		}
		rows = append(rows, row)
	}
	return rows
}
