// Package store defines the read boundary to the Pantry app's document
// records (users, events, feed posts) and a SQLite-backed implementation.
// The dashboard core only ever consumes this interface; it never queries
// the database directly.
package store

import (
	"context"
	"errors"
	"time"
)

// User type classifications as stored on user records.
const (
	UserTypeStudent             = "Student"
	UserTypeWorkingProfessional = "Working Professional"
)

// A/B test group values as stored on user records.
const (
	ABTestGroupA = "Group A"
	ABTestGroupB = "Group B"
)

// UserRecord is an app user document. Created by the external registration
// flow; read-only here.
type UserRecord struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	DisplayName string    `json:"displayName"`
	Email       string    `gorm:"index" json:"email"`
	UserType    string    `gorm:"index" json:"userType"`
	ABTestGroup string    `gorm:"index;column:ab_test_group" json:"abTestGroup"`
	IsAdmin     bool      `json:"isAdmin"`
	CreatedAt   time.Time `json:"createdAt"`
}

// EventRecord is an app activity event. Append-only, immutable.
type EventRecord struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UID       string    `gorm:"index;column:uid" json:"uid"`
	Type      string    `gorm:"index" json:"type"`
	Timestamp time.Time `gorm:"index" json:"ts"`
}

// PostRecord is a feed post. The feed writer has emitted the owner under
// two different field names over time; OwnerID resolves them.
type PostRecord struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UID       string    `gorm:"index;column:uid" json:"uid"`
	UserID    string    `gorm:"index;column:user_id" json:"userId"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// OwnerID returns the post's owning user ID: first non-empty of the two
// historical field names, or "" when neither is set.
func (p PostRecord) OwnerID() string {
	if p.UID != "" {
		return p.UID
	}
	return p.UserID
}

// JournalEntryRecord is a journal/meal entry, used only as a backfill source.
type JournalEntryRecord struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"index;column:user_id" json:"userId"`
	OwnerID   string    `gorm:"index;column:owner_id" json:"ownerId"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// Owner resolves the entry's owning user ID across field-name variants.
func (j JournalEntryRecord) Owner() string {
	if j.UserID != "" {
		return j.UserID
	}
	return j.OwnerID
}

// CheckInRecord is a habit check-in, used only as a backfill source.
type CheckInRecord struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"index;column:user_id" json:"userId"`
	OwnerID   string    `gorm:"index;column:owner_id" json:"ownerId"`
	HabitID   string    `gorm:"column:habit_id" json:"habitId"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// Owner resolves the check-in's owning user ID across field-name variants.
func (c CheckInRecord) Owner() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.OwnerID
}

// OpEqual is the only constraint operator the cohort filter emits.
const OpEqual = "=="

// Constraint is a single field/op/value predicate pushed down to the store.
// Constraints combine conjunctively.
type Constraint struct {
	Field string
	Op    string
	Value string
}

// ErrUnknownField is returned when a constraint names a field the store
// cannot filter on.
var ErrUnknownField = errors.New("store: unknown constraint field")

// Store is the read interface the dashboard consumes. AddEvent exists only
// for the one-off backfill and is best-effort, non-transactional.
type Store interface {
	ListUsers(ctx context.Context, constraints []Constraint) ([]UserRecord, error)
	ListEvents(ctx context.Context, since time.Time) ([]EventRecord, error)
	ListPosts(ctx context.Context, since time.Time) ([]PostRecord, error)
	CountUsers(ctx context.Context) (int64, error)
	CountEvents(ctx context.Context, since time.Time) (int64, error)

	ListJournalEntries(ctx context.Context, since, until time.Time) ([]JournalEntryRecord, error)
	ListCheckIns(ctx context.Context, since, until time.Time) ([]CheckInRecord, error)
	AddEvent(ctx context.Context, event EventRecord) error
}
