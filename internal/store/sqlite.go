package store

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// userConstraintColumns maps constraint field names (the document field
// names clients filter on) to columns. Anything else is rejected so a
// constraint can never reach the query builder unchecked.
var userConstraintColumns = map[string]string{
	"userType":    "user_type",
	"abTestGroup": "ab_test_group",
}

// SQLStore implements Store on the local SQLite replica of the app's
// documents.
type SQLStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore creates a SQLStore on the given connection.
func NewSQLStore(db *gorm.DB, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLStore{db: db, logger: logger}
}

// Models returns the record types this store persists, for migration.
func Models() []any {
	return []any{
		&UserRecord{},
		&EventRecord{},
		&PostRecord{},
		&JournalEntryRecord{},
		&CheckInRecord{},
	}
}

// ListUsers returns user records matching all constraints.
func (s *SQLStore) ListUsers(ctx context.Context, constraints []Constraint) ([]UserRecord, error) {
	query := s.db.WithContext(ctx).Model(&UserRecord{})
	for _, c := range constraints {
		if c.Op != OpEqual {
			return nil, fmt.Errorf("%w: unsupported op %q", ErrUnknownField, c.Op)
		}
		column, ok := userConstraintColumns[c.Field]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, c.Field)
		}
		query = query.Where(column+" = ?", c.Value)
	}

	var users []UserRecord
	if err := query.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// ListEvents returns events with a timestamp at or after since.
func (s *SQLStore) ListEvents(ctx context.Context, since time.Time) ([]EventRecord, error) {
	var events []EventRecord
	err := s.db.WithContext(ctx).
		Where("timestamp >= ?", since).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// ListPosts returns feed posts created at or after since.
func (s *SQLStore) ListPosts(ctx context.Context, since time.Time) ([]PostRecord, error) {
	var posts []PostRecord
	err := s.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// CountUsers returns the total user count, ignoring any cohort filter.
func (s *SQLStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&UserRecord{}).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// CountEvents returns the number of events at or after since.
func (s *SQLStore) CountEvents(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&EventRecord{}).
		Where("timestamp >= ?", since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// ListJournalEntries returns journal entries created within [since, until].
func (s *SQLStore) ListJournalEntries(ctx context.Context, since, until time.Time) ([]JournalEntryRecord, error) {
	var entries []JournalEntryRecord
	err := s.db.WithContext(ctx).
		Where("created_at >= ? AND created_at <= ?", since, until).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	return entries, nil
}

// ListCheckIns returns habit check-ins created within [since, until].
func (s *SQLStore) ListCheckIns(ctx context.Context, since, until time.Time) ([]CheckInRecord, error) {
	var checkIns []CheckInRecord
	err := s.db.WithContext(ctx).
		Where("created_at >= ? AND created_at <= ?", since, until).
		Find(&checkIns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list check-ins: %w", err)
	}
	return checkIns, nil
}

// AddEvent inserts a single event, assigning a store ID if the caller left
// it empty. Only the backfill writes through this.
func (s *SQLStore) AddEvent(ctx context.Context, event EventRecord) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("failed to add event: %w", err)
	}
	s.logger.Debug("Added event",
		slog.String("id", event.ID),
		slog.String("type", event.Type))
	return nil
}
