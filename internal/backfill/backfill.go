// Package backfill synthesizes activity events for content that predates
// event tracking: posts, journal entries, and habit check-ins from the last
// week each get a matching event stamped with the content's creation time.
// It is a one-off, best-effort operation with no transactional guarantees;
// sources that fail are logged and skipped.
package backfill

import (
	"context"
	"time"

	"log/slog"

	"pantryadmin/internal/metrics"
	"pantryadmin/internal/store"
)

// Event types written by the backfill, matching what the app itself emits.
const (
	EventPostUploaded        = "post_uploaded"
	EventJournalEntryCreated = "journal_entry_created"
	EventHabitCheckIn        = "habit_checkin"
)

// lookback is how far back content is scanned for missing events.
const lookback = 7 * metrics.DayDuration

// Result counts what a run did.
type Result struct {
	Created int
	Skipped int
}

// Backfiller writes synthetic events into a store.
type Backfiller struct {
	store  store.Store
	logger *slog.Logger
}

// New creates a backfiller.
func New(st store.Store, logger *slog.Logger) *Backfiller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backfiller{store: st, logger: logger}
}

// Run scans the three content sources and writes one event per record found
// in the lookback window. Records with no resolvable owner are skipped, as
// are individual writes that fail; only a context cancellation aborts the run.
func (b *Backfiller) Run(ctx context.Context, now time.Time) (Result, error) {
	since := now.Add(-lookback)
	var result Result

	posts, err := b.store.ListPosts(ctx, since)
	if err != nil {
		b.logger.Error("Backfill: failed to list posts", slog.Any("error", err))
	} else {
		for _, post := range posts {
			b.add(ctx, &result, post.OwnerID(), EventPostUploaded, post.CreatedAt)
		}
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	entries, err := b.store.ListJournalEntries(ctx, since, now)
	if err != nil {
		b.logger.Error("Backfill: failed to list journal entries", slog.Any("error", err))
	} else {
		for _, entry := range entries {
			b.add(ctx, &result, entry.Owner(), EventJournalEntryCreated, entry.CreatedAt)
		}
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	checkIns, err := b.store.ListCheckIns(ctx, since, now)
	if err != nil {
		b.logger.Error("Backfill: failed to list check-ins", slog.Any("error", err))
	} else {
		for _, checkIn := range checkIns {
			b.add(ctx, &result, checkIn.Owner(), EventHabitCheckIn, checkIn.CreatedAt)
		}
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	b.logger.Info("Backfill completed",
		slog.Int("created", result.Created),
		slog.Int("skipped", result.Skipped))
	return result, nil
}

func (b *Backfiller) add(ctx context.Context, result *Result, owner, eventType string, ts time.Time) {
	if owner == "" {
		result.Skipped++
		return
	}

	err := b.store.AddEvent(ctx, store.EventRecord{
		UID:       owner,
		Type:      eventType,
		Timestamp: ts,
	})
	if err != nil {
		b.logger.Warn("Backfill: failed to write event",
			slog.String("type", eventType),
			slog.String("uid", owner),
			slog.Any("error", err))
		result.Skipped++
		return
	}
	result.Created++
}
