// Package seeder fills the local app-data replica with demo users, events,
// posts, journal entries, and check-ins so the dashboard has something to
// show in development.
package seeder

import (
	"context"
	_ "embed"
	"fmt"
	"math/rand/v2"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"pantryadmin/internal/store"
)

//go:embed fixture.yaml
var fixtureYAML []byte

type fixture struct {
	Personas []struct {
		DisplayName string `yaml:"displayName"`
		Email       string `yaml:"email"`
	} `yaml:"personas"`
	EventTypes []struct {
		Name   string `yaml:"name"`
		Weight int    `yaml:"weight"`
	} `yaml:"eventTypes"`
}

// Seeder handles the data seeding process.
type Seeder struct {
	DBManager  cartridge.DBManager
	Logger     *slog.Logger
	EventCount int
}

// NewSeeder creates a new seeder instance
func NewSeeder(dbManager cartridge.DBManager, logger *slog.Logger, eventCount int) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		DBManager:  dbManager,
		Logger:     logger,
		EventCount: eventCount,
	}
}

// Seed creates the fixture users and a randomized month of activity for
// them. It is additive; existing rows are left alone.
func (s *Seeder) Seed(ctx context.Context) error {
	start := time.Now()

	var fx fixture
	if err := yaml.Unmarshal(fixtureYAML, &fx); err != nil {
		return fmt.Errorf("failed to parse seed fixture: %w", err)
	}
	if len(fx.Personas) == 0 || len(fx.EventTypes) == 0 {
		return fmt.Errorf("seed fixture is empty")
	}

	s.Logger.Info("Seeding demo data...",
		slog.Int("personas", len(fx.Personas)),
		slog.Int("eventCount", s.EventCount))

	db := s.DBManager.GetConnection()

	userTypes := []string{store.UserTypeStudent, store.UserTypeWorkingProfessional}
	abGroups := []string{store.ABTestGroupA, store.ABTestGroupB}
	now := time.Now().UTC()

	users := make([]store.UserRecord, 0, len(fx.Personas))
	for i, persona := range fx.Personas {
		users = append(users, store.UserRecord{
			ID:          uuid.NewString(),
			DisplayName: persona.DisplayName,
			Email:       persona.Email,
			UserType:    userTypes[i%len(userTypes)],
			ABTestGroup: abGroups[(i/len(userTypes))%len(abGroups)],
			CreatedAt:   now.AddDate(0, 0, -rand.IntN(90)),
		})
	}

	err := sqlite.PerformWrite(s.Logger, db, func(tx *gorm.DB) error {
		for _, user := range users {
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("failed to create user %s: %w", user.Email, err)
			}
		}
		return s.seedActivity(ctx, tx, fx, users, now)
	})
	if err != nil {
		return err
	}

	s.Logger.Info("Seeding completed successfully", slog.Duration("elapsed", time.Since(start)))
	return nil
}

// seedActivity spreads events, posts, journal entries, and check-ins over
// the last 30 days, weighted toward recent days so DAU and WAU are non-zero.
func (s *Seeder) seedActivity(ctx context.Context, tx *gorm.DB, fx fixture, users []store.UserRecord, now time.Time) error {
	weighted := weightedEventTypes(fx)

	for i := 0; i < s.EventCount; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		user := users[rand.IntN(len(users))]
		eventType := weighted[rand.IntN(len(weighted))]
		ts := randomTimestamp(now)

		event := store.EventRecord{
			ID:        uuid.NewString(),
			UID:       user.ID,
			Type:      eventType,
			Timestamp: ts,
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to create event: %w", err)
		}

		// Content events come with the matching record, the way the app
		// writes them.
		switch eventType {
		case "post_uploaded":
			post := store.PostRecord{
				ID:        uuid.NewString(),
				UID:       user.ID,
				CreatedAt: ts,
			}
			if err := tx.Create(&post).Error; err != nil {
				return fmt.Errorf("failed to create post: %w", err)
			}
		case "journal_entry_created":
			entry := store.JournalEntryRecord{
				ID:        uuid.NewString(),
				UserID:    user.ID,
				CreatedAt: ts,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return fmt.Errorf("failed to create journal entry: %w", err)
			}
		case "habit_checkin":
			checkIn := store.CheckInRecord{
				ID:        uuid.NewString(),
				UserID:    user.ID,
				CreatedAt: ts,
			}
			if err := tx.Create(&checkIn).Error; err != nil {
				return fmt.Errorf("failed to create check-in: %w", err)
			}
		}
	}

	return nil
}

func weightedEventTypes(fx fixture) []string {
	var out []string
	for _, et := range fx.EventTypes {
		weight := et.Weight
		if weight < 1 {
			weight = 1
		}
		for i := 0; i < weight; i++ {
			out = append(out, et.Name)
		}
	}
	return out
}

// randomTimestamp picks a moment in the last 30 days, biased toward the
// last week.
func randomTimestamp(now time.Time) time.Time {
	var daysBack int
	if rand.IntN(2) == 0 {
		daysBack = rand.IntN(7)
	} else {
		daysBack = rand.IntN(30)
	}
	return now.
		AddDate(0, 0, -daysBack).
		Add(-time.Duration(rand.IntN(24*60)) * time.Minute)
}
