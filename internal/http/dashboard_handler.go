package http

import (
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"log/slog"

	"pantryadmin/internal/cohort"
	"pantryadmin/internal/config"
	"pantryadmin/internal/dashboard"
	"pantryadmin/internal/store"
)

// DashboardResponse is the dashboard payload plus presentation extras the
// frontend charts want pre-computed.
type DashboardResponse struct {
	*dashboard.Dashboard
	EventTypeLabels map[string]string `json:"eventTypeLabels"`
	GeneratedAt     time.Time         `json:"generatedAt"`
}

// Refreshers are shared across requests, one per database connection, so a
// slow build can be superseded by a newer filter change.
var refreshers sync.Map

func dashboardRefresher(ctx *cartridge.Context) *dashboard.Refresher {
	db := ctx.DB()
	if r, ok := refreshers.Load(db); ok {
		return r.(*dashboard.Refresher)
	}
	st := store.NewSQLStore(db, ctx.Logger)
	service := dashboard.NewService(st, ctx.Logger, config.GetConfig().GetDisplayLocation())
	r, _ := refreshers.LoadOrStore(db, dashboard.NewRefresher(service))
	return r.(*dashboard.Refresher)
}

// parseFilters reads the cohort selectors off the query string, defaulting
// absent params rather than failing on them.
func parseFilters(ctx *cartridge.Context) cohort.Filters {
	defaults := cohort.DefaultFilters()
	return cohort.Filters{
		UserType:  ctx.Query("userType", defaults.UserType),
		Variant:   ctx.Query("variant", defaults.Variant),
		DateRange: ctx.Query("range", defaults.DateRange),
	}
}

// DashboardAPIAction serves the aggregated dashboard as JSON.
func DashboardAPIAction(ctx *cartridge.Context) error {
	filters := parseFilters(ctx)
	if err := filters.Validate(); err != nil {
		ctx.Logger.Warn("Rejected dashboard filters",
			slog.String("userType", filters.UserType),
			slog.String("variant", filters.Variant),
			slog.String("range", filters.DateRange))
		return ctx.Ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	now := time.Now()
	d, err := dashboardRefresher(ctx).Refresh(ctx.Ctx.UserContext(), filters, now)
	if err != nil {
		if err == dashboard.ErrStale {
			// A newer refresh is already in flight for this data; the client
			// will receive that one instead.
			return ctx.Ctx.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "superseded by a newer refresh",
			})
		}
		ctx.Logger.Error("Failed to build dashboard", slog.Any("error", err))
		return ctx.Ctx.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "failed to fetch dashboard data",
		})
	}

	return ctx.JSON(DashboardResponse{
		Dashboard:       d,
		EventTypeLabels: eventTypeLabels(d.EventsByType),
		GeneratedAt:     now.UTC(),
	})
}

var titleCaser = cases.Title(language.English)

// eventTypeLabels humanizes raw event type names for chart legends, e.g.
// "post_uploaded" becomes "Post Uploaded".
func eventTypeLabels(byType map[string]int) map[string]string {
	labels := make(map[string]string, len(byType))
	for eventType := range byType {
		labels[eventType] = titleCaser.String(strings.ReplaceAll(eventType, "_", " "))
	}
	return labels
}
