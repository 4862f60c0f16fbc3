package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"gorm.io/gorm"

	"pantryadmin/internal/users"
)

// AdminOnly rejects authenticated sessions whose account lacks the admin
// flag. It runs after the session middleware, so an unauthenticated request
// never reaches it. Non-admins get their session cleared and are sent back
// to login; they are regular app users who have no business here.
func AdminOnly(db *gorm.DB, sessionMgr *cartridge.SessionManager, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, authenticated := sessionMgr.GetUserID(c)
		if !authenticated {
			return c.Redirect("/login", fiber.StatusFound)
		}

		if !users.IsAdminUser(db, userID) {
			logger.Warn("Non-admin session rejected from admin surface",
				slog.Uint64("userID", uint64(userID)),
				slog.String("path", c.Path()))
			sessionMgr.ClearSession(c)
			return c.Redirect("/login", fiber.StatusFound)
		}

		return c.Next()
	}
}
