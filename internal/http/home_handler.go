package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
)

// HomeIndexAction routes the root path to the right place for the session.
func HomeIndexAction(ctx *cartridge.Context) error {
	if ctx.Session.IsAuthenticated(ctx.Ctx) {
		return ctx.Redirect("/admin", fiber.StatusFound)
	}
	return ctx.Redirect("/login", fiber.StatusFound)
}
