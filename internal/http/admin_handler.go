package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"pantryadmin/internal/config"
)

// adminShell is the HTML shell the dashboard frontend boots from. The data
// itself arrives over /admin/api/v1/dashboard.
const adminShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="csrf-token" content="%s">
<title>Pantry Admin</title>
</head>
<body>
<div id="app" data-dashboard-url="/admin/api/v1/dashboard"></div>
<form method="POST" action="/logout">
<input type="hidden" name="_csrf" value="%s">
<button type="submit">Log out</button>
</form>
</body>
</html>`

// AdminIndexAction renders the dashboard shell page.
func AdminIndexAction(ctx *cartridge.Context) error {
	csrfToken, _ := ctx.Ctx.Locals(config.GetConfig().CSRFContextKey).(string)
	ctx.Ctx.Set("Content-Type", fiber.MIMETextHTMLCharsetUTF8)
	return ctx.Ctx.SendString(fmt.Sprintf(adminShell, csrfToken, csrfToken))
}
