package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	"pantryadmin/internal/config"
	"pantryadmin/internal/http"
	"pantryadmin/internal/http/middleware"
)

// SetupSession configures session management on the server.
func SetupSession(srv *cartridge.Server) {
	cfg := config.GetConfig()
	sessionMgr := cartridge.NewSessionManager(cartridge.SessionConfig{
		CookieName: cfg.AppName + "_session",
		Secret:     cfg.GetSessionSecret(),
		TTL:        time.Duration(cfg.GetLoginSessionTimeout()) * time.Second,
		Secure:     cfg.IsProduction(),
		LoginPath:  "/login",
	})
	srv.SetSession(sessionMgr)
}

// MountAppRoutes mounts all application routes using cartridge's route API
func MountAppRoutes(srv *cartridge.Server) {
	SetupSession(srv)

	cfg := config.GetConfig()
	sessionMgr := srv.Session()

	// Rate limiting would interfere with testing, so it only applies in
	// production.
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// Stricter rate limiter for auth endpoints (10 requests per minute)
	// to slow down brute force login attempts.
	authRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(10),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	db := srv.GetDBManager().GetConnection()
	logger := srv.GetLogger()

	// Every admin surface sits behind the session check plus the admin-flag
	// gate; a valid session alone is not enough.
	adminConfig := &cartridge.RouteConfig{
		CustomMiddleware: []fiber.Handler{
			sessionMgr.Middleware(),
			middleware.AdminOnly(db, sessionMgr, logger),
		},
	}

	// === ROOT ROUTES ===
	srv.Get("/", http.HomeIndexAction)

	// Health check endpoint
	srv.Get("/_health", http.HealthIndexAction)
	srv.Head("/_health", http.HealthIndexAction)

	// === AUTHENTICATION ROUTES ===
	loginConfig := &cartridge.RouteConfig{
		CustomMiddleware: []fiber.Handler{authRateLimiter},
	}
	srv.Get("/login", http.RenderLoginAction)
	srv.Post("/login", http.ProcessLoginAction, loginConfig)
	srv.Post("/logout", http.LogoutAction)

	// === PROTECTED ADMIN ROUTES ===
	srv.Get("/admin", http.AdminIndexAction, adminConfig)
	srv.Get("/admin/api/v1/dashboard", http.DashboardAPIAction, adminConfig)
}
