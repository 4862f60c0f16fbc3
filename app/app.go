// Package app provides the public API for embedding Pantry Admin.
package app

import (
	"github.com/karloscodes/cartridge"

	"pantryadmin/internal"
	"pantryadmin/internal/config"
	"pantryadmin/internal/database"
)

// Re-export core types
type (
	Application = internal.Application
	Config      = config.Config
	DBManager   = database.DBManager
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	return config.GetConfig()
}

// NewApp creates a new application with default routes
func NewApp() (*Application, error) {
	return internal.NewApp()
}

// SetupSession configures session management on the server
func SetupSession(srv *cartridge.Server) {
	internal.SetupSession(srv)
}

// MountAppRoutes mounts all application routes
func MountAppRoutes(srv *cartridge.Server) {
	internal.MountAppRoutes(srv)
}
