// main.go - Admin control tool for Pantry Admin
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"
	"gorm.io/gorm"

	"log/slog"

	"pantryadmin/internal"
	"pantryadmin/internal/backfill"
	"pantryadmin/internal/seeder"
	"pantryadmin/internal/store"
	"pantryadmin/internal/users"
)

const (
	defaultShutdownTimeout = 30 * time.Second
)

// Command defines the interface for all command implementations
type Command interface {
	// Name returns the command name
	Name() string
	// Description returns the command description
	Description() string
	// Execute runs the command with the given app and args
	Execute(ctx context.Context, app *internal.Application, args []string) error
}

// The set of available commands
var commands = []Command{
	&CreateAdminUserCommand{},
	&ChangeAdminPasswordCommand{},
	&MigrateCommand{},
	&SeedCommand{},
	&BackfillCommand{},
	&StatusCommand{},
	&HelpCommand{},
}

func main() {
	flag.Parse()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v, initiating cleanup...", sig)
		cancel()
	}()

	cmdName, args := parseArgs()

	cmd := findCommand(cmdName)
	if cmd == nil {
		showUsageAndExit()
	}

	app, err := internal.NewApp()
	if err != nil {
		log.Printf("Warning: Failed to initialize app: %v", err)
		log.Println("Proceeding with limited functionality...")
	}

	defer func() {
		if app != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
			defer cancel()
			if err := app.Shutdown(shutdownCtx); err != nil {
				log.Printf("Warning: Cleanup error: %v", err)
			}
		}
	}()

	if err := cmd.Execute(ctx, app, args); err != nil {
		log.Fatalf("Command failed: %v", err)
	}

	log.Printf("Command %s completed successfully", cmd.Name())
}

// CreateAdminUserCommand implements the command to create an initial admin user
type CreateAdminUserCommand struct{}

func (c *CreateAdminUserCommand) Name() string {
	return "create-admin-user"
}

func (c *CreateAdminUserCommand) Description() string {
	return "Creates an initial admin user"
}

func (c *CreateAdminUserCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s <email> [password]", c.Name())
	}
	email := args[0]

	var password string
	if len(args) >= 2 {
		password = args[1]
	} else {
		var err error
		password, err = promptPassword()
		if err != nil {
			return err
		}
	}

	log.Printf("Setting up initial admin user with email: %s", email)

	db, err := connection(app)
	if err != nil {
		return err
	}

	if err := users.CreateAdminUser(db, email, password); err != nil {
		if errors.Is(err, users.ErrUserExists) {
			log.Printf("User %s already exists", email)
			return nil
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// ChangeAdminPasswordCommand implements password update for existing admin user
type ChangeAdminPasswordCommand struct{}

func (c *ChangeAdminPasswordCommand) Name() string {
	return "change-admin-password"
}

func (c *ChangeAdminPasswordCommand) Description() string {
	return "Changes the password of an existing admin user"
}

func (c *ChangeAdminPasswordCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	var email string
	if len(args) >= 1 {
		email = args[0]
	} else {
		fmt.Print("Enter admin email: ")
		input, _ := reader.ReadString('\n')
		email = strings.TrimSpace(input)
	}
	if email == "" {
		return fmt.Errorf("email is required")
	}

	db, err := connection(app)
	if err != nil {
		return err
	}

	if _, err := users.FindByEmail(db, email); err != nil {
		return fmt.Errorf("user lookup failed: %w", err)
	}

	var newPassword string
	if len(args) >= 2 {
		newPassword = args[1]
	} else {
		newPassword, err = promptPassword()
		if err != nil {
			return err
		}
	}

	if err := users.ChangePassword(db, email, newPassword); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	fmt.Println("Password updated successfully")
	return nil
}

// StatusCommand implements a command to check the system status
type StatusCommand struct{}

func (c *StatusCommand) Name() string {
	return "status"
}

func (c *StatusCommand) Description() string {
	return "Shows the current system status"
}

func (c *StatusCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	db, err := connection(app)
	if err != nil {
		return err
	}

	var adminCount int64
	if err := db.Model(&users.User{}).Count(&adminCount).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}

	var appUserCount, eventCount, postCount int64
	db.Model(&store.UserRecord{}).Count(&appUserCount)
	db.Model(&store.EventRecord{}).Count(&eventCount)
	db.Model(&store.PostRecord{}).Count(&postCount)

	log.Println("System Status:")
	log.Println("- Database: Connected")
	log.Printf("- Admin accounts: %d", adminCount)
	log.Printf("- App users: %d", appUserCount)
	log.Printf("- Events: %d", eventCount)
	log.Printf("- Posts: %d", postCount)

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get SQL DB: %w", err)
	}

	log.Printf("- Max Open Connections: %d", sqlDB.Stats().MaxOpenConnections)
	log.Printf("- Open Connections: %d", sqlDB.Stats().OpenConnections)
	log.Printf("- In Use: %d", sqlDB.Stats().InUse)
	log.Printf("- Idle: %d", sqlDB.Stats().Idle)

	return nil
}

// HelpCommand implements a command to show usage information
type HelpCommand struct{}

func (c *HelpCommand) Name() string {
	return "help"
}

func (c *HelpCommand) Description() string {
	return "Shows usage information"
}

func (c *HelpCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	showUsage()
	return nil
}

// MigrateCommand runs database migrations
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string        { return "migrate" }
func (c *MigrateCommand) Description() string { return "Runs database migrations" }

func (c *MigrateCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return fmt.Errorf("app initialization failed, cannot run migrations")
	}

	log.Println("Running database migrations...")

	if err := app.DBManager.MigrateDatabase(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Println("Migrations completed successfully")
	return nil
}

// SeedCommand populates the DB with demo data
type SeedCommand struct{}

func (c *SeedCommand) Name() string        { return "seed" }
func (c *SeedCommand) Description() string { return "Seeds the database with sample data" }

func (c *SeedCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	events := fs.Int("events", 2000, "number of events to generate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if app == nil {
		return fmt.Errorf("unable to initialise app")
	}

	se := seeder.NewSeeder(app.DBManager, slog.Default(), *events)
	return se.Seed(ctx)
}

// BackfillCommand synthesizes events for content created before tracking existed
type BackfillCommand struct{}

func (c *BackfillCommand) Name() string { return "backfill" }
func (c *BackfillCommand) Description() string {
	return "Backfills activity events from posts, journal entries, and check-ins"
}

func (c *BackfillCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	db, err := connection(app)
	if err != nil {
		return err
	}

	st := store.NewSQLStore(db, slog.Default())
	result, err := backfill.New(st, slog.Default()).Run(ctx, time.Now().UTC())
	if err != nil {
		return err
	}

	log.Printf("Backfill created %d events, skipped %d records", result.Created, result.Skipped)
	return nil
}

// Helper functions

func connection(app *internal.Application) (*gorm.DB, error) {
	if app == nil {
		return nil, fmt.Errorf("app initialization failed, cannot connect to database")
	}
	return app.DBManager.GetConnection(), nil
}

// promptPassword reads and confirms a password without echoing it.
func promptPassword() (string, error) {
	for {
		fmt.Print("Enter password (minimum 8 characters): ")
		passBytes, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Println()

		password := strings.TrimSpace(string(passBytes))
		if len(password) < 8 {
			fmt.Println("Error: password must be at least 8 characters")
			continue
		}

		fmt.Print("Confirm password: ")
		confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Println()

		if password != strings.TrimSpace(string(confirmBytes)) {
			fmt.Println("Error: Passwords do not match. Please try again.")
			continue
		}
		return password, nil
	}
}

// parseArgs parses the command name and arguments
func parseArgs() (string, []string) {
	args := os.Args[1:]
	if len(args) == 0 {
		return "help", []string{}
	}
	return args[0], args[1:]
}

// findCommand finds a command by name
func findCommand(name string) Command {
	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

func showUsage() {
	fmt.Println("Usage: pantryctl [command] [args...]")
	fmt.Println("Available commands:")

	for _, cmd := range commands {
		fmt.Printf("  %s: %s\n", cmd.Name(), cmd.Description())
	}
}

// showUsageAndExit shows usage information and exits
func showUsageAndExit() {
	showUsage()
	os.Exit(1)
}
