// main.go - Admin control tool for Navlens
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"
	"gorm.io/gorm"

	"navlens/internal"
	"navlens/internal/config"
	"navlens/internal/logging"
	"navlens/internal/seeder"
	"navlens/internal/sites"
	"navlens/internal/users"

	"log/slog"
)

const (
	defaultShutdownTimeout = 30 * time.Second
)

// logger writes operator actions to stdout and a rotating file under the
// configured logs directory.
var logger = logging.NewCLILogger(config.GetConfig(), "navlensctl")

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
	&ChangePasswordCommand{},
	&CreateSiteCommand{},
	&MigrateCommand{},
	&SeedCommand{},
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
		logger.Printf("Received signal: %v, initiating cleanup...", sig)
		cancel()
	}()

	cmdName, args := parseArgs()

	cmd := findCommand(cmdName)
	if cmd == nil {
		showUsageAndExit()
	}

	app, err := internal.NewApp()
	if err != nil {
		logger.Printf("Warning: Failed to initialize app: %v", err)
		logger.Println("Proceeding with limited functionality...")
	}

	defer func() {
		if app != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
			defer cancel()
			if err := app.Shutdown(shutdownCtx); err != nil {
				logger.Printf("Warning: Cleanup error: %v", err)
			}
		}
	}()

	if err := cmd.Execute(ctx, app, args); err != nil {
		logger.Fatalf("Command failed: %v", err)
	}

	logger.Printf("Command %s completed successfully", cmd.Name())
}

// promptPassword reads a password from the terminal without echo,
// falling back to plain reads when stdin is not a terminal.
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

func requireDB(app *internal.Application) (*gorm.DB, error) {
	if app == nil {
		return nil, fmt.Errorf("app initialization failed, cannot connect to database")
	}
	return app.DBManager.GetConnection(), nil
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
		return fmt.Errorf("usage: %s <username> [password]", c.Name())
	}
	username := args[0]

	var password string
	if len(args) >= 2 {
		password = args[1]
	} else {
		pwd1, err := promptPassword("Enter password: ")
		if err != nil {
			return err
		}
		pwd2, err := promptPassword("Confirm password: ")
		if err != nil {
			return err
		}
		if pwd1 != pwd2 {
			return fmt.Errorf("passwords do not match")
		}
		password = pwd1
	}

	db, err := requireDB(app)
	if err != nil {
		return err
	}

	logger.Printf("Setting up admin user: %s", username)
	if err := users.CreateAdminUser(db, username, password); err != nil {
		if errors.Is(err, users.ErrUserExists) {
			logger.Printf("User %s already exists", username)
			return nil
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// ChangePasswordCommand implements password update for an existing user
type ChangePasswordCommand struct{}

func (c *ChangePasswordCommand) Name() string {
	return "change-password"
}

func (c *ChangePasswordCommand) Description() string {
	return "Changes the password of an existing user"
}

func (c *ChangePasswordCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	var username string
	if len(args) >= 1 {
		username = args[0]
	} else {
		fmt.Print("Enter username: ")
		reader := bufio.NewReader(os.Stdin)
		input, _ := reader.ReadString('\n')
		username = strings.TrimSpace(input)
	}
	if username == "" {
		return fmt.Errorf("username is required")
	}

	db, err := requireDB(app)
	if err != nil {
		return err
	}

	if _, err := users.FindByUsername(db, username); err != nil {
		return fmt.Errorf("user lookup failed: %w", err)
	}

	var newPassword string
	if len(args) >= 2 {
		newPassword = args[1]
	} else {
		pwd1, err := promptPassword("Enter new password: ")
		if err != nil {
			return err
		}
		pwd2, err := promptPassword("Confirm new password: ")
		if err != nil {
			return err
		}
		if pwd1 != pwd2 {
			return fmt.Errorf("passwords do not match")
		}
		newPassword = pwd1
	}
	if newPassword == "" {
		return fmt.Errorf("password cannot be empty")
	}

	if err := users.ChangePassword(db, username, newPassword); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	fmt.Println("Password updated successfully")
	return nil
}

// CreateSiteCommand registers a new tracked site
type CreateSiteCommand struct{}

func (c *CreateSiteCommand) Name() string        { return "create-site" }
func (c *CreateSiteCommand) Description() string { return "Registers a new tracked site" }

func (c *CreateSiteCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	fs := flag.NewFlagSet("create-site", flag.ContinueOnError)
	name := fs.String("name", "", "display name (defaults to domain)")
	baseURL := fs.String("base", "/", "base path the site is served under")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: %s [flags] <domain>", c.Name())
	}
	domain := strings.ToLower(fs.Arg(0))

	db, err := requireDB(app)
	if err != nil {
		return err
	}

	site := &sites.Site{Name: *name, Domain: domain, BaseURL: *baseURL}
	if site.Name == "" {
		site.Name = domain
	}
	if err := sites.CreateSite(db, site); err != nil {
		return fmt.Errorf("failed to create site: %w", err)
	}

	fmt.Printf("Site created\n  domain:  %s\n  site id: %s\n", site.Domain, site.PublicID)
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
	db, err := requireDB(app)
	if err != nil {
		return err
	}

	var userCount int64
	if err := db.Model(&users.User{}).Count(&userCount).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	var siteCount int64
	if err := db.Model(&sites.Site{}).Count(&siteCount).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}

	logger.Println("System Status:")
	logger.Println("- Database: Connected")
	logger.Printf("- Users: %d", userCount)
	logger.Printf("- Sites: %d", siteCount)

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get SQL DB: %w", err)
	}

	logger.Printf("- Max Open Connections: %d", sqlDB.Stats().MaxOpenConnections)
	logger.Printf("- Open Connections: %d", sqlDB.Stats().OpenConnections)
	logger.Printf("- In Use: %d", sqlDB.Stats().InUse)
	logger.Printf("- Idle: %d", sqlDB.Stats().Idle)

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
	fmt.Println("Usage: navlensctl [command] [args...]")
	fmt.Println("Available commands:")

	for _, cmd := range commands {
		fmt.Printf("  %s: %s\n", cmd.Name(), cmd.Description())
	}

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

	logger.Println("Running database migrations...")
	if err := app.DBManager.MigrateDatabase(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	logger.Println("Migrations completed successfully")
	return nil
}

// SeedCommand populates the DB with demo data
type SeedCommand struct{}

func (c *SeedCommand) Name() string        { return "seed" }
func (c *SeedCommand) Description() string { return "Seeds the database with demo traffic" }

func (c *SeedCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	sessionCount := fs.Int("sessions", 200, "number of sessions to generate")
	domain := fs.String("domain", "", "specific domain to seed (seeds the demo site if empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if app == nil {
		return fmt.Errorf("unable to initialise app")
	}

	se := seeder.NewSeeder(app.DBManager, slog.Default(), *sessionCount)

	if *domain != "" {
		return se.SeedDomain(ctx, *domain)
	}
	return se.SeedDemoSite(ctx)
}

// Helper functions

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

// showUsageAndExit shows usage information and exits
func showUsageAndExit() {
	fmt.Println("Usage: navlensctl [command] [args...]")
	fmt.Println("Available commands:")

	for _, cmd := range commands {
		fmt.Printf("  %s: %s\n", cmd.Name(), cmd.Description())
	}

	os.Exit(1)
}
