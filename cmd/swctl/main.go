// main.go - operator control tool for sitewatch
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sitewatch/internal/aggregate"
	"sitewatch/internal/blocklist"
	"sitewatch/internal/buffer"
	"sitewatch/internal/config"
	"sitewatch/internal/database"
	"sitewatch/internal/domains"
	"sitewatch/internal/jobs"
	"sitewatch/internal/logging"
	"sitewatch/internal/stats"
)

// Command defines the interface for all command implementations
type Command interface {
	// Name returns the command name
	Name() string
	// Description returns the command description
	Description() string
	// Execute runs the command with the given environment and args
	Execute(ctx context.Context, env *Env, args []string) error
}

// Env bundles what every command needs.
type Env struct {
	Cfg *config.Config
	DBM *database.DBManager
}

// The set of available commands
var commands = []Command{
	&ProvisionCommand{},
	&RunCommand{},
	&SweepCommand{},
	&StatusCommand{},
	&HelpCommand{},
}

func main() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v, aborting...", sig)
		cancel()
	}()

	cmdName, args := parseArgs()
	cmd := findCommand(cmdName)
	if cmd == nil {
		showUsageAndExit()
	}

	cfg := config.GetConfig()
	logger := logging.NewLogger(cfg)

	dbm, err := database.NewDBManager(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create database manager: %v", err)
	}
	if err := dbm.Init(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbm.Close()

	if err := dbm.GetConnection().AutoMigrate(&domains.Domain{}); err != nil {
		log.Fatalf("Failed to migrate domains table: %v", err)
	}

	if err := cmd.Execute(ctx, &Env{Cfg: cfg, DBM: dbm}, args); err != nil {
		log.Fatalf("Command failed: %v", err)
	}

	log.Printf("Command %s completed successfully", cmd.Name())
}

// ProvisionCommand registers a domain and creates its statistics tables
type ProvisionCommand struct{}

func (c *ProvisionCommand) Name() string { return "provision" }

func (c *ProvisionCommand) Description() string {
	return "Registers a domain and creates its statistics tables"
}

func (c *ProvisionCommand) Execute(ctx context.Context, env *Env, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s <domain-name>", c.Name())
	}
	name := args[0]
	db := env.DBM.GetConnection()

	d, err := domains.FindByName(db, name)
	if err != nil {
		d = domains.Domain{Name: name, CreatedAt: time.Now().UTC()}
		if cerr := db.Create(&d).Error; cerr != nil {
			return fmt.Errorf("failed to register domain: %w", cerr)
		}
		log.Printf("Registered domain %s with id %d", name, d.ID)
	} else {
		log.Printf("Domain %s already registered with id %d", name, d.ID)
	}

	if err := stats.EnsureSchema(db, env.DBM.Dialect().Name(), d.ID); err != nil {
		return err
	}
	log.Printf("Statistics tables ready for domain %s", name)
	return nil
}

// RunCommand executes one aggregation run for a single domain
type RunCommand struct{}

func (c *RunCommand) Name() string        { return "run" }
func (c *RunCommand) Description() string { return "Runs one aggregation pass for a domain" }

func (c *RunCommand) Execute(ctx context.Context, env *Env, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s <domain-name>", c.Name())
	}

	db := env.DBM.GetConnection()
	d, err := domains.FindByName(db, args[0])
	if err != nil {
		return err
	}

	logger := logging.NewLogger(env.Cfg)
	bl, err := blocklist.New(env.Cfg.BlocklistPath, logger)
	if err != nil {
		return err
	}

	rotator := buffer.NewRotator(env.Cfg.BuffersDirectory(), logger)
	committer := stats.NewCommitter(env.DBM, logger)
	runner := aggregate.NewRunner(rotator, bl, committer, nil, logger)

	return runner.Run(ctx, d)
}

// SweepCommand runs one aggregation pass over every registered domain, the
// same sweep the daemon's scheduler runs on its ticker
type SweepCommand struct{}

func (c *SweepCommand) Name() string        { return "sweep" }
func (c *SweepCommand) Description() string { return "Runs one aggregation pass over all domains" }

func (c *SweepCommand) Execute(ctx context.Context, env *Env, args []string) error {
	logger := logging.NewLogger(env.Cfg)

	job, err := jobs.NewAggregationJob(env.Cfg, env.DBM, nil, logger)
	if err != nil {
		return err
	}

	log.Printf("Blocklist entries loaded: %d", job.Blocklist().Len())
	return job.Run(ctx)
}

// StatusCommand implements a command to check the system status
type StatusCommand struct{}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Description() string { return "Shows the current system status" }

func (c *StatusCommand) Execute(ctx context.Context, env *Env, args []string) error {
	db := env.DBM.GetConnection()

	all, err := domains.List(db)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}

	log.Println("System Status:")
	log.Printf("- Database: %s", env.DBM.Dialect().Name())
	log.Printf("- Domains: %d", len(all))

	now := time.Now().UTC()
	for _, d := range all {
		views, err := stats.RealtimePageViews(db, d.ID, now)
		if err != nil {
			log.Printf("- %s (id %d): realtime unavailable: %v", d.Name, d.ID, err)
			continue
		}
		log.Printf("- %s (id %d): %d pageviews in the last %s", d.Name, d.ID, views, stats.RealtimeWindow)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get SQL DB: %w", err)
	}
	log.Printf("- Open Connections: %d", sqlDB.Stats().OpenConnections)

	return nil
}

// HelpCommand implements a command to show usage information
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Shows usage information" }

func (c *HelpCommand) Execute(ctx context.Context, env *Env, args []string) error {
	printUsage()
	return nil
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

func printUsage() {
	fmt.Println("Usage: swctl [command] [args...]")
	fmt.Println("Available commands:")

	for _, cmd := range commands {
		fmt.Printf("  %s: %s\n", cmd.Name(), cmd.Description())
	}
}

// showUsageAndExit shows usage information and exits
func showUsageAndExit() {
	printUsage()
	os.Exit(1)
}
