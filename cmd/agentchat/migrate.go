package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/BaSui01/agentchat/config"
	"github.com/BaSui01/agentchat/internal/migration"
)

// =============================================================================
// 🗃️ migrate
// =============================================================================

type migrateFunc func(ctx context.Context, cli *migration.CLI, n int) error

// migrateCommands 第二个字段表示是否需要整数位置参数（steps / force）
var migrateCommands = map[string]struct {
	takesN bool
	run    migrateFunc
}{
	"up":      {false, func(ctx context.Context, c *migration.CLI, _ int) error { return c.RunUp(ctx) }},
	"down":    {false, func(ctx context.Context, c *migration.CLI, _ int) error { return c.RunDown(ctx) }},
	"status":  {false, func(ctx context.Context, c *migration.CLI, _ int) error { return c.RunStatus(ctx) }},
	"version": {false, func(ctx context.Context, c *migration.CLI, _ int) error { return c.RunVersion(ctx) }},
	"info":    {false, func(ctx context.Context, c *migration.CLI, _ int) error { return c.RunInfo(ctx) }},
	"steps":   {true, func(ctx context.Context, c *migration.CLI, n int) error { return c.RunSteps(ctx, n) }},
	"force":   {true, func(ctx context.Context, c *migration.CLI, v int) error { return c.RunForce(ctx, v) }},
}

// migrateInvocation 一次 `agentchat migrate ...` 解析后的结果
type migrateInvocation struct {
	sub        string
	n          int
	configPath string
	dbType     string
	dbURL      string
	run        migrateFunc
}

var errMigrateHelp = errors.New("help requested")

// parseMigrateArgs <sub> [n] [--config p] [--db-type t] [--db-url u]
func parseMigrateArgs(args []string) (*migrateInvocation, error) {
	if len(args) == 0 {
		return nil, errors.New("missing subcommand")
	}
	inv := &migrateInvocation{sub: args[0]}
	switch inv.sub {
	case "help", "-h", "--help":
		return nil, errMigrateHelp
	}
	cmd, ok := migrateCommands[inv.sub]
	if !ok {
		return nil, fmt.Errorf("unknown migrate subcommand: %s", inv.sub)
	}
	inv.run = cmd.run
	rest := args[1:]

	if cmd.takesN {
		if len(rest) == 0 {
			return nil, fmt.Errorf("usage: agentchat migrate %s <n>", inv.sub)
		}
		n, err := strconv.Atoi(rest[0])
		if err != nil {
			return nil, fmt.Errorf("invalid number: %s", rest[0])
		}
		inv.n, rest = n, rest[1:]
	}

	fs := flag.NewFlagSet("migrate "+inv.sub, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&inv.configPath, "config", "", "Path to config file")
	fs.StringVar(&inv.dbType, "db-type", "", "Database type (postgres, mysql, sqlite)")
	fs.StringVar(&inv.dbURL, "db-url", "", "Database connection URL")
	if err := fs.Parse(rest); err != nil {
		return nil, err
	}
	return inv, nil
}

func runMigrate(args []string) {
	inv, err := parseMigrateArgs(args)
	switch {
	case errors.Is(err, errMigrateHelp):
		printMigrateUsage(os.Stdout)
		return
	case err != nil:
		fmt.Fprintf(os.Stderr, "%v\n\n", err)
		printMigrateUsage(os.Stderr)
		os.Exit(1)
	}

	migrator, err := inv.migrator()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create migrator: %v\n", err)
		os.Exit(1)
	}

	// os.Exit 不执行 defer
	err = inv.run(context.Background(), migration.NewCLI(migrator), inv.n)
	_ = migrator.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Migration %s failed: %v\n", inv.sub, err)
		os.Exit(1)
	}
}

// migrator --db-type 与 --db-url 同时给出时不读配置文件
func (inv *migrateInvocation) migrator() (*migration.DefaultMigrator, error) {
	logger := initLogger(config.LogConfig{Level: "warn", Format: "console"})

	if inv.dbType != "" && inv.dbURL != "" {
		return migration.NewMigratorFromURL(inv.dbType, inv.dbURL, logger)
	}
	cfg, err := loadConfig(inv.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if inv.dbType != "" {
		cfg.Database.Driver = inv.dbType
	}
	return migration.NewMigratorFromDatabaseConfig(cfg.Database, logger)
}

func printMigrateUsage(w io.Writer) {
	fmt.Fprint(w, `Database Migration Commands

Usage:
  agentchat migrate <subcommand> [n] [options]

Subcommands:
  up          Apply all pending migrations
  down        Roll back the last migration
  steps <n>   Apply n migrations (negative n rolls back)
  status      List every migration and whether it is applied
  version     Show current migration version
  info        Show version, dirty flag and pending count
  force <v>   Set the version without running SQL (clears a dirty state)

Options:
  --config <path>     Path to configuration file (YAML)
  --db-type <type>    postgres, mysql or sqlite (default: database.driver)
  --db-url <url>      Connection URL, used as-is with --db-type

Examples:
  agentchat migrate up --config /etc/agentchat/config.yaml
  agentchat migrate steps -2
  agentchat migrate status --db-type sqlite --db-url "file:agentchat.db?_foreign_keys=1"
  agentchat migrate force 1
`)
}
