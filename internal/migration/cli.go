package migration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
)

// ErrDirty 上一次迁移中途失败，需要先 force 到一个确定版本
var ErrDirty = errors.New("schema is dirty, run `migrate force <version>` first")

// CLI 把 Migrator 的结果格式化输出到终端，供 migrate 子命令使用
type CLI struct {
	migrator Migrator
	out      io.Writer
}

// NewCLI creates a new CLI instance writing to stdout
func NewCLI(migrator Migrator) *CLI {
	return &CLI{migrator: migrator, out: os.Stdout}
}

// SetOutput sets the output writer for CLI messages
func (c *CLI) SetOutput(w io.Writer) {
	c.out = w
}

// RunUp applies every pending migration
func (c *CLI) RunUp(ctx context.Context) error {
	info, err := c.cleanInfo(ctx)
	if err != nil {
		return err
	}
	if info.PendingMigrations == 0 {
		fmt.Fprintf(c.out, "Schema is up to date (version %d).\n", info.CurrentVersion)
		return nil
	}
	fmt.Fprintf(c.out, "Applying %d migration(s)...\n", info.PendingMigrations)
	return c.mutate(ctx, "Migrations complete", c.migrator.Up)
}

// RunDown rolls back the last applied migration
func (c *CLI) RunDown(ctx context.Context) error {
	info, err := c.cleanInfo(ctx)
	if err != nil {
		return err
	}
	if info.CurrentVersion == 0 {
		fmt.Fprintln(c.out, "Nothing to roll back.")
		return nil
	}
	fmt.Fprintf(c.out, "Rolling back version %d...\n", info.CurrentVersion)
	return c.mutate(ctx, "Rollback complete", c.migrator.Down)
}

// RunSteps applies (n > 0) or rolls back (n < 0) n migrations
func (c *CLI) RunSteps(ctx context.Context, n int) error {
	if n == 0 {
		return errors.New("steps must be non-zero")
	}
	if _, err := c.cleanInfo(ctx); err != nil {
		return err
	}
	return c.mutate(ctx, fmt.Sprintf("Moved %+d step(s)", n), func(ctx context.Context) error {
		return c.migrator.Steps(ctx, n)
	})
}

// RunForce sets the version without running SQL; clears a dirty state
func (c *CLI) RunForce(ctx context.Context, version int) error {
	if version < 0 {
		return fmt.Errorf("invalid version %d", version)
	}
	return c.mutate(ctx, fmt.Sprintf("Version forced to %d", version), func(ctx context.Context) error {
		return c.migrator.Force(ctx, version)
	})
}

// RunVersion prints the current version
func (c *CLI) RunVersion(ctx context.Context) error {
	version, dirty, err := c.migrator.Version(ctx)
	if err != nil {
		return fmt.Errorf("failed to get version: %w", err)
	}
	switch {
	case version == 0 && !dirty:
		fmt.Fprintln(c.out, "No migrations applied yet.")
	case dirty:
		fmt.Fprintf(c.out, "Current version: %d (dirty)\n", version)
	default:
		fmt.Fprintf(c.out, "Current version: %d\n", version)
	}
	return nil
}

// RunStatus prints one row per embedded migration, the current one marked with *
func (c *CLI) RunStatus(ctx context.Context) error {
	statuses, err := c.migrator.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	if len(statuses) == 0 {
		fmt.Fprintln(c.out, "No migrations found.")
		return nil
	}

	applied := 0
	current := uint(0)
	for _, s := range statuses {
		if s.Applied {
			applied++
			current = s.Version
		}
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, " \tVERSION\tNAME\tSTATE")
	for _, s := range statuses {
		mark := " "
		if s.Version == current {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%06d\t%s\t%s\n", mark, s.Version, s.Name, stateLabel(s))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\nTotal: %d, Applied: %d, Pending: %d\n", len(statuses), applied, len(statuses)-applied)
	return nil
}

// RunInfo prints the migration summary
func (c *CLI) RunInfo(ctx context.Context) error {
	info, err := c.migrator.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get info: %w", err)
	}
	w := tabwriter.NewWriter(c.out, 0, 0, 1, ' ', 0)
	fmt.Fprintf(w, "Current version:\t%d\n", info.CurrentVersion)
	fmt.Fprintf(w, "Dirty:\t%v\n", info.Dirty)
	fmt.Fprintf(w, "Applied:\t%d/%d\n", info.AppliedMigrations, info.TotalMigrations)
	fmt.Fprintf(w, "Pending:\t%d\n", info.PendingMigrations)
	return w.Flush()
}

// cleanInfo 读取当前状态，dirty 时返回 ErrDirty
func (c *CLI) cleanInfo(ctx context.Context) (*MigrationInfo, error) {
	info, err := c.migrator.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get info: %w", err)
	}
	if info.Dirty {
		return nil, fmt.Errorf("version %d: %w", info.CurrentVersion, ErrDirty)
	}
	return info, nil
}

// mutate 执行一次变更并打印变更后的版本
func (c *CLI) mutate(ctx context.Context, done string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	info, err := c.migrator.Info(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s. Current version: %d (%d/%d applied)\n",
		done, info.CurrentVersion, info.AppliedMigrations, info.TotalMigrations)
	return nil
}

func stateLabel(s MigrationStatus) string {
	switch {
	case s.Dirty:
		return "dirty"
	case s.Applied:
		return "applied"
	default:
		return "pending"
	}
}
