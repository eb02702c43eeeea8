package migration

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubMigrator 只返回固定状态，记录变更调用
type stubMigrator struct {
	info  MigrationInfo
	calls []string
}

func (s *stubMigrator) Up(context.Context) error   { s.calls = append(s.calls, "up"); return nil }
func (s *stubMigrator) Down(context.Context) error { s.calls = append(s.calls, "down"); return nil }
func (s *stubMigrator) Steps(_ context.Context, n int) error {
	s.calls = append(s.calls, "steps")
	return nil
}
func (s *stubMigrator) Force(_ context.Context, v int) error {
	s.calls = append(s.calls, "force")
	s.info.CurrentVersion = uint(v)
	s.info.Dirty = false
	return nil
}
func (s *stubMigrator) Version(context.Context) (uint, bool, error) {
	return s.info.CurrentVersion, s.info.Dirty, nil
}
func (s *stubMigrator) Status(context.Context) ([]MigrationStatus, error) { return nil, nil }
func (s *stubMigrator) Info(context.Context) (*MigrationInfo, error) {
	info := s.info
	return &info, nil
}
func (s *stubMigrator) Close() error { return nil }

func TestCLI_DirtyGuard(t *testing.T) {
	stub := &stubMigrator{info: MigrationInfo{CurrentVersion: 2, Dirty: true, TotalMigrations: 3, AppliedMigrations: 2, PendingMigrations: 1}}
	cli := NewCLI(stub)
	cli.SetOutput(&bytes.Buffer{})
	ctx := context.Background()

	assert.ErrorIs(t, cli.RunUp(ctx), ErrDirty)
	assert.ErrorIs(t, cli.RunDown(ctx), ErrDirty)
	assert.ErrorIs(t, cli.RunSteps(ctx, 1), ErrDirty)
	assert.Empty(t, stub.calls)

	// force 清除 dirty 后可以继续
	require.NoError(t, cli.RunForce(ctx, 1))
	require.NoError(t, cli.RunUp(ctx))
	assert.Equal(t, []string{"force", "up"}, stub.calls)
}

func TestCLI_ArgumentChecks(t *testing.T) {
	stub := &stubMigrator{}
	cli := NewCLI(stub)
	var buf bytes.Buffer
	cli.SetOutput(&buf)
	ctx := context.Background()

	assert.Error(t, cli.RunSteps(ctx, 0))
	assert.Error(t, cli.RunForce(ctx, -1))

	require.NoError(t, cli.RunDown(ctx))
	assert.Contains(t, buf.String(), "Nothing to roll back")

	buf.Reset()
	require.NoError(t, cli.RunStatus(ctx))
	assert.Contains(t, buf.String(), "No migrations found")
	assert.Empty(t, stub.calls)
}

func TestCLI_VersionAndInfo(t *testing.T) {
	stub := &stubMigrator{info: MigrationInfo{CurrentVersion: 3, Dirty: true, TotalMigrations: 4, AppliedMigrations: 3, PendingMigrations: 1}}
	cli := NewCLI(stub)
	var buf bytes.Buffer
	cli.SetOutput(&buf)
	ctx := context.Background()

	require.NoError(t, cli.RunVersion(ctx))
	assert.Contains(t, buf.String(), "Current version: 3 (dirty)")

	buf.Reset()
	require.NoError(t, cli.RunInfo(ctx))
	out := buf.String()
	assert.Contains(t, out, "Applied:")
	assert.Contains(t, out, "3/4")
	assert.Contains(t, out, "true")
}
