package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMigrateArgs(t *testing.T) {
	t.Run("flags after subcommand", func(t *testing.T) {
		inv, err := parseMigrateArgs([]string{"up", "--config", "c.yaml"})
		require.NoError(t, err)
		assert.Equal(t, "up", inv.sub)
		assert.Equal(t, "c.yaml", inv.configPath)
		assert.NotNil(t, inv.run)
	})

	t.Run("negative steps is not a flag", func(t *testing.T) {
		inv, err := parseMigrateArgs([]string{"steps", "-2", "--db-type", "sqlite", "--db-url", "file:x.db"})
		require.NoError(t, err)
		assert.Equal(t, -2, inv.n)
		assert.Equal(t, "sqlite", inv.dbType)
		assert.Equal(t, "file:x.db", inv.dbURL)
	})

	t.Run("help", func(t *testing.T) {
		_, err := parseMigrateArgs([]string{"--help"})
		assert.ErrorIs(t, err, errMigrateHelp)
	})

	errCases := map[string][]string{
		"empty":           nil,
		"unknown":         {"sideways"},
		"force without v": {"force"},
		"steps not int":   {"steps", "two"},
		"bad flag":        {"up", "--nope"},
	}
	for name, args := range errCases {
		t.Run(name, func(t *testing.T) {
			_, err := parseMigrateArgs(args)
			assert.Error(t, err)
			assert.NotErrorIs(t, err, errMigrateHelp)
		})
	}
}

func TestPrintMigrateUsage_ListsEverySubcommand(t *testing.T) {
	var buf bytes.Buffer
	printMigrateUsage(&buf)
	for name := range migrateCommands {
		assert.Contains(t, buf.String(), "  "+name)
	}
}
