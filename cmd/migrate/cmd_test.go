package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestMigrateCommands_SQLite(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "callnotes.db"))

	out := run(t, "status")
	assert.Equal(t, 3, strings.Count(out, "pending"))

	run(t, "up")
	out = run(t, "status")
	assert.Equal(t, 3, strings.Count(out, "applied"))
	assert.Contains(t, out, "00002_create_calls.sql")

	run(t, "down")
	out = run(t, "status")
	assert.Equal(t, 1, strings.Count(out, "pending"))
}
