package cmd

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

// isolate runs the test in an empty working directory with no user or
// system config in reach.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	return dir
}

// runCommand executes a fresh command tree and captures its output.
func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCommandContext(t, context.Background(), args...)
}

func runCommandContext(t *testing.T, ctx context.Context, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}
