// Package support holds the step definitions of the CLI feature tests.
package support

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/silkgen/cmd/silkgen/cmd"
	"github.com/MeKo-Tech/silkgen/internal/testutil"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// Command execution state
	LastCommand string
	LastOutput  string
	LastStderr  string
	LastError   error

	// Test environment
	TempDir    string
	previousWD string
}

// NewTestContext creates a scenario context working in a fresh temporary
// directory. Scenarios run one at a time, so changing the process working
// directory is safe.
func NewTestContext() (*TestContext, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	tempDir, err := os.MkdirTemp("", "silkgen-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	if err := os.Chdir(tempDir); err != nil {
		_ = os.RemoveAll(tempDir)
		return nil, fmt.Errorf("failed to enter temp directory: %w", err)
	}
	return &TestContext{TempDir: tempDir, previousWD: wd}, nil
}

// Cleanup restores the working directory and removes the scenario files.
func (testCtx *TestContext) Cleanup() error {
	var errs []error
	if err := os.Chdir(testCtx.previousWD); err != nil {
		errs = append(errs, fmt.Errorf("failed to restore working directory: %w", err))
	}
	if err := os.RemoveAll(testCtx.TempDir); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}

// Path resolves a scenario-relative path.
func (testCtx *TestContext) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(testCtx.TempDir, name)
}

// WriteImage writes a PNG whose rows use the testutil alphabet
// ('o' light, '#' dark, anything else transparent).
func (testCtx *TestContext) WriteImage(name string, rows []string) error {
	path := testCtx.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, testutil.ImageFromRows(rows...)); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}

// RunCommand executes the CLI in process with the given arguments.
func (testCtx *TestContext) RunCommand(ctx context.Context, args []string) {
	root := cmd.NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	testCtx.LastCommand = "silkgen " + strings.Join(args, " ")
	testCtx.LastError = root.ExecuteContext(ctx)
	testCtx.LastOutput = stdout.String()
	testCtx.LastStderr = stderr.String()
}
