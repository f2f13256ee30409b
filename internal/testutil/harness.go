// Package testutil holds the harness used by the end-to-end tests: it writes
// stack files into a temporary directory and compiles them with a fresh app.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/datajob/internal/app"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Root      string
	Output    string
	LogOutput string
	Err       error
	App       *app.App
	Project   *app.Project
}

// WriteFiles writes files (relative path to content) under a new temporary
// directory and returns it.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

// RunIntegrationTest compiles files using a default background context and
// configuration.
func RunIntegrationTest(t *testing.T, files map[string]string) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, app.Config{}, nil)
}

// RunIntegrationTestWithContext compiles files with cfg. When action is set
// it runs after a successful compilation and its error is reported instead.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, cfg app.Config, action func(context.Context, *app.App) error) *HarnessResult {
	t.Helper()

	root := WriteFiles(t, files)
	if len(cfg.Paths) == 0 {
		cfg.Paths = []string{root}
	}
	validated, err := app.NewConfig(cfg)
	require.NoError(t, err)

	a, out, logs := app.SetupAppTest(t, validated)
	result := &HarnessResult{Root: root, App: a}
	result.Project, result.Err = a.Compile(ctx)
	if result.Err == nil && action != nil {
		result.Err = action(ctx, a)
	}
	result.Output = out.String()
	result.LogOutput = logs.String()
	return result
}
