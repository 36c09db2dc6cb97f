package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadEnv_FallsBackToGoModRoot(t *testing.T) {
	tmp := t.TempDir()

	requireWriteFile(t, filepath.Join(tmp, "go.mod"), "module example.com/test\n\ngo 1.22\n")
	requireWriteFile(t, filepath.Join(tmp, ".env.local"), "OPSDESK_TEST_ENV_LOAD=ok\n")

	sub := filepath.Join(tmp, "pkg", "crud")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	t.Chdir(sub)

	_ = os.Unsetenv("OPSDESK_TEST_ENV_LOAD")
	t.Cleanup(func() { _ = os.Unsetenv("OPSDESK_TEST_ENV_LOAD") })

	n, err := LoadEnv([]string{".env", ".env.local"})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "ok", os.Getenv("OPSDESK_TEST_ENV_LOAD"))
}

func TestLoad_WorkflowDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOG_PATH", "")

	c, err := Load(nil)
	require.NoError(t, err)
	t.Cleanup(c.Unload)

	require.Equal(t, 5, c.Workflow.BatchSize)
	require.False(t, c.Workflow.OptimisticLocking)
	require.Equal(t, ProgressBackendLog, c.Workflow.ProgressBackend)
	require.NotNil(t, c.Logger())
	require.Equal(t, "localhost:3200", c.SocketAddress)
}

func TestLoad_FileLogger(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("LOG_PATH", filepath.Join(dir, "logs", "app.log"))

	c, err := Load(nil)
	require.NoError(t, err)
	t.Cleanup(c.Unload)

	c.Logger().Error("hello")
	require.FileExists(t, filepath.Join(dir, "logs", "app.log"))
}

func TestLoad_RejectsUnknownProgressBackend(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOG_PATH", "")
	t.Setenv("WORKFLOW_PROGRESS_BACKEND", "kafka")

	_, err := Load(nil)
	require.ErrorContains(t, err, "WORKFLOW_PROGRESS_BACKEND")
}

func TestWorkflowOptions_ValidateClampsBatchSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want int
	}{
		{0, MinBatchSize},
		{-3, MinBatchSize},
		{7, 7},
		{500, MaxBatchSize},
	}
	for _, tt := range tests {
		w := WorkflowOptions{BatchSize: tt.in}
		require.NoError(t, w.Validate())
		require.Equal(t, tt.want, w.BatchSize)
		require.Equal(t, ProgressBackendLog, w.ProgressBackend)
	}
}

func requireWriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
