package cmdrunner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/packwright/packwright/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.Config{
		Level:  "error",
		Format: "text",
		File:   filepath.Join(os.TempDir(), "packwright-test.log"),
	}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestRunShellUsesDirAndEnv(t *testing.T) {
	runner := NewCommandsRunner()
	dir := t.TempDir()

	err := runner.RunShell(context.Background(), dir, map[string]string{"GREETING": "hi"}, `printf "$GREETING" > out.txt`)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
}

func TestRunShellWrapsFailureWithOutput(t *testing.T) {
	runner := NewCommandsRunner()

	err := runner.RunShell(context.Background(), "", nil, "echo nope >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command error")
	assert.Contains(t, err.Error(), "nope")
}

func TestRunShellReportsCancellation(t *testing.T) {
	runner := NewCommandsRunner()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runner.RunShell(ctx, "", nil, "sleep 5")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
