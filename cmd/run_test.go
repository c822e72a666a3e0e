package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/packwright/packwright/internal/config"
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

func TestDryRunLeavesNoArtifactStore(t *testing.T) {
	dir := t.TempDir()
	definition := `
name: sjtumat
on:
  tags: ["v*"]
jobs:
  build:
    steps:
      - name: freeze
        run: "true"
`
	path := filepath.Join(dir, "packwright.yaml")
	require.NoError(t, os.WriteFile(path, []byte(definition), 0644))

	Cfg = config.DefaultConfig()
	Cfg.Artifacts.Root = filepath.Join(dir, "artifacts")
	Cfg.Build.DistDir = filepath.Join(dir, "dist")

	pipelineFile = path
	pushedRef = "refs/tags/v1.0.0"
	dryRun = true
	defer func() { dryRun = false }()

	require.NoError(t, runPipeline(context.Background()))

	// A plan print must have no filesystem side effects
	_, err := os.Stat(Cfg.Artifacts.Root)
	assert.True(t, os.IsNotExist(err))
}
