package steps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/packwright/packwright/internal/cmdrunner"
	"github.com/packwright/packwright/internal/operations/artifact"
	"github.com/packwright/packwright/internal/operations/github"
	"github.com/packwright/packwright/internal/pipeline"
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

var winEntry = pipeline.MatrixEntry{Platform: "windows", Arch: "x64"}

func newTestServices(t *testing.T) *Services {
	t.Helper()
	return &Services{
		Runner:  cmdrunner.NewCommandsRunner(),
		App:     "sjtumat",
		Tag:     "v1.0.0",
		Version: "1.0.0",
		DistDir: t.TempDir(),
	}
}

func beginSession(t *testing.T, services *Services, job string, entry pipeline.MatrixEntry) *Session {
	t.Helper()
	session, ok := NewRegistry(services).Begin(job, entry).(*Session)
	require.True(t, ok)
	return session
}

func TestRegistryActions(t *testing.T) {
	registry := NewRegistry(&Services{})
	assert.Equal(t, []string{
		"archive", "build", "download-artifact", "publish-release", "upload-artifact",
	}, registry.Actions())
}

func TestSessionExpand(t *testing.T) {
	session := beginSession(t, newTestServices(t), "build", winEntry)

	expanded := session.Expand("{app}-{version}-{platform}-{arch}{ext}")
	assert.Equal(t, "sjtumat-1.0.0-windows-x64.exe", expanded)
	assert.Equal(t, "windows-x64", session.Expand("{slug}"))
	assert.Equal(t, "plain", session.Expand("plain"))
}

func TestSessionEnv(t *testing.T) {
	session := beginSession(t, newTestServices(t), "build", winEntry)

	env := session.Env(pipeline.Step{Env: map[string]string{"MODE": "{platform}"}})
	assert.Equal(t, "v1.0.0", env["PACKWRIGHT_TAG"])
	assert.Equal(t, "1.0.0", env["PACKWRIGHT_VERSION"])
	assert.Equal(t, "windows", env["PACKWRIGHT_PLATFORM"])
	assert.Equal(t, "x64", env["PACKWRIGHT_ARCH"])
	assert.Equal(t, "windows", env["MODE"])
}

func TestRunStepRejectsUnknownAction(t *testing.T) {
	session := beginSession(t, newTestServices(t), "build", winEntry)

	err := session.RunStep(context.Background(), pipeline.Step{Uses: "teleport"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported action")
}

func TestRunShellStepSeesPipelineEnv(t *testing.T) {
	session := beginSession(t, newTestServices(t), "build", winEntry)

	err := session.RunStep(context.Background(), pipeline.Step{
		Run: `test "$PACKWRIGHT_TAG" = v1.0.0 && test "$PACKWRIGHT_PLATFORM" = windows`,
	})
	require.NoError(t, err)
}

func TestBuildHandlerProducesOutput(t *testing.T) {
	services := newTestServices(t)
	session := beginSession(t, services, "build", winEntry)

	err := session.RunStep(context.Background(), pipeline.Step{
		Uses: "build",
		With: map[string]string{"command": `printf frozen > "$PACKWRIGHT_OUTPUT"`},
	})
	require.NoError(t, err)

	binary := session.Outputs["binary"]
	assert.Equal(t, filepath.Join(services.DistDir, "sjtumat-1.0.0-windows-x64.exe"), binary)

	data, err := os.ReadFile(binary)
	require.NoError(t, err)
	assert.Equal(t, "frozen", string(data))
}

func TestBuildHandlerRequiresCommand(t *testing.T) {
	session := beginSession(t, newTestServices(t), "build", winEntry)

	err := session.RunStep(context.Background(), pipeline.Step{Uses: "build"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "with.command")
}

func TestBuildHandlerFailsWhenNothingProduced(t *testing.T) {
	session := beginSession(t, newTestServices(t), "build", winEntry)

	err := session.RunStep(context.Background(), pipeline.Step{
		Uses: "build",
		With: map[string]string{"command": "true"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no output")
}

func TestArchiveHandlerPacksBuildOutput(t *testing.T) {
	services := newTestServices(t)
	session := beginSession(t, services, "build", pipeline.MatrixEntry{Platform: "linux", Arch: "amd64"})

	binary := filepath.Join(t.TempDir(), "sjtumat")
	require.NoError(t, os.WriteFile(binary, []byte("binary"), 0755))
	session.Outputs["binary"] = binary

	err := session.RunStep(context.Background(), pipeline.Step{Uses: "archive"})
	require.NoError(t, err)

	archivePath := session.Outputs["archive"]
	assert.Equal(t, filepath.Join(services.DistDir, "sjtumat-1.0.0-linux-amd64.tar.gz"), archivePath)
	assert.FileExists(t, archivePath)
	assert.FileExists(t, session.Outputs["checksum"])
}

func TestArchiveHandlerRequiresSomethingToPack(t *testing.T) {
	session := beginSession(t, newTestServices(t), "build", winEntry)

	err := session.RunStep(context.Background(), pipeline.Step{Uses: "archive"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to pack")
}

func TestArtifactHandOffBetweenJobs(t *testing.T) {
	services := newTestServices(t)
	store, err := artifact.NewStore(t.TempDir(), "run-1")
	require.NoError(t, err)
	services.Artifacts = store

	// Build job uploads its archive and checksum
	buildSession := beginSession(t, services, "build", winEntry)
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "sjtumat-1.0.0-windows-x64.zip")
	checksumPath := archivePath + ".sha256"
	require.NoError(t, os.WriteFile(archivePath, []byte("zip-bytes"), 0644))
	require.NoError(t, os.WriteFile(checksumPath, []byte("digest"), 0644))
	buildSession.Outputs["archive"] = archivePath
	buildSession.Outputs["checksum"] = checksumPath

	err = buildSession.RunStep(context.Background(), pipeline.Step{Uses: "upload-artifact"})
	require.NoError(t, err)

	// Release job downloads everything the build job stored
	releaseSession := beginSession(t, services, "release", winEntry)
	err = releaseSession.RunStep(context.Background(), pipeline.Step{Uses: "download-artifact"})
	require.NoError(t, err)

	require.Len(t, releaseSession.Downloads, 2)
	for _, path := range releaseSession.Downloads {
		assert.FileExists(t, path)
	}
}

func TestDownloadArtifactFailsOnEmptyStore(t *testing.T) {
	services := newTestServices(t)
	store, err := artifact.NewStore(t.TempDir(), "run-2")
	require.NoError(t, err)
	services.Artifacts = store

	session := beginSession(t, services, "release", winEntry)
	err = session.RunStep(context.Background(), pipeline.Step{Uses: "download-artifact"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to download")
}

func TestPublishReleaseRequiresClient(t *testing.T) {
	session := beginSession(t, newTestServices(t), "release", winEntry)
	session.Downloads = []string{"whatever.zip"}

	err := session.RunStep(context.Background(), pipeline.Step{Uses: "publish-release"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "release client not configured")
}

func TestPublishReleaseRequiresAssets(t *testing.T) {
	services := newTestServices(t)
	client, err := github.NewClient(github.Config{Owner: "acme", Repo: "sjtumat", Token: "tok"})
	require.NoError(t, err)
	services.Release = client

	session := beginSession(t, services, "release", winEntry)
	err = session.RunStep(context.Background(), pipeline.Step{Uses: "publish-release"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no assets")
}
