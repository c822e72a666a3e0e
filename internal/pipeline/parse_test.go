package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleDefinition = []byte(`
name: sjtumat
on:
  tags: ["v*"]
jobs:
  build:
    matrix:
      platform: [windows]
      arch: [x64]
    steps:
      - name: freeze
        uses: build
        with:
          command: pyinstaller --onefile main.py
      - uses: archive
      - uses: upload-artifact
  release:
    needs: [build]
    steps:
      - uses: download-artifact
      - uses: publish-release
`)

var knownActions = []string{"archive", "build", "download-artifact", "publish-release", "upload-artifact"}

func TestParseSampleDefinition(t *testing.T) {
	p, err := Parse(sampleDefinition)
	require.NoError(t, err)

	assert.Equal(t, "sjtumat", p.Name)
	assert.Equal(t, []string{"v*"}, p.Trigger.Tags)
	require.Len(t, p.Jobs, 2)

	// Declaration order is preserved
	assert.Equal(t, "build", p.Jobs[0].Name)
	assert.Equal(t, "release", p.Jobs[1].Name)

	build := p.Job("build")
	require.NotNil(t, build)
	require.NotNil(t, build.Matrix)
	assert.Equal(t, []string{"windows"}, build.Matrix.Platform)
	require.Len(t, build.Steps, 3)
	assert.Equal(t, "freeze", build.Steps[0].Name)
	assert.Equal(t, "pyinstaller --onefile main.py", build.Steps[0].With["command"])

	release := p.Job("release")
	require.NotNil(t, release)
	assert.Equal(t, []string{"build"}, release.Needs)

	require.NoError(t, p.Validate(knownActions))
}

func TestParseRejectsMissingJobs(t *testing.T) {
	_, err := Parse([]byte("name: empty\non:\n  tags: [v*]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no jobs")
}

func TestValidateRejectsStepWithUsesAndRun(t *testing.T) {
	p, err := Parse([]byte(`
name: bad
jobs:
  build:
    steps:
      - uses: build
        run: echo hi
`))
	require.NoError(t, err)

	err = p.Validate(knownActions)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestValidateRejectsUnknownAction(t *testing.T) {
	p, err := Parse([]byte(`
name: bad
jobs:
  build:
    steps:
      - uses: teleport
`))
	require.NoError(t, err)

	err = p.Validate(knownActions)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown action "teleport"`)
}

func TestValidateRejectsUnknownDependency(t *testing.T) {
	p, err := Parse([]byte(`
name: bad
jobs:
  release:
    needs: [build]
    steps:
      - uses: publish-release
`))
	require.NoError(t, err)

	err = p.Validate(knownActions)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown job "build"`)
}

func TestValidateRejectsSelfDependency(t *testing.T) {
	p, err := Parse([]byte(`
name: bad
jobs:
  build:
    needs: [build]
    steps:
      - run: echo hi
`))
	require.NoError(t, err)

	err = p.Validate(knownActions)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "depends on itself")
}

func TestValidateRejectsEmptyStep(t *testing.T) {
	p, err := Parse([]byte(`
name: bad
jobs:
  build:
    steps:
      - name: nothing
`))
	require.NoError(t, err)

	err = p.Validate(knownActions)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "one of uses or run is required")
}
