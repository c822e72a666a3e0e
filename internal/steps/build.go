package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/packwright/packwright/internal/pipeline"
	"github.com/packwright/packwright/pkg/logger"
)

const defaultOutputName = "{app}-{version}-{platform}-{arch}{ext}"

// BuildHandler runs the configured freeze/build command for the current
// matrix entry and records the produced binary. The command itself is
// opaque to the pipeline, only the output contract is checked.
type BuildHandler struct {
	services *Services
}

func (h *BuildHandler) Handle(ctx context.Context, session *Session, step pipeline.Step) error {
	command := step.With["command"]
	if command == "" {
		return fmt.Errorf("build step requires with.command")
	}

	outputName := step.With["output"]
	if outputName == "" {
		outputName = defaultOutputName
	}
	outputPath := filepath.Join(h.services.DistDir, session.Expand(outputName))

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create dist directory: %w", err)
	}

	env := session.Env(step)
	env["PACKWRIGHT_OUTPUT"] = outputPath

	log := logger.NewLogger("build")
	log.WithFields(logger.Fields{
		"entry":  session.Entry.Slug(),
		"output": outputPath,
	}).Info("Running build command")

	if err := h.services.Runner.RunShell(ctx, step.Dir, env, session.Expand(command)); err != nil {
		return fmt.Errorf("build command failed: %w", err)
	}

	if _, err := os.Stat(outputPath); err != nil {
		return fmt.Errorf("build produced no output at %s: %w", outputPath, err)
	}

	session.Outputs["binary"] = outputPath
	return nil
}
