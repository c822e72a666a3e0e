package steps

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/packwright/packwright/internal/cmdrunner"
	"github.com/packwright/packwright/internal/operations/artifact"
	"github.com/packwright/packwright/internal/operations/github"
	"github.com/packwright/packwright/internal/pipeline"
	"github.com/packwright/packwright/pkg/logger"
)

// Services bundles everything the built-in actions need
type Services struct {
	Runner    cmdrunner.CommandRunner
	Artifacts *artifact.Store
	Release   *github.Client
	App       string
	Tag       string
	Version   string
	DistDir   string
}

// Handler executes one built-in action
type Handler interface {
	Handle(ctx context.Context, session *Session, step pipeline.Step) error
}

// Registry maps `uses` names to built-in action handlers
type Registry struct {
	services *Services
	handlers map[string]Handler
	log      *logger.Logger
}

// NewRegistry creates the registry with every built-in action registered
func NewRegistry(services *Services) *Registry {
	registry := &Registry{
		services: services,
		handlers: make(map[string]Handler),
		log:      logger.NewLogger("steps"),
	}

	registry.Register("build", &BuildHandler{services: services})
	registry.Register("archive", &ArchiveHandler{services: services})
	registry.Register("upload-artifact", &UploadArtifactHandler{services: services})
	registry.Register("download-artifact", &DownloadArtifactHandler{services: services})
	registry.Register("publish-release", &PublishReleaseHandler{services: services})

	return registry
}

func (r *Registry) Register(name string, handler Handler) {
	r.handlers[name] = handler
}

// Actions returns the registered action names, sorted
func (r *Registry) Actions() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Begin opens a step session for one job/entry combination
func (r *Registry) Begin(job string, entry pipeline.MatrixEntry) pipeline.StepSession {
	return &Session{
		registry: r,
		Job:      job,
		Entry:    entry,
		Outputs:  make(map[string]string),
	}
}

// Session carries per-entry state between the steps of a job: the build
// output, the archive, and downloaded artifacts
type Session struct {
	registry  *Registry
	Job       string
	Entry     pipeline.MatrixEntry
	Outputs   map[string]string
	Downloads []string
}

// RunStep dispatches one step to its handler
func (s *Session) RunStep(ctx context.Context, step pipeline.Step) error {
	if step.Run != "" {
		return s.runShellStep(ctx, step)
	}

	handler, exists := s.registry.handlers[step.Uses]
	if !exists {
		return fmt.Errorf("unsupported action: %q", step.Uses)
	}
	return handler.Handle(ctx, s, step)
}

// runShellStep executes a `run:` step through the command runner
func (s *Session) runShellStep(ctx context.Context, step pipeline.Step) error {
	script := s.Expand(step.Run)
	return s.registry.services.Runner.RunShell(ctx, step.Dir, s.Env(step), script)
}

// Env builds the environment for a step: the standard pipeline variables
// plus the step's own env block
func (s *Session) Env(step pipeline.Step) map[string]string {
	svc := s.registry.services
	env := map[string]string{
		"PACKWRIGHT_APP":      svc.App,
		"PACKWRIGHT_TAG":      svc.Tag,
		"PACKWRIGHT_VERSION":  svc.Version,
		"PACKWRIGHT_PLATFORM": s.Entry.Platform,
		"PACKWRIGHT_ARCH":     s.Entry.Arch,
		"PACKWRIGHT_DIST":     svc.DistDir,
	}
	if out, ok := s.Outputs["binary"]; ok {
		env["PACKWRIGHT_OUTPUT"] = out
	}
	for k, v := range step.Env {
		env[k] = s.Expand(v)
	}
	return env
}

// Expand substitutes the pipeline placeholders in a configuration value
func (s *Session) Expand(value string) string {
	svc := s.registry.services
	replacer := strings.NewReplacer(
		"{app}", svc.App,
		"{tag}", svc.Tag,
		"{version}", svc.Version,
		"{platform}", s.Entry.Platform,
		"{arch}", s.Entry.Arch,
		"{slug}", s.Entry.Slug(),
		"{ext}", s.Entry.BinaryExt(),
		"{dist}", svc.DistDir,
	)
	return replacer.Replace(value)
}
