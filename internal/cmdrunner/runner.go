package cmdrunner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/packwright/packwright/pkg/logger"
)

// CommandRunner is the surface build and run steps use to execute external
// tooling
type CommandRunner interface {
	RunShell(ctx context.Context, dir string, env map[string]string, script string) error
}

type CommandsRunner struct {
	logger *logger.Logger
}

func NewCommandsRunner() *CommandsRunner {
	return &CommandsRunner{logger: logger.NewLogger("command_runner")}
}

// RunShell runs a shell script line in the given directory with extra
// environment variables appended to the current environment
func (r *CommandsRunner) RunShell(ctx context.Context, dir string, env map[string]string, script string) error {
	c := exec.CommandContext(ctx, "sh", "-c", script)
	c.Dir = dir
	c.Env = mergedEnv(env)

	output, err := c.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.logger.Errorf("shell command failed: %s\n%s", script, string(output))
		return fmt.Errorf("command error: %w\n%s", err, string(output))
	}
	if len(output) > 0 {
		r.logger.Debugf("command output: %s", strings.TrimSpace(string(output)))
	}
	return nil
}

// mergedEnv appends the extra variables to the process environment in a
// stable order
func mergedEnv(extra map[string]string) []string {
	env := os.Environ()
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}
