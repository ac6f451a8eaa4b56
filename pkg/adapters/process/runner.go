package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/loopforge/conveyor/internal/logging"
	"github.com/loopforge/conveyor/pkg/config"
	"github.com/loopforge/conveyor/pkg/domain"
	"github.com/loopforge/conveyor/pkg/ports"
)

// Runner implements the verification and packaging collaborators over the
// pipeline's command registry. Command roles: install, check, smoke,
// package.
type Runner struct {
	registry map[string]config.Command
	logger   *slog.Logger
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner creates a runner over the registered commands.
func NewRunner(registry map[string]config.Command, opts ...RunnerOption) *Runner {
	r := &Runner{registry: registry, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var (
	_ ports.DependencyInstaller = (*Runner)(nil)
	_ ports.StaticChecker       = (*Runner)(nil)
	_ ports.Builder             = (*Runner)(nil)
	_ ports.Packager            = (*Runner)(nil)
)

func (r *Runner) command(role string) (config.Command, error) {
	cmd, ok := r.registry[role]
	if !ok {
		return config.Command{}, fmt.Errorf("no %q command registered", role)
	}
	return cmd, nil
}

// Install satisfies the dependency manifest inside the tool environment.
// The manifest path is appended to the registered command's arguments.
func (r *Runner) Install(ctx context.Context, env ports.ToolEnv, manifest string) error {
	cmd, err := r.command("install")
	if err != nil {
		return err
	}
	var extra []string
	if manifest != "" {
		extra = []string{manifest}
	}
	_, err = runCommand(ctx, env, cmd, extra, nil)
	return err
}

// Check runs the static checker and parses its findings. The checker
// exiting 1 means findings exist and is not an invocation error; any other
// non-zero exit is.
func (r *Runner) Check(ctx context.Context, env ports.ToolEnv, path string, policy domain.CheckPolicy) ([]domain.Finding, error) {
	cmd, err := r.command("check")
	if err != nil {
		return nil, err
	}

	res, err := runCommand(ctx, env, cmd, []string{path}, nil)
	var ee *exitError
	if err != nil && (!errors.As(err, &ee) || ee.code != 1) {
		return nil, err
	}

	findings := parseFindings(res.stdout, policy)
	r.logger.Debug("static check complete", "findings", len(findings))
	return findings, nil
}

// Smoke performs the build-and-install smoke test.
func (r *Runner) Smoke(ctx context.Context, env ports.ToolEnv, ec domain.ExecutionContext) error {
	cmd, err := r.command("smoke")
	if err != nil {
		return err
	}
	_, err = runCommand(ctx, env, cmd, nil, nil)
	return err
}

// Package builds the platform package for one context. The registered
// command receives the chosen version via CONVEYOR_VERSION and must print
// the artifact path as the last line of its stdout.
func (r *Runner) Package(ctx context.Context, env ports.ToolEnv, ec domain.ExecutionContext, version string) (string, error) {
	cmd, err := r.command("package")
	if err != nil {
		return "", err
	}

	res, err := runCommand(ctx, env, cmd, nil, []string{"CONVEYOR_VERSION=" + version})
	if err != nil {
		return "", err
	}

	artifact := lastLine(res.stdout)
	if artifact == "" {
		return "", fmt.Errorf("%q produced no artifact path", cmd.Command)
	}
	return artifact, nil
}

// parseFindings reads checker output in the common "file:line:col: CODE
// message" shape and classifies each line under the policy. Lines that do
// not match are ignored rather than failing the step.
func parseFindings(out string, policy domain.CheckPolicy) []domain.Finding {
	var findings []domain.Finding
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 4)
		if len(parts) != 4 {
			continue
		}
		lineNo, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			continue
		}
		code, message, _ := strings.Cut(strings.TrimSpace(parts[3]), " ")
		findings = append(findings, domain.Finding{
			Code:     code,
			File:     parts[0],
			Line:     lineNo,
			Message:  strings.TrimSpace(message),
			Severity: policy.Classify(code),
		})
	}
	return findings
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
