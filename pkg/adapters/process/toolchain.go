// Package process implements the pipeline collaborators as local process
// executions. It follows a strict registry pattern: only commands declared
// in the pipeline configuration are ever spawned.
package process

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/loopforge/conveyor/internal/logging"
	"github.com/loopforge/conveyor/pkg/domain"
	"github.com/loopforge/conveyor/pkg/ports"
)

// Toolchain acquires scoped tool environments. Each acquisition creates a
// private scratch directory that Close removes regardless of step outcome.
type Toolchain struct {
	baseDir string
	logger  *slog.Logger
}

// ToolchainOption configures the toolchain.
type ToolchainOption func(*Toolchain)

// WithToolchainLogger sets a structured logger.
func WithToolchainLogger(logger *slog.Logger) ToolchainOption {
	return func(t *Toolchain) { t.logger = logger }
}

// NewToolchain creates a toolchain rooted at the project directory.
func NewToolchain(baseDir string, opts ...ToolchainOption) *Toolchain {
	t := &Toolchain{baseDir: baseDir, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var _ ports.Toolchain = (*Toolchain)(nil)

// Acquire prepares a tool environment for one execution context. The
// context's axis values are exported as CONVEYOR_<AXIS> variables so the
// registered commands can target the right runtime and platform.
func (t *Toolchain) Acquire(ctx context.Context, ec domain.ExecutionContext) (ports.ToolEnv, error) {
	scratch, err := os.MkdirTemp("", "conveyor-env-")
	if err != nil {
		return nil, fmt.Errorf("creating scratch dir: %w", err)
	}

	environ := []string{"CONVEYOR_SCRATCH=" + scratch}
	for axis, value := range ec.Values {
		environ = append(environ, "CONVEYOR_"+strings.ToUpper(axis)+"="+value)
	}

	t.logger.Debug("tool environment acquired", "context", ec.Label(), "scratch", scratch)
	return &toolEnv{dir: t.baseDir, scratch: scratch, environ: environ}, nil
}

type toolEnv struct {
	dir     string
	scratch string
	environ []string
}

func (e *toolEnv) Environ() []string { return e.environ }
func (e *toolEnv) Dir() string       { return e.dir }

func (e *toolEnv) Close() error {
	return os.RemoveAll(e.scratch)
}
