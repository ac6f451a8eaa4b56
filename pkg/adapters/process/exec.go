package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/loopforge/conveyor/pkg/config"
	"github.com/loopforge/conveyor/pkg/ports"
)

// execResult holds the captured output of one collaborator invocation.
type execResult struct {
	stdout   string
	stderr   string
	exitCode int
}

// runCommand spawns a registered command inside the given tool environment.
// extraEnv entries are appended last so step-specific values (version,
// credential) win over everything else. A non-zero exit is returned as an
// exitError carrying the captured stderr; anything else (unstartable
// binary, cancelled context) surfaces as a plain error.
func runCommand(ctx context.Context, env ports.ToolEnv, cmd config.Command, extraArgs, extraEnv []string) (execResult, error) {
	args := append(append([]string(nil), cmd.Args...), extraArgs...)
	c := exec.CommandContext(ctx, cmd.Command, args...)
	c.Dir = env.Dir()

	environ := append(os.Environ(), env.Environ()...)
	for k, v := range cmd.Env {
		environ = append(environ, k+"="+v)
	}
	c.Env = append(environ, extraEnv...)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	res := execResult{stdout: stdout.String(), stderr: stderr.String()}

	var ee *exec.ExitError
	if errors.As(err, &ee) {
		res.exitCode = ee.ExitCode()
		return res, &exitError{command: cmd.Command, code: res.exitCode, stderr: res.stderr}
	}
	if err != nil {
		return res, fmt.Errorf("running %q: %w", cmd.Command, err)
	}
	return res, nil
}

// exitError reports a collaborator exiting non-zero.
type exitError struct {
	command string
	code    int
	stderr  string
}

func (e *exitError) Error() string {
	msg := fmt.Sprintf("%q exited with code %d", e.command, e.code)
	if e.stderr != "" {
		msg += ": " + firstLine(e.stderr)
	}
	return msg
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
