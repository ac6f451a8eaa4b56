package process

import (
	"context"
	"log/slog"

	"github.com/loopforge/conveyor/internal/logging"
	"github.com/loopforge/conveyor/pkg/config"
	"github.com/loopforge/conveyor/pkg/ports"
)

// Uploader pushes artifacts with the operating-system-specific command from
// the upload table. The credential is exposed to the child process
// environment for the duration of the invocation only and never logged.
type Uploader struct {
	logger *slog.Logger
}

// UploaderOption configures the uploader.
type UploaderOption func(*Uploader)

// WithUploaderLogger sets a structured logger.
func WithUploaderLogger(logger *slog.Logger) UploaderOption {
	return func(u *Uploader) { u.logger = logger }
}

// NewUploader creates a process-backed uploader.
func NewUploader(opts ...UploaderOption) *Uploader {
	u := &Uploader{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

var _ ports.Uploader = (*Uploader)(nil)

// Upload runs the selected upload command with the artifact path appended.
// The channel token, file glob and visibility label travel as environment
// variables: CONVEYOR_CHANNEL_TOKEN, CONVEYOR_UPLOAD_GLOB,
// CONVEYOR_VISIBILITY.
func (u *Uploader) Upload(ctx context.Context, env ports.ToolEnv, artifact string, cred ports.Credential, spec ports.UploadSpec) error {
	cmd := config.Command{Command: spec.Command, Args: spec.Args}
	extraEnv := []string{
		"CONVEYOR_CHANNEL_TOKEN=" + cred.Reveal(),
		"CONVEYOR_UPLOAD_GLOB=" + spec.Glob,
		"CONVEYOR_VISIBILITY=" + spec.Visibility,
	}

	u.logger.Debug("uploading artifact", "artifact", artifact, "glob", spec.Glob, "visibility", spec.Visibility)
	_, err := runCommand(ctx, env, cmd, []string{artifact}, extraEnv)
	return err
}
