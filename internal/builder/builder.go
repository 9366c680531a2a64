package builder

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/yz4230/sitehost/internal/entity"
)

const (
	DefaultInstallCommand = "npm install"
	DefaultBuildCommand   = "npm run build"

	maxOutputLength = 4096
)

type Builder interface {
	// Build installs dependencies and builds the workspace at dir (an
	// absolute path). Failures are reported as *BuildError.
	Build(ctx context.Context, dir string) error
}

type Config struct {
	InstallCommand string
	BuildCommand   string
}

type builderImpl struct {
	runner Runner
	steps  []string
	log    zerolog.Logger
}

// Build implements Builder.
func (b *builderImpl) Build(ctx context.Context, dir string) error {
	for _, command := range b.steps {
		b.log.Info().Str("dir", dir).Str("command", command).Msg("running build step")

		res, err := b.runner.Run(ctx, command, dir)
		if res == nil {
			res = &Result{ExitCode: -1}
		}
		if err != nil || res.ExitCode != 0 {
			berr := &BuildError{Command: command, ExitCode: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr, Err: err}
			b.log.Error().Err(berr).Str("dir", dir).Str("output", berr.Output()).Msg("build step failed")
			return berr
		}
	}
	return nil
}

// BuildError is returned when an install or build step fails. It matches
// entity.ErrBuildFailed.
type BuildError struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%q failed: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%q exited with status %d", e.Command, e.ExitCode)
}

func (e *BuildError) Unwrap() []error {
	if e.Err == nil {
		return []error{entity.ErrBuildFailed}
	}
	return []error{entity.ErrBuildFailed, e.Err}
}

// Output returns the tail of the captured stderr and stdout.
func (e *BuildError) Output() string {
	out := strings.TrimSpace(strings.Join([]string{strings.TrimSpace(e.Stderr), strings.TrimSpace(e.Stdout)}, "\n"))
	if len(out) > maxOutputLength {
		out = "..." + out[len(out)-maxOutputLength:]
	}
	return out
}

func NewBuilder(runner Runner, config Config, log zerolog.Logger) Builder {
	install, build := config.InstallCommand, config.BuildCommand
	if install == "" {
		install = DefaultInstallCommand
	}
	if build == "" {
		build = DefaultBuildCommand
	}
	return &builderImpl{runner: runner, steps: []string{install, build}, log: log}
}
