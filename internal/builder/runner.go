package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// waitDelay bounds how long Run waits for output pipes held open by
// grandchildren once the shell has been killed.
const waitDelay = time.Second

// Result holds the captured output of a finished process.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes a shell command with dir as its working directory.
// A non-zero exit status is reported through Result.ExitCode; an error means
// the process could not be run or was interrupted.
type Runner interface {
	Run(ctx context.Context, command, dir string) (*Result, error)
}

// ExecRunner runs commands on the host through sh -c.
type ExecRunner struct {
	Shell string
	Env   []string
}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{Shell: "sh"}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, command, dir string) (*Result, error) {
	cmd := exec.CommandContext(ctx, r.Shell, "-c", command)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if ctx.Err() != nil {
		res.ExitCode = -1
		return res, fmt.Errorf("run %q: %w", command, ctx.Err())
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.ExitCode = -1
		return res, fmt.Errorf("run %q: %w", command, err)
	}
	return res, nil
}
