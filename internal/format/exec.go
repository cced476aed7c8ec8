package format

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"time"
)

// Output is the captured result of a subprocess that ran to completion.
type Output struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Success reports a zero exit status.
func (o *Output) Success() bool { return o.ExitCode == 0 }

// waitDelay bounds how long Run waits for output pipes held open by
// grandchildren once the child has exited or been killed.
const waitDelay = 500 * time.Millisecond

// Run executes name with args in dir and captures both output streams. A
// non-zero exit is reported through Output, not as an error; failing to
// start the process or exceeding timeout is an error.
func Run(ctx context.Context, dir string, timeout time.Duration, name string, args ...string) (*Output, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := &Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return out, fmt.Errorf("%s timed out after %v", name, timeout)
		}
		return out, ctxErr
	}
	// The child exited zero but left its pipes to a background process.
	if errors.Is(err, exec.ErrWaitDelay) {
		return out, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	}
	return out, fmt.Errorf("%s failed to start: %w", name, err)
}

// ExecFormatter checks files by running an external formatter in check
// mode. The file path is appended to Args.
type ExecFormatter struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// Check implements Formatter.
func (f *ExecFormatter) Check(ctx context.Context, src Source) (*Violation, error) {
	args := append(slices.Clone(f.Args), src.Path)
	out, err := Run(ctx, "", f.Timeout, f.Command, args...)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", src.Path, err)
	}
	if out.Success() {
		return nil, nil
	}
	return &Violation{Path: src.Path, Stdout: string(out.Stdout), Stderr: string(out.Stderr)}, nil
}

func (f *ExecFormatter) String() string { return f.Command }
