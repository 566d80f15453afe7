// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package process abstracts external process execution for stackctl.

Every container runtime invocation goes through Manager so tests can
record argument vectors instead of starting real processes.

# Exit Status Mapping

	exited normally        its exit code (0-255)
	killed by signal N     128+N (SIGINT -> 130)
	binary not found       127
	not executable         126

# Cancellation

When the context is cancelled the child receives SIGINT, the same signal
the operator's Ctrl-C delivers. If it has not exited after GracePeriod it
is killed. The child is never left running after RunAttached returns.
A context cancelled before launch starts nothing and returns 130.
*/
package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// Exit statuses used when the child never ran or was interrupted.
const (
	ExitNotExecutable = 126
	ExitNotFound      = 127
	ExitInterrupted   = 130
)

// DefaultGracePeriod is how long a cancelled child may take to exit.
const DefaultGracePeriod = 10 * time.Second

// Spec describes one child process.
type Spec struct {
	// Name is the executable (looked up in PATH).
	Name string

	// Args are the arguments after Name.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env entries ("KEY=value") are appended to the inherited environment.
	Env []string

	// Stdin, Stdout and Stderr default to the parent's streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// CommandLine returns Name followed by Args.
func (s Spec) CommandLine() []string {
	return append([]string{s.Name}, s.Args...)
}

// Manager runs child processes attached to the operator's terminal.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type Manager interface {
	// RunAttached runs the child to completion with stdio attached.
	//
	// # Inputs
	//
	//   - ctx: Cancellation interrupts the child (SIGINT, then kill)
	//   - spec: Executable, arguments and environment
	//
	// # Outputs
	//
	//   - int: Exit status, mapped as described in the package docs
	//   - error: Non-nil when the child could not be started or was
	//     interrupted by ctx; nil for a child that merely exited nonzero
	//
	// # Example
	//
	//	code, err := pm.RunAttached(ctx, process.Spec{
	//	    Name: "docker",
	//	    Args: []string{"compose", "ps"},
	//	    Dir:  projectDir,
	//	})
	RunAttached(ctx context.Context, spec Spec) (int, error)
}

// DefaultManager starts real processes with os/exec.
type DefaultManager struct {
	// GracePeriod bounds the wait after SIGINT. Zero means DefaultGracePeriod.
	GracePeriod time.Duration
}

// NewDefaultManager returns a Manager backed by os/exec.
func NewDefaultManager() *DefaultManager {
	return &DefaultManager{GracePeriod: DefaultGracePeriod}
}

// RunAttached implements Manager.
func (m *DefaultManager) RunAttached(ctx context.Context, spec Spec) (int, error) {
	if err := ctx.Err(); err != nil {
		return ExitInterrupted, fmt.Errorf("%s not started: %w", spec.Name, err)
	}

	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	cmd.Stdin = orReader(spec.Stdin, os.Stdin)
	cmd.Stdout = orWriter(spec.Stdout, os.Stdout)
	cmd.Stderr = orWriter(spec.Stderr, os.Stderr)

	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = m.GracePeriod
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultGracePeriod
	}

	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return ExitInterrupted, fmt.Errorf("failed to start %s: %w", spec.Name, ctx.Err())
		}
		return startFailureCode(err), fmt.Errorf("failed to start %s: %w", spec.Name, err)
	}

	waitErr := cmd.Wait()
	code := exitStatus(cmd.ProcessState)

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		return code, nil
	case errors.As(waitErr, &exitErr):
		if ctx.Err() != nil {
			return code, ctx.Err()
		}
		return code, nil
	default:
		if ctx.Err() != nil && code == 0 {
			code = ExitInterrupted
		}
		return code, waitErr
	}
}

// exitStatus maps a finished process state to a shell-style exit status.
func exitStatus(state *os.ProcessState) int {
	if state == nil {
		return ExitInterrupted
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	if code := state.ExitCode(); code >= 0 {
		return code
	}
	return ExitInterrupted
}

func startFailureCode(err error) int {
	if errors.Is(err, fs.ErrPermission) {
		return ExitNotExecutable
	}
	return ExitNotFound
}

func orReader(r, def io.Reader) io.Reader {
	if r == nil {
		return def
	}
	return r
}

func orWriter(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}

var _ Manager = (*DefaultManager)(nil)
