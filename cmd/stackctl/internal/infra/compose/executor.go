// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package compose drives the pipeline stack through a compose-style CLI
// (docker compose, podman compose, podman-compose, docker-compose).
package compose

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/AleutianAI/stackctl/cmd/stackctl/internal/dispatch"
	"github.com/AleutianAI/stackctl/cmd/stackctl/internal/infra/process"
	"github.com/AleutianAI/stackctl/pkg/logging"
	"github.com/AleutianAI/stackctl/pkg/validation"
)

// =============================================================================
// Error Definitions
// =============================================================================

var (
	// ErrInvalidConfig is returned when Config cannot drive a runtime.
	ErrInvalidConfig = errors.New("invalid compose configuration")

	// ErrInvalidService is returned for a service name that the compose
	// CLI would parse as a flag or that is not a valid compose name.
	ErrInvalidService = validation.ErrInvalidServiceName
)

// ExitInvalidService is returned with ErrInvalidService, matching the
// status compose itself uses for usage errors.
const ExitInvalidService = 2

// =============================================================================
// Configuration
// =============================================================================

// Config selects the compose CLI and project.
type Config struct {
	// Binary is the executable. Default: "docker".
	Binary string

	// Subcommand follows Binary (e.g., "compose"). Empty for standalone
	// podman-compose or docker-compose.
	Subcommand string

	// ProjectDir is the working directory of every invocation.
	ProjectDir string

	// ProjectName is passed as -p when set.
	ProjectName string

	// Files are passed as -f in order when set; otherwise compose finds
	// its default file in ProjectDir.
	Files []string

	// DryRun prints each command line to Out instead of running it.
	DryRun bool

	// Out receives dry-run command lines. Default: os.Stdout.
	Out io.Writer
}

// =============================================================================
// Executor
// =============================================================================

// Executor implements dispatch.Runtime with a compose CLI.
//
// # Description
//
// Each verb becomes exactly one process invocation:
//
//	build-and-start      up -d --build
//	follow-logs          logs -f [service...]
//	restart-subset       up -d --build --no-deps service...
//	exec-in-service      exec [-T] service cmd...
//	run-once-in-service  run --rm service cmd...
//	list-status          ps
//	stop                 down
//	stop-and-purge       down -v
//
// Processes inherit the operator's terminal and environment, and exit
// statuses are returned unchanged.
//
// # Thread Safety
//
// Safe for concurrent use; the executor holds no mutable state.
type Executor struct {
	config     Config
	proc       process.Manager
	logger     *logging.Logger
	stdinIsTTY func() bool
}

// NewExecutor creates an Executor.
//
// # Inputs
//
//   - cfg: Compose CLI and project selection
//   - proc: Process manager used for every invocation
//   - logger: Receives one debug record per invocation (nil discards)
//
// # Outputs
//
//   - *Executor: Ready-to-use executor
//   - error: ErrInvalidConfig if Binary is blank after defaults
//
// # Example
//
//	executor, err := compose.NewExecutor(compose.Config{
//	    Binary:     "docker",
//	    Subcommand: "compose",
//	    ProjectDir: "/srv/pipeline",
//	}, process.NewDefaultManager(), logger)
func NewExecutor(cfg Config, proc process.Manager, logger *logging.Logger) (*Executor, error) {
	if cfg.Binary == "" {
		cfg.Binary = "docker"
	}
	if strings.TrimSpace(cfg.Binary) != cfg.Binary {
		return nil, fmt.Errorf("%w: binary %q has surrounding whitespace", ErrInvalidConfig, cfg.Binary)
	}
	for _, f := range cfg.Files {
		if f == "" {
			return nil, fmt.Errorf("%w: empty compose file entry", ErrInvalidConfig)
		}
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if proc == nil {
		return nil, fmt.Errorf("%w: process manager is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Executor{
		config:     cfg,
		proc:       proc,
		logger:     logger,
		stdinIsTTY: stdinIsTerminal,
	}, nil
}

// BuildAndStart runs "up -d --build".
func (e *Executor) BuildAndStart(ctx context.Context) (int, error) {
	return e.run(ctx, dispatch.VerbBuildAndStart, "up", "-d", "--build")
}

// FollowLogs runs "logs -f" for the given services, or all when empty.
func (e *Executor) FollowLogs(ctx context.Context, services []string) (int, error) {
	if err := validation.ValidateServiceNames(services); err != nil {
		return ExitInvalidService, err
	}
	return e.run(ctx, dispatch.VerbFollowLogs, append([]string{"logs", "-f"}, services...)...)
}

// RestartSubset rebuilds and recreates only the given services.
// --no-deps keeps their dependencies (the store) untouched.
func (e *Executor) RestartSubset(ctx context.Context, services []string) (int, error) {
	if len(services) == 0 {
		return ExitInvalidService, fmt.Errorf("%w: restart needs at least one service", ErrInvalidService)
	}
	if err := validation.ValidateServiceNames(services); err != nil {
		return ExitInvalidService, err
	}
	return e.run(ctx, dispatch.VerbRestartSubset, append([]string{"up", "-d", "--build", "--no-deps"}, services...)...)
}

// ExecInService runs command in the running service container. A TTY is
// requested only when stdin is a terminal.
func (e *Executor) ExecInService(ctx context.Context, service string, command []string) (int, error) {
	if err := validation.ValidateServiceName(service); err != nil {
		return ExitInvalidService, err
	}
	args := []string{"exec"}
	if !e.stdinIsTTY() {
		args = append(args, "-T")
	}
	args = append(args, service)
	args = append(args, command...)
	return e.run(ctx, dispatch.VerbExecInService, args...)
}

// RunOnceInService runs command in a fresh container removed on exit.
func (e *Executor) RunOnceInService(ctx context.Context, service string, command []string) (int, error) {
	if err := validation.ValidateServiceName(service); err != nil {
		return ExitInvalidService, err
	}
	args := append([]string{"run", "--rm", service}, command...)
	return e.run(ctx, dispatch.VerbRunOnceInService, args...)
}

// ListStatus runs "ps".
func (e *Executor) ListStatus(ctx context.Context) (int, error) {
	return e.run(ctx, dispatch.VerbListStatus, "ps")
}

// Stop runs "down", keeping volumes.
func (e *Executor) Stop(ctx context.Context) (int, error) {
	return e.run(ctx, dispatch.VerbStop, "down")
}

// StopAndPurge runs "down -v", deleting the stack's volumes.
func (e *Executor) StopAndPurge(ctx context.Context) (int, error) {
	return e.run(ctx, dispatch.VerbStopAndPurge, "down", "-v")
}

// CommandLine returns the full argument vector for a compose subcommand,
// starting with the binary.
func (e *Executor) CommandLine(args ...string) []string {
	return append([]string{e.config.Binary}, e.buildArgs(args)...)
}

// =============================================================================
// Private Helper Methods
// =============================================================================

// buildArgs prefixes args with the subcommand, project and -f flags.
func (e *Executor) buildArgs(args []string) []string {
	out := make([]string, 0, len(args)+2*len(e.config.Files)+3)
	if e.config.Subcommand != "" {
		out = append(out, e.config.Subcommand)
	}
	if e.config.ProjectName != "" {
		out = append(out, "-p", e.config.ProjectName)
	}
	for _, f := range e.config.Files {
		out = append(out, "-f", f)
	}
	return append(out, args...)
}

func (e *Executor) run(ctx context.Context, verb dispatch.Verb, args ...string) (int, error) {
	full := e.buildArgs(args)

	e.logger.Debug("compose invocation",
		"verb", string(verb),
		"binary", e.config.Binary,
		"subcommand", args[0],
		"project_dir", e.config.ProjectDir,
		"dry_run", e.config.DryRun,
	)

	if e.config.DryRun {
		_, err := fmt.Fprintln(e.config.Out, quoteCommandLine(append([]string{e.config.Binary}, full...)))
		return 0, err
	}

	return e.proc.RunAttached(ctx, process.Spec{
		Name: e.config.Binary,
		Args: full,
		Dir:  e.config.ProjectDir,
	})
}

// quoteCommandLine renders argv for copy-paste into a POSIX shell.
func quoteCommandLine(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		if a != "" && !strings.ContainsAny(a, " \t\n'\"\\$`*?[]{}()<>|&;#~") {
			parts[i] = a
			continue
		}
		parts[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
	}
	return strings.Join(parts, " ")
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

var _ dispatch.Runtime = (*Executor)(nil)
