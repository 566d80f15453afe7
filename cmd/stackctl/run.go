// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/AleutianAI/stackctl/cmd/stackctl/config"
	"github.com/AleutianAI/stackctl/cmd/stackctl/internal/diagnostics"
	"github.com/AleutianAI/stackctl/cmd/stackctl/internal/dispatch"
	"github.com/AleutianAI/stackctl/cmd/stackctl/internal/infra/compose"
	"github.com/AleutianAI/stackctl/cmd/stackctl/internal/infra/process"
	"github.com/AleutianAI/stackctl/pkg/logging"
	"github.com/AleutianAI/stackctl/pkg/ux"
)

// tracerShutdownTimeout bounds the final span flush.
const tracerShutdownTimeout = 5 * time.Second

// deps are the process-level collaborators of an invocation.
type deps struct {
	stdout io.Writer
	stderr io.Writer

	// getenv reads STACKCTL_CONFIG, STACKCTL_PERSONALITY and OTEL_* settings.
	getenv func(string) string

	// lookup resolves placeholder bindings; nil reads the process environment.
	lookup dispatch.LookupFunc

	procs       process.Manager
	interactive func() bool
	confirm     func(title, description string) (bool, error)
}

func defaultDeps() deps {
	return deps{
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		getenv:      os.Getenv,
		procs:       process.NewDefaultManager(),
		interactive: ux.IsInteractive,
		confirm:     ux.ConfirmDestructive,
	}
}

// cliApp carries one invocation from flag parsing to its exit code.
type cliApp struct {
	opts     cliOptions
	deps     deps
	exitCode int
}

// execute runs the CLI with args and returns the process exit status.
//
// # Description
//
// Usage errors detected by cobra (wrong argument count, unknown flag)
// exit with EX_USAGE. Everything else exits with the status chosen by
// the subcommand, which for dispatched tokens is the runtime's own.
//
// # Inputs
//
//   - ctx: Cancelled on SIGINT/SIGTERM
//   - args: Command line without the program name
//   - d: Process collaborators
//
// # Outputs
//
//   - int: Exit status
func execute(ctx context.Context, args []string, d deps) int {
	ux.SetOutput(d.stdout, d.stderr)

	app := &cliApp{deps: d}
	rootCmd := newRootCmd(app)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(d.stdout)
	rootCmd.SetErr(d.stderr)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ux.Error(err.Error())
		ux.Hint(`run "stackctl --help" for usage`)
		return dispatch.ExitUsage
	}
	return app.exitCode
}

// runDispatch wires the stack for one token and dispatches it.
func (a *cliApp) runDispatch(ctx context.Context, token string) int {
	cfg, code := a.loadConfig()
	if code != 0 {
		return code
	}

	logger := a.newLogger(cfg)
	defer logger.Close()

	tracer := a.newTracer(ctx, cfg, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), tracerShutdownTimeout)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	executor, err := compose.NewExecutor(compose.Config{
		Binary:      cfg.Runtime.Binary,
		Subcommand:  cfg.Runtime.ComposeSubcmd,
		ProjectDir:  cfg.Runtime.ProjectDir,
		ProjectName: cfg.Runtime.ProjectName,
		Files:       cfg.Runtime.ComposeFiles,
		DryRun:      a.opts.dryRun,
		Out:         a.deps.stdout,
	}, a.deps.procs, logger)
	if err != nil {
		ux.Error(err.Error())
		return dispatch.ExitConfig
	}

	opts := []dispatch.Option{
		dispatch.WithLogger(logger),
		dispatch.WithTracer(tracer),
		dispatch.WithLookup(a.deps.lookup),
	}
	if confirm := a.confirmHook(); confirm != nil {
		opts = append(opts, dispatch.WithConfirm(confirm))
	}

	code, err = dispatch.New(executor, opts...).Dispatch(ctx, dispatch.Request{Token: token})
	if err != nil {
		a.report(err)
	}
	return code
}

// runConfigShow prints the effective configuration.
func (a *cliApp) runConfigShow(format string) int {
	cfg, code := a.loadConfig()
	if code != 0 {
		return code
	}
	if err := config.Encode(a.deps.stdout, cfg, format); err != nil {
		ux.Error(err.Error())
		if errors.Is(err, config.ErrUnsupportedFormat) {
			return dispatch.ExitUsage
		}
		return dispatch.ExitSoftware
	}
	return 0
}

// loadConfig reads the config file, applies flag overrides and selects
// the output personality. A nonzero code means the invocation must stop.
func (a *cliApp) loadConfig() (config.StackctlConfig, int) {
	cfg, err := config.Load(config.ResolvePath(a.opts.configPath, a.deps.getenv))
	if err != nil {
		a.initPersonality("")
		ux.Error(err.Error())
		return cfg, dispatch.ExitConfig
	}

	if a.opts.projectDir != "" {
		cfg.Runtime.ProjectDir = a.opts.projectDir
	}
	if a.opts.logLevel != "" {
		cfg.Logging.Level = a.opts.logLevel
	}
	if a.opts.personality != "" {
		cfg.UI.Personality = a.opts.personality
	}
	a.initPersonality(cfg.UI.Personality)

	if err := cfg.Validate(); err != nil {
		ux.Error(err.Error())
		return cfg, dispatch.ExitConfig
	}
	return cfg, 0
}

// initPersonality picks the --personality flag, then $STACKCTL_PERSONALITY,
// then the configured level. With none set, ux falls back on TTY detection.
func (a *cliApp) initPersonality(configured string) {
	level := a.opts.personality
	if level == "" && a.deps.getenv != nil {
		level = a.deps.getenv(ux.EnvPersonality)
	}
	if level == "" {
		level = configured
	}
	ux.InitPersonality(level)
}

func (a *cliApp) newLogger(cfg config.StackctlConfig) *logging.Logger {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logging.LevelWarn
	}
	return logging.New(logging.Config{
		Level:      level,
		LogDir:     cfg.Logging.Dir,
		Service:    "stackctl",
		JSON:       cfg.Logging.JSON,
		Output:     a.deps.stderr,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
}

// newTracer never fails the invocation: an exporter that cannot be set
// up is logged and replaced with the no-op tracer.
func (a *cliApp) newTracer(ctx context.Context, cfg config.StackctlConfig, logger *logging.Logger) diagnostics.Tracer {
	tracer, err := diagnostics.NewTracer(ctx, diagnostics.Settings{
		Exporter: cfg.Tracing.Exporter,
		Endpoint: cfg.Tracing.Endpoint,
		Insecure: cfg.Tracing.Insecure,
		Writer:   a.deps.stderr,
	}, a.deps.getenv)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
		return diagnostics.NewNoOpTracer()
	}
	return tracer
}

// confirmHook returns the destructive-command prompt, or nil when the
// command should proceed unprompted: --yes, --dry-run, or no terminal.
func (a *cliApp) confirmHook() dispatch.ConfirmFunc {
	if a.opts.yes || a.opts.dryRun || a.deps.interactive == nil || !a.deps.interactive() {
		return nil
	}
	return func(cmd dispatch.Command) (bool, error) {
		ux.WarningBox("stackctl "+cmd.Token,
			"Stops every service and permanently deletes the stack's volumes, including the postgres data.")
		return a.deps.confirm(
			fmt.Sprintf("Run %q?", cmd.Token),
			"This cannot be undone. Pass --yes to skip this prompt.",
		)
	}
}

// report prints a dispatch failure with a follow-up hint.
func (a *cliApp) report(err error) {
	if errors.Is(err, dispatch.ErrAborted) {
		ux.Warning("aborted, nothing was changed")
		return
	}

	ux.Error(err.Error())

	var unknown *dispatch.UnknownCommandError
	var missing *dispatch.MissingBindingError
	switch {
	case errors.As(err, &unknown):
		ux.Hint(`run "stackctl commands" to list valid commands`)
	case errors.As(err, &missing):
		ux.Hint(fmt.Sprintf("export %s before running this command", missing.Key))
	case errors.Is(err, compose.ErrInvalidService):
		ux.Hint("service names start with a letter or digit and contain only letters, digits, '.', '_' or '-'")
	}
}
