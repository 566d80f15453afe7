// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dispatch

import (
	"context"
	"strconv"
	"strings"

	"github.com/AleutianAI/stackctl/cmd/stackctl/internal/diagnostics"
	"github.com/AleutianAI/stackctl/pkg/logging"
)

// Runtime is the container runtime as seen by the dispatcher.
//
// # Description
//
// One method per verb. Each returns the exit status reported by the
// runtime; a non-nil error means the runtime could not be invoked at all
// (binary missing, start failure). Output streams straight to the
// operator's terminal.
//
// # Thread Safety
//
// Implementations need not be safe for concurrent use; the translator
// issues one call at a time.
type Runtime interface {
	// BuildAndStart builds images and starts every service in the background.
	BuildAndStart(ctx context.Context) (int, error)

	// FollowLogs streams logs for the services (all when empty) until ctx
	// is cancelled or the runtime exits.
	FollowLogs(ctx context.Context, services []string) (int, error)

	// RestartSubset rebuilds and restarts exactly the given services.
	RestartSubset(ctx context.Context, services []string) (int, error)

	// ExecInService runs command inside the running service container.
	ExecInService(ctx context.Context, service string, command []string) (int, error)

	// RunOnceInService runs command in a fresh container that is removed
	// afterwards.
	RunOnceInService(ctx context.Context, service string, command []string) (int, error)

	// ListStatus prints the state of the stack's containers.
	ListStatus(ctx context.Context) (int, error)

	// Stop stops and removes containers, keeping volumes.
	Stop(ctx context.Context) (int, error)

	// StopAndPurge stops containers and deletes their volumes.
	StopAndPurge(ctx context.Context) (int, error)
}

// Translator issues resolved calls against a Runtime.
//
// # Description
//
// Calls are issued strictly in order, one at a time. The first call that
// reports a nonzero status halts the sequence; later calls are never
// issued. There is no retry and no rollback.
type Translator struct {
	runtime Runtime
	logger  *logging.Logger
	tracer  diagnostics.Tracer
}

// NewTranslator returns a translator bound to runtime. A nil logger or
// tracer disables that output.
func NewTranslator(runtime Runtime, logger *logging.Logger, tracer diagnostics.Tracer) *Translator {
	if logger == nil {
		logger = logging.Nop()
	}
	if tracer == nil {
		tracer = diagnostics.NewNoOpTracer()
	}
	return &Translator{runtime: runtime, logger: logger, tracer: tracer}
}

// Execute issues calls in order and stops at the first failure.
//
// # Description
//
// Each call gets one stackctl.runtime_call span and one debug record with
// the redacted command line. A runtime that returns a zero status together
// with an error is treated as exit status 1 so failures are never reported
// as success.
//
// # Inputs
//
//   - ctx: Cancellation reaches the runtime (e.g., Ctrl-C while following logs)
//   - calls: Resolved calls in issue order
//
// # Outputs
//
//   - int: Exit status of the last issued call
//   - error: *RuntimeCallError for the failing call, nil on success
func (t *Translator) Execute(ctx context.Context, calls []ResolvedCall) (int, error) {
	code := 0
	for i, call := range calls {
		var err error
		code, err = t.issue(ctx, i, call)
		if err != nil || code != 0 {
			if code == 0 {
				code = 1
			}
			t.logger.Warn("runtime call failed",
				"verb", string(call.Verb),
				"scope", call.Scope.String(),
				"exit_code", code,
			)
			return code, &RuntimeCallError{
				Verb:     call.Verb,
				Scope:    call.Scope,
				ExitCode: code,
				Wrapped:  err,
			}
		}
	}
	return code, nil
}

func (t *Translator) issue(ctx context.Context, index int, call ResolvedCall) (int, error) {
	ctx, finish := t.tracer.StartSpan(ctx, diagnostics.SpanRuntimeCall, map[string]string{
		"verb":  string(call.Verb),
		"scope": call.Scope.String(),
		"index": strconv.Itoa(index),
	})

	t.logger.Debug("runtime call",
		"verb", string(call.Verb),
		"scope", call.Scope.String(),
		"command", strings.Join(call.Redacted(), " "),
	)

	code, err := t.invoke(ctx, call)

	t.tracer.SetAttributes(ctx, map[string]string{"exit_code": strconv.Itoa(code)})
	if err == nil && code != 0 {
		finish(&RuntimeCallError{Verb: call.Verb, Scope: call.Scope, ExitCode: code})
	} else {
		finish(err)
	}
	return code, err
}

func (t *Translator) invoke(ctx context.Context, call ResolvedCall) (int, error) {
	switch call.Verb {
	case VerbBuildAndStart:
		return t.runtime.BuildAndStart(ctx)
	case VerbFollowLogs:
		return t.runtime.FollowLogs(ctx, call.Scope.Names())
	case VerbRestartSubset:
		return t.runtime.RestartSubset(ctx, call.Scope.Names())
	case VerbExecInService:
		return t.runtime.ExecInService(ctx, call.Target(), call.Command)
	case VerbRunOnceInService:
		return t.runtime.RunOnceInService(ctx, call.Target(), call.Command)
	case VerbListStatus:
		return t.runtime.ListStatus(ctx)
	case VerbStop:
		return t.runtime.Stop(ctx)
	case VerbStopAndPurge:
		return t.runtime.StopAndPurge(ctx)
	default:
		return ExitSoftware, invalidDescriptor("unknown verb %q", call.Verb)
	}
}
