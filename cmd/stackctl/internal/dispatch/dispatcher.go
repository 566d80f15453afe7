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
	"fmt"

	"github.com/google/uuid"

	"github.com/AleutianAI/stackctl/cmd/stackctl/internal/diagnostics"
	"github.com/AleutianAI/stackctl/pkg/logging"
)

// Request is one operator invocation.
type Request struct {
	// Token is the literal command the operator typed.
	Token string

	// InvocationID correlates logs and spans. Generated when empty.
	InvocationID string
}

// ConfirmFunc asks the operator to approve a destructive command.
// Returning false aborts the invocation before any runtime call.
type ConfirmFunc func(cmd Command) (bool, error)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. Default: discard.
func WithLogger(logger *logging.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithTracer sets the tracer. Default: NoOpTracer.
func WithTracer(tracer diagnostics.Tracer) Option {
	return func(d *Dispatcher) { d.tracer = tracer }
}

// WithConfirm installs the confirmation hook for destructive commands.
// Without one, destructive commands proceed unprompted.
func WithConfirm(confirm ConfirmFunc) Option {
	return func(d *Dispatcher) { d.confirm = confirm }
}

// WithRegistry replaces the command table.
func WithRegistry(registry *Registry) Option {
	return func(d *Dispatcher) { d.registry = registry }
}

// WithLookup replaces the environment reader used for bindings.
func WithLookup(lookup LookupFunc) Option {
	return func(d *Dispatcher) { d.lookup = lookup }
}

// Dispatcher runs one operator token end to end.
//
// # Description
//
// Resolution happens fully before execution:
//
//  1. Registry.Resolve maps the token to a descriptor.
//  2. EnvironmentResolver substitutes every binding of every call.
//  3. Destructive descriptors go through the confirmation hook.
//  4. Translator issues the calls in order, halting on the first failure.
//
// A failure in steps 1 to 3 issues zero runtime calls.
//
// # Thread Safety
//
// A Dispatcher holds no per-invocation state and may be reused, but the
// Runtime it drives usually attaches to the terminal, so invocations are
// expected to be sequential.
type Dispatcher struct {
	runtime  Runtime
	registry *Registry
	lookup   LookupFunc
	confirm  ConfirmFunc
	logger   *logging.Logger
	tracer   diagnostics.Tracer
}

// New returns a Dispatcher driving runtime.
//
// # Example
//
//	d := dispatch.New(executor,
//	    dispatch.WithLogger(logger),
//	    dispatch.WithConfirm(confirmClean),
//	)
//	code, err := d.Dispatch(ctx, dispatch.Request{Token: "clean"})
func New(runtime Runtime, opts ...Option) *Dispatcher {
	d := &Dispatcher{runtime: runtime}
	for _, opt := range opts {
		opt(d)
	}
	if d.registry == nil {
		d.registry = NewRegistry()
	}
	if d.logger == nil {
		d.logger = logging.Nop()
	}
	if d.tracer == nil {
		d.tracer = diagnostics.NewNoOpTracer()
	}
	return d
}

// Registry returns the command table in use.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch resolves and executes one token.
//
// # Inputs
//
//   - ctx: Cancellation is forwarded to the runtime
//   - req: The operator token and an optional invocation ID
//
// # Outputs
//
//   - int: Process exit status (see ExitCode)
//   - error: *UnknownCommandError, *MissingBindingError, ErrAborted or
//     *RuntimeCallError; nil on success
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (int, error) {
	if req.InvocationID == "" {
		req.InvocationID = uuid.NewString()
	}
	logger := d.logger.With("invocation_id", req.InvocationID, "command", req.Token)

	ctx, finish := d.tracer.StartSpan(ctx, diagnostics.SpanDispatch, map[string]string{
		"command":       req.Token,
		"invocation_id": req.InvocationID,
	})

	code, err := d.dispatch(ctx, logger, req)
	finish(err)

	if err != nil {
		logger.Error("command failed", "exit_code", code, "error", err.Error())
	} else {
		logger.Info("command finished", "exit_code", code)
	}
	return code, err
}

func (d *Dispatcher) dispatch(ctx context.Context, logger *logging.Logger, req Request) (int, error) {
	cmd, err := d.registry.Resolve(req.Token)
	if err != nil {
		return ExitCode(err), err
	}

	calls, err := NewEnvironmentResolver(d.lookup).Resolve(cmd.Action)
	if err != nil {
		return ExitCode(err), err
	}

	logger.Info("dispatching", "calls", len(calls), "destructive", cmd.Action.Destructive())

	if cmd.Action.Destructive() && d.confirm != nil {
		ok, err := d.confirm(cmd)
		if err != nil {
			return ExitAborted, fmt.Errorf("%w: %v", ErrAborted, err)
		}
		if !ok {
			return ExitAborted, ErrAborted
		}
	}

	return NewTranslator(d.runtime, logger, d.tracer).Execute(ctx, calls)
}
