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
	"errors"
	"fmt"
)

// =============================================================================
// Error Definitions
// =============================================================================

var (
	// ErrUnknownCommand is returned when a token matches neither the fixed
	// table nor the "logs-" prefix rule.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrMissingEnvironmentBinding is returned when a required placeholder
	// has no value in the environment.
	ErrMissingEnvironmentBinding = errors.New("missing environment binding")

	// ErrRuntimeCallFailure is returned when the runtime reports a nonzero
	// status for a call.
	ErrRuntimeCallFailure = errors.New("runtime call failed")

	// ErrAborted is returned when the operator declines a destructive action.
	ErrAborted = errors.New("aborted by operator")

	// ErrInvalidDescriptor is returned for a structurally invalid descriptor.
	ErrInvalidDescriptor = errors.New("invalid action descriptor")
)

// Process exit codes for failures raised before any runtime call.
const (
	// ExitUsage is EX_USAGE from sysexits.h.
	ExitUsage = 64

	// ExitConfig is EX_CONFIG from sysexits.h.
	ExitConfig = 78

	// ExitAborted is used when the operator declines a confirmation.
	ExitAborted = 1

	// ExitSoftware is EX_SOFTWARE, used for invalid descriptors.
	ExitSoftware = 70
)

// UnknownCommandError reports the offending operator token.
type UnknownCommandError struct {
	Token string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownCommand, e.Token)
}

func (e *UnknownCommandError) Unwrap() error {
	return ErrUnknownCommand
}

// MissingBindingError names the environment variable that was not set.
type MissingBindingError struct {
	Key BindingKey
}

func (e *MissingBindingError) Error() string {
	return fmt.Sprintf("%s: %s is not set", ErrMissingEnvironmentBinding, e.Key)
}

func (e *MissingBindingError) Unwrap() error {
	return ErrMissingEnvironmentBinding
}

// RuntimeCallError wraps a failed runtime call with its exit status.
//
// # Description
//
// Carries the verb and scope of the call that failed, the exit code the
// runtime reported (passed through verbatim to the operator), and the
// underlying error when the runtime could not be launched at all.
//
// # Example
//
//	var callErr *RuntimeCallError
//	if errors.As(err, &callErr) {
//	    fmt.Println(callErr.ExitCode) // e.g. 1 from "docker compose up"
//	}
type RuntimeCallError struct {
	// Verb is the verb of the failing call.
	Verb Verb

	// Scope is the scope of the failing call.
	Scope Scope

	// ExitCode is the status reported by the runtime. Never zero.
	ExitCode int

	// Wrapped is the launch error, if any.
	Wrapped error
}

func (e *RuntimeCallError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s %s (exit %d): %v", ErrRuntimeCallFailure, e.Verb, e.Scope, e.ExitCode, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s %s (exit %d)", ErrRuntimeCallFailure, e.Verb, e.Scope, e.ExitCode)
}

// Unwrap exposes both the sentinel and the launch error to errors.Is.
func (e *RuntimeCallError) Unwrap() []error {
	if e.Wrapped != nil {
		return []error{ErrRuntimeCallFailure, e.Wrapped}
	}
	return []error{ErrRuntimeCallFailure}
}

func invalidDescriptor(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidDescriptor, fmt.Sprintf(format, args...))
}

// ExitCode maps a dispatch error to the process exit status.
//
// # Description
//
// Runtime failures pass the runtime's code through unchanged. Failures
// raised before any call (unknown token, missing binding) map to sysexits
// codes so they are always nonzero.
//
// # Inputs
//
//   - err: Error returned by Dispatcher.Dispatch (may be nil)
//
// # Outputs
//
//   - int: 0 for nil, otherwise a nonzero exit status
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var callErr *RuntimeCallError
	if errors.As(err, &callErr) && callErr.ExitCode != 0 {
		return callErr.ExitCode
	}

	switch {
	case errors.Is(err, ErrUnknownCommand):
		return ExitUsage
	case errors.Is(err, ErrMissingEnvironmentBinding):
		return ExitConfig
	case errors.Is(err, ErrAborted):
		return ExitAborted
	case errors.Is(err, ErrInvalidDescriptor):
		return ExitSoftware
	default:
		return 1
	}
}
