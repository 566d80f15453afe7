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
	"os"
)

// LookupFunc reads one environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// EnvironmentResolver substitutes binding placeholders in command lines.
//
// # Description
//
// Only the keys returned by RequiredBindings may appear as placeholders.
// Each key is looked up at most once per Resolve call and never cached
// across calls, so a value changed between invocations is always read
// fresh. A key that is unset, or set to the empty string, is reported as
// missing; nothing is defaulted.
//
// # Thread Safety
//
// Safe for concurrent use if the LookupFunc is.
type EnvironmentResolver struct {
	lookup  LookupFunc
	allowed map[BindingKey]struct{}
}

// NewEnvironmentResolver returns a resolver reading through lookup.
// A nil lookup reads the process environment.
func NewEnvironmentResolver(lookup LookupFunc) *EnvironmentResolver {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	allowed := make(map[BindingKey]struct{})
	for _, k := range RequiredBindings() {
		allowed[k] = struct{}{}
	}
	return &EnvironmentResolver{lookup: lookup, allowed: allowed}
}

// Resolve substitutes every placeholder of the descriptor.
//
// # Description
//
// All calls of the descriptor are resolved before any of them is issued,
// so a missing binding fails the invocation with zero side effects.
// Placeholders are checked in call order, then argument order; the first
// missing key is reported.
//
// # Inputs
//
//   - d: Descriptor returned by the registry
//
// # Outputs
//
//   - []ResolvedCall: Calls with concrete command lines, in issue order
//   - error: *MissingBindingError naming the first missing key, or
//     ErrInvalidDescriptor for a placeholder outside RequiredBindings
func (r *EnvironmentResolver) Resolve(d ActionDescriptor) ([]ResolvedCall, error) {
	values := make(map[BindingKey]string)
	calls := d.Calls()
	resolved := make([]ResolvedCall, 0, len(calls))

	for _, call := range calls {
		rc := ResolvedCall{Verb: call.Verb, Scope: call.Scope, template: call.Command}
		if len(call.Command) > 0 {
			rc.Command = make([]string, len(call.Command))
		}
		for i, arg := range call.Command {
			if !arg.IsBinding() {
				rc.Command[i] = arg.literal
				continue
			}
			v, err := r.value(arg.binding, values)
			if err != nil {
				return nil, err
			}
			rc.Command[i] = v
		}
		resolved = append(resolved, rc)
	}
	return resolved, nil
}

func (r *EnvironmentResolver) value(key BindingKey, seen map[BindingKey]string) (string, error) {
	if v, ok := seen[key]; ok {
		return v, nil
	}
	if _, ok := r.allowed[key]; !ok {
		return "", invalidDescriptor("placeholder %s is not an enumerated binding", key)
	}
	v, ok := r.lookup(string(key))
	if !ok || v == "" {
		return "", &MissingBindingError{Key: key}
	}
	seen[key] = v
	return v, nil
}
