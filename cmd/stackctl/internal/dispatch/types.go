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
	"strings"
)

// =============================================================================
// Services
// =============================================================================

// Compose service names of the pipeline stack.
const (
	ServiceCollector = "collector"
	ServiceScheduler = "scheduler"
	ServiceWorker    = "worker"
	ServiceStore     = "postgres"
)

// StackServices returns the stack's services in start order.
func StackServices() []string {
	return []string{ServiceStore, ServiceCollector, ServiceScheduler, ServiceWorker}
}

// =============================================================================
// Verbs
// =============================================================================

// Verb is the kind of request a RuntimeCall makes of the container runtime.
type Verb string

const (
	// VerbBuildAndStart builds images and starts every service.
	VerbBuildAndStart Verb = "build-and-start"

	// VerbFollowLogs streams logs until the operator cancels.
	VerbFollowLogs Verb = "follow-logs"

	// VerbRestartSubset rebuilds and restarts only the scoped services.
	VerbRestartSubset Verb = "restart-subset"

	// VerbExecInService runs a command inside a running service container.
	VerbExecInService Verb = "exec-in-service"

	// VerbRunOnceInService runs a command in a fresh, disposable container.
	VerbRunOnceInService Verb = "run-once-in-service"

	// VerbListStatus lists the state of the stack's containers.
	VerbListStatus Verb = "list-status"

	// VerbStop stops and removes containers, keeping volumes.
	VerbStop Verb = "stop"

	// VerbStopAndPurge stops containers and discards persisted volumes.
	VerbStopAndPurge Verb = "stop-and-purge"
)

// Destructive reports whether the verb discards persisted data.
func (v Verb) Destructive() bool {
	return v == VerbStopAndPurge
}

// singleTarget reports whether the verb addresses exactly one service.
func (v Verb) singleTarget() bool {
	return v == VerbExecInService || v == VerbRunOnceInService
}

// wholeStackOnly reports whether the verb never takes an explicit scope.
func (v Verb) wholeStackOnly() bool {
	switch v {
	case VerbBuildAndStart, VerbListStatus, VerbStop, VerbStopAndPurge:
		return true
	default:
		return false
	}
}

// =============================================================================
// Scope
// =============================================================================

// Scope is the set of services a call applies to.
//
// The zero value is the whole stack. An explicit scope is always a literal,
// non-empty list of service names; there is no negative or glob form.
type Scope struct {
	services []string
}

// WholeStack returns the unrestricted scope.
func WholeStack() Scope {
	return Scope{}
}

// Services returns a scope restricted to the given names, in order.
// Services() with no names is the whole stack.
func Services(names ...string) Scope {
	if len(names) == 0 {
		return Scope{}
	}
	s := make([]string, len(names))
	copy(s, names)
	return Scope{services: s}
}

// IsWholeStack reports whether the scope is unrestricted.
func (s Scope) IsWholeStack() bool {
	return len(s.services) == 0
}

// Names returns a copy of the scoped service names.
func (s Scope) Names() []string {
	if len(s.services) == 0 {
		return nil
	}
	out := make([]string, len(s.services))
	copy(out, s.services)
	return out
}

// String renders the scope for logs and listings.
func (s Scope) String() string {
	if s.IsWholeStack() {
		return "whole stack"
	}
	return "{" + strings.Join(s.services, ", ") + "}"
}

// =============================================================================
// Command line arguments
// =============================================================================

// BindingKey names an environment variable substituted into a command line.
type BindingKey string

const (
	// BindingStoreUser is the store login role used by the SQL shell.
	BindingStoreUser BindingKey = "STORE_USER"

	// BindingStoreDB is the database the SQL shell connects to.
	BindingStoreDB BindingKey = "STORE_DB"
)

// RequiredBindings returns every key the resolver is allowed to substitute.
func RequiredBindings() []BindingKey {
	return []BindingKey{BindingStoreUser, BindingStoreDB}
}

// Arg is one element of a command line: a literal, or a binding placeholder.
type Arg struct {
	literal string
	binding BindingKey
}

// Lit returns a literal argument.
func Lit(s string) Arg {
	return Arg{literal: s}
}

// Bind returns a placeholder resolved from the environment at dispatch time.
func Bind(key BindingKey) Arg {
	return Arg{binding: key}
}

// IsBinding reports whether the argument is a placeholder.
func (a Arg) IsBinding() bool {
	return a.binding != ""
}

// Binding returns the placeholder key, or "" for a literal.
func (a Arg) Binding() BindingKey {
	return a.binding
}

// String renders literals verbatim and placeholders as ${KEY}.
func (a Arg) String() string {
	if a.IsBinding() {
		return "${" + string(a.binding) + "}"
	}
	return a.literal
}

// =============================================================================
// Calls and descriptors
// =============================================================================

// RuntimeCall is one atomic request to the container runtime.
type RuntimeCall struct {
	Verb    Verb
	Scope   Scope
	Command []Arg
}

// Bindings returns the placeholder keys of the call in order of appearance.
func (c RuntimeCall) Bindings() []BindingKey {
	var keys []BindingKey
	for _, a := range c.Command {
		if a.IsBinding() {
			keys = append(keys, a.binding)
		}
	}
	return keys
}

// String renders the call as "verb scope [command]".
func (c RuntimeCall) String() string {
	var b strings.Builder
	b.WriteString(string(c.Verb))
	b.WriteString(" ")
	b.WriteString(c.Scope.String())
	if len(c.Command) > 0 {
		parts := make([]string, len(c.Command))
		for i, a := range c.Command {
			parts[i] = a.String()
		}
		b.WriteString(" [")
		b.WriteString(strings.Join(parts, " "))
		b.WriteString("]")
	}
	return b.String()
}

func (c RuntimeCall) clone() RuntimeCall {
	out := RuntimeCall{Verb: c.Verb, Scope: Services(c.Scope.services...)}
	if len(c.Command) > 0 {
		out.Command = make([]Arg, len(c.Command))
		copy(out.Command, c.Command)
	}
	return out
}

// ActionDescriptor is the ordered list of calls a command performs.
//
// Descriptors are immutable: Calls returns copies.
type ActionDescriptor struct {
	calls []RuntimeCall
}

// NewActionDescriptor builds a descriptor from calls in issue order.
func NewActionDescriptor(calls ...RuntimeCall) ActionDescriptor {
	d := ActionDescriptor{calls: make([]RuntimeCall, len(calls))}
	for i, c := range calls {
		d.calls[i] = c.clone()
	}
	return d
}

// Calls returns a copy of the calls in issue order.
func (d ActionDescriptor) Calls() []RuntimeCall {
	out := make([]RuntimeCall, len(d.calls))
	for i, c := range d.calls {
		out[i] = c.clone()
	}
	return out
}

// Len returns the number of calls.
func (d ActionDescriptor) Len() int {
	return len(d.calls)
}

// Destructive reports whether any call discards persisted data.
func (d ActionDescriptor) Destructive() bool {
	for _, c := range d.calls {
		if c.Verb.Destructive() {
			return true
		}
	}
	return false
}

// validate checks the structural rules every descriptor must follow.
func (d ActionDescriptor) validate() error {
	if len(d.calls) == 0 {
		return invalidDescriptor("no calls")
	}
	for _, c := range d.calls {
		n := len(c.Scope.services)
		switch {
		case c.Verb.wholeStackOnly() && n != 0:
			return invalidDescriptor("%s takes no scope, got %s", c.Verb, c.Scope)
		case c.Verb.singleTarget() && n != 1:
			return invalidDescriptor("%s needs exactly one service, got %s", c.Verb, c.Scope)
		case c.Verb.singleTarget() && len(c.Command) == 0:
			return invalidDescriptor("%s needs a command line", c.Verb)
		case c.Verb == VerbRestartSubset && n == 0:
			return invalidDescriptor("%s needs an explicit scope", c.Verb)
		}
		for _, name := range c.Scope.services {
			if name == "" {
				return invalidDescriptor("empty service name in %s", c.Verb)
			}
		}
	}
	return nil
}

// Command is an operator token resolved against the registry.
type Command struct {
	// Name is the registry entry that matched ("logs-" for the pattern).
	Name string

	// Token is the literal operator input.
	Token string

	// Param is the captured service name for "logs-<service>".
	Param string

	// HasParam reports whether Param was captured.
	HasParam bool

	// Action is the resolved descriptor.
	Action ActionDescriptor
}

// ResolvedCall is a RuntimeCall whose placeholders have been substituted.
type ResolvedCall struct {
	Verb    Verb
	Scope   Scope
	Command []string

	template []Arg
}

// Redacted renders the command line with placeholders instead of values.
func (c ResolvedCall) Redacted() []string {
	if len(c.template) == 0 {
		return nil
	}
	out := make([]string, len(c.template))
	for i, a := range c.template {
		out[i] = a.String()
	}
	return out
}

// Target returns the single service addressed by exec and run-once verbs.
func (c ResolvedCall) Target() string {
	if len(c.Scope.services) == 0 {
		return ""
	}
	return c.Scope.services[0]
}
