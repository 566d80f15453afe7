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
	"fmt"
	"strings"
)

// LogsPrefix is the literal prefix of the only parametrized command.
const LogsPrefix = "logs-"

// Entry describes one registry entry for listings and completion.
type Entry struct {
	// Name is the command token, or "logs-<service>" for the pattern.
	Name string

	// Summary is a one-line description.
	Summary string

	// Action is the descriptor the entry resolves to. For the pattern
	// entry the scope shows the placeholder service "<service>".
	Action ActionDescriptor

	// Pattern reports whether this is the "logs-<service>" rule.
	Pattern bool
}

type staticEntry struct {
	summary string
	action  ActionDescriptor
}

// Registry resolves operator tokens to action descriptors.
//
// # Description
//
// Holds the fixed command table plus the single "logs-<service>" prefix
// rule. The table is populated once by NewRegistry and never modified
// afterwards, so a Registry can be shared freely.
//
// # Thread Safety
//
// Safe for concurrent use after construction.
type Registry struct {
	static map[string]staticEntry
	order  []string
}

// NewRegistry returns a registry holding the fixed command table.
func NewRegistry() *Registry {
	r := &Registry{static: make(map[string]staticEntry)}

	r.register("deploy", "Build images and start the whole stack",
		RuntimeCall{Verb: VerbBuildAndStart, Scope: WholeStack()})

	r.register("logs", "Follow logs of every service",
		RuntimeCall{Verb: VerbFollowLogs, Scope: WholeStack()})

	r.register("restart-scheduler", "Rebuild and restart the scheduler and worker only",
		RuntimeCall{Verb: VerbRestartSubset, Scope: Services(ServiceScheduler, ServiceWorker)})

	r.register("shell-collector", "Open a shell in the collector container",
		RuntimeCall{
			Verb:    VerbExecInService,
			Scope:   Services(ServiceCollector),
			Command: []Arg{Lit("bash")},
		})

	r.register("shell-db", "Open a SQL shell on the store (needs STORE_USER, STORE_DB)",
		RuntimeCall{
			Verb:  VerbExecInService,
			Scope: Services(ServiceStore),
			Command: []Arg{
				Lit("psql"),
				Lit("-U"), Bind(BindingStoreUser),
				Lit("-d"), Bind(BindingStoreDB),
			},
		})

	r.register("migrate", "Apply the latest schema revision",
		RuntimeCall{
			Verb:    VerbRunOnceInService,
			Scope:   Services(ServiceCollector),
			Command: []Arg{Lit("alembic"), Lit("upgrade"), Lit("head")},
		})

	r.register("ps", "List container status",
		RuntimeCall{Verb: VerbListStatus, Scope: WholeStack()})

	r.register("stop", "Stop the stack, keeping volumes",
		RuntimeCall{Verb: VerbStop, Scope: WholeStack()})

	r.register("clean", "DANGER: stop the stack and delete all volumes",
		RuntimeCall{Verb: VerbStopAndPurge, Scope: WholeStack()})

	return r
}

// register adds a static entry. It panics on duplicates or invalid
// descriptors since the table is fixed at build time.
func (r *Registry) register(name, summary string, calls ...RuntimeCall) {
	if _, exists := r.static[name]; exists {
		panic(fmt.Sprintf("command %s already registered", name))
	}
	if strings.HasPrefix(name, LogsPrefix) {
		panic(fmt.Sprintf("command %s shadows the %s pattern", name, LogsPrefix))
	}
	action := NewActionDescriptor(calls...)
	if err := action.validate(); err != nil {
		panic(fmt.Sprintf("command %s: %v", name, err))
	}
	r.static[name] = staticEntry{summary: summary, action: action}
	r.order = append(r.order, name)
}

// Resolve maps an operator token to a Command.
//
// # Description
//
// Resolution order:
//
//  1. Exact match against the fixed table.
//  2. Literal prefix "logs-" with a non-empty remainder: one follow-logs
//     call scoped to the remainder. The name is not checked against the
//     stack; the runtime rejects unknown services.
//  3. Anything else, including "logs-" alone, is ErrUnknownCommand.
//
// # Inputs
//
//   - token: The literal operator input
//
// # Outputs
//
//   - Command: The resolved command
//   - error: *UnknownCommandError if the token is not recognized
//
// # Example
//
//	cmd, err := registry.Resolve("logs-worker")
//	// cmd.Param == "worker", one follow-logs call scoped to {worker}
func (r *Registry) Resolve(token string) (Command, error) {
	if e, ok := r.static[token]; ok {
		return Command{Name: token, Token: token, Action: e.action}, nil
	}

	if service, ok := strings.CutPrefix(token, LogsPrefix); ok && service != "" {
		return Command{
			Name:     LogsPrefix,
			Token:    token,
			Param:    service,
			HasParam: true,
			Action: NewActionDescriptor(RuntimeCall{
				Verb:  VerbFollowLogs,
				Scope: Services(service),
			}),
		}, nil
	}

	return Command{}, &UnknownCommandError{Token: token}
}

// Names returns the static command tokens in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Entries returns the static entries in registration order, with the
// pattern entry listed right after "logs".
func (r *Registry) Entries() []Entry {
	entries := make([]Entry, 0, len(r.order)+1)
	for _, name := range r.order {
		e := r.static[name]
		entries = append(entries, Entry{Name: name, Summary: e.summary, Action: e.action})
		if name == "logs" {
			entries = append(entries, Entry{
				Name:    LogsPrefix + "<service>",
				Summary: "Follow logs of a single service",
				Action: NewActionDescriptor(RuntimeCall{
					Verb:  VerbFollowLogs,
					Scope: Services("<service>"),
				}),
				Pattern: true,
			})
		}
	}
	return entries
}
