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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Resolve_StaticTable(t *testing.T) {
	tests := []struct {
		token   string
		verb    Verb
		scope   []string
		command []string
	}{
		{"deploy", VerbBuildAndStart, nil, nil},
		{"logs", VerbFollowLogs, nil, nil},
		{"restart-scheduler", VerbRestartSubset, []string{ServiceScheduler, ServiceWorker}, nil},
		{"shell-collector", VerbExecInService, []string{ServiceCollector}, []string{"bash"}},
		{"shell-db", VerbExecInService, []string{ServiceStore}, []string{"psql", "-U", "${STORE_USER}", "-d", "${STORE_DB}"}},
		{"migrate", VerbRunOnceInService, []string{ServiceCollector}, []string{"alembic", "upgrade", "head"}},
		{"ps", VerbListStatus, nil, nil},
		{"stop", VerbStop, nil, nil},
		{"clean", VerbStopAndPurge, nil, nil},
	}

	registry := NewRegistry()
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			cmd, err := registry.Resolve(tt.token)
			require.NoError(t, err)

			assert.Equal(t, tt.token, cmd.Name)
			assert.False(t, cmd.HasParam)

			calls := cmd.Action.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, tt.verb, calls[0].Verb)
			assert.Equal(t, tt.scope, calls[0].Scope.Names())
			assert.Equal(t, tt.scope == nil, calls[0].Scope.IsWholeStack())

			var rendered []string
			for _, a := range calls[0].Command {
				rendered = append(rendered, a.String())
			}
			assert.Equal(t, tt.command, rendered)
		})
	}
}

func TestRegistry_Resolve_RestartSchedulerNeverWholeStack(t *testing.T) {
	cmd, err := NewRegistry().Resolve("restart-scheduler")
	require.NoError(t, err)

	call := cmd.Action.Calls()[0]
	assert.False(t, call.Scope.IsWholeStack())
	assert.Equal(t, []string{"scheduler", "worker"}, call.Scope.Names())
}

func TestRegistry_Resolve_LogsPattern(t *testing.T) {
	for _, service := range []string{"worker", "collector", "x", "does-not-exist", "logs-", "a b"} {
		t.Run(service, func(t *testing.T) {
			cmd, err := NewRegistry().Resolve(LogsPrefix + service)
			require.NoError(t, err)

			assert.True(t, cmd.HasParam)
			assert.Equal(t, service, cmd.Param)
			assert.Equal(t, LogsPrefix+service, cmd.Token)

			calls := cmd.Action.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, VerbFollowLogs, calls[0].Verb)
			assert.Equal(t, []string{service}, calls[0].Scope.Names())
			assert.Empty(t, calls[0].Command)
		})
	}
}

func TestRegistry_Resolve_Unknown(t *testing.T) {
	for _, token := range []string{"deplyo", "", "logsx", "logs-", "LOGS-worker", "Deploy", "deploy ", "restart", "clean-all", "stop-and-purge"} {
		t.Run(token, func(t *testing.T) {
			_, err := NewRegistry().Resolve(token)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnknownCommand)

			var unknown *UnknownCommandError
			require.True(t, errors.As(err, &unknown))
			assert.Equal(t, token, unknown.Token)
		})
	}
}

func TestRegistry_StopAndPurgeOnlyViaClean(t *testing.T) {
	registry := NewRegistry()

	var purging []string
	for _, name := range registry.Names() {
		cmd, err := registry.Resolve(name)
		require.NoError(t, err)
		if cmd.Action.Destructive() {
			purging = append(purging, name)
		}
	}
	assert.Equal(t, []string{"clean"}, purging)

	stop, err := registry.Resolve("stop")
	require.NoError(t, err)
	assert.False(t, stop.Action.Destructive())

	logs, err := registry.Resolve("logs-clean")
	require.NoError(t, err)
	assert.False(t, logs.Action.Destructive())
}

func TestRegistry_Resolve_Idempotent(t *testing.T) {
	registry := NewRegistry()
	for _, token := range []string{"ps", "stop"} {
		first, err := registry.Resolve(token)
		require.NoError(t, err)
		second, err := registry.Resolve(token)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}

	// A fresh registry yields the same descriptor as a reused one.
	a, _ := NewRegistry().Resolve("ps")
	b, _ := registry.Resolve("ps")
	assert.Equal(t, a, b)
}

func TestRegistry_DescriptorsAreImmutable(t *testing.T) {
	registry := NewRegistry()
	cmd, err := registry.Resolve("restart-scheduler")
	require.NoError(t, err)

	calls := cmd.Action.Calls()
	names := calls[0].Scope.Names()
	names[0] = "collector"
	calls[0].Verb = VerbStopAndPurge

	again, err := registry.Resolve("restart-scheduler")
	require.NoError(t, err)
	assert.Equal(t, VerbRestartSubset, again.Action.Calls()[0].Verb)
	assert.Equal(t, []string{"scheduler", "worker"}, again.Action.Calls()[0].Scope.Names())
}

func TestRegistry_Names(t *testing.T) {
	assert.Equal(t,
		[]string{"deploy", "logs", "restart-scheduler", "shell-collector", "shell-db", "migrate", "ps", "stop", "clean"},
		NewRegistry().Names())
}

func TestRegistry_Entries(t *testing.T) {
	entries := NewRegistry().Entries()
	require.Len(t, entries, 10)

	assert.Equal(t, "logs", entries[1].Name)
	assert.Equal(t, "logs-<service>", entries[2].Name)
	assert.True(t, entries[2].Pattern)
	for i, e := range entries {
		assert.NotEmpty(t, e.Summary, "entry %d", i)
		if i != 2 {
			assert.False(t, e.Pattern, e.Name)
		}
	}
}

func TestRegistry_RegisterPanics(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		calls []RuntimeCall
	}{
		{"duplicate", "deploy", []RuntimeCall{{Verb: VerbBuildAndStart}}},
		{"shadows pattern", "logs-all", []RuntimeCall{{Verb: VerbFollowLogs}}},
		{"no calls", "empty", nil},
		{"scoped stop", "stop-worker", []RuntimeCall{{Verb: VerbStop, Scope: Services("worker")}}},
		{"exec without target", "sh", []RuntimeCall{{Verb: VerbExecInService, Command: []Arg{Lit("sh")}}}},
		{"exec two targets", "sh2", []RuntimeCall{{Verb: VerbExecInService, Scope: Services("a", "b"), Command: []Arg{Lit("sh")}}}},
		{"exec without command", "sh3", []RuntimeCall{{Verb: VerbExecInService, Scope: Services("a")}}},
		{"restart whole stack", "restart-all", []RuntimeCall{{Verb: VerbRestartSubset}}},
		{"empty service name", "logs2", []RuntimeCall{{Verb: VerbFollowLogs, Scope: Services("")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewRegistry()
			assert.Panics(t, func() {
				registry.register(tt.entry, "test", tt.calls...)
			})
		})
	}
}
