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
	"sync"
)

// recordedCall is one call received by recordingRuntime.
type recordedCall struct {
	Verb     Verb
	Services []string
	Command  []string
}

// recordingRuntime records every call and answers with scripted results.
type recordingRuntime struct {
	mu    sync.Mutex
	calls []recordedCall

	// results are consumed in order; missing entries mean (0, nil).
	results []runtimeResult
}

type runtimeResult struct {
	code int
	err  error
}

func (r *recordingRuntime) record(verb Verb, services []string, command []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := len(r.calls)
	r.calls = append(r.calls, recordedCall{Verb: verb, Services: services, Command: command})
	if idx < len(r.results) {
		return r.results[idx].code, r.results[idx].err
	}
	return 0, nil
}

func (r *recordingRuntime) Calls() []recordedCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recordedCall, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *recordingRuntime) BuildAndStart(ctx context.Context) (int, error) {
	return r.record(VerbBuildAndStart, nil, nil)
}

func (r *recordingRuntime) FollowLogs(ctx context.Context, services []string) (int, error) {
	return r.record(VerbFollowLogs, services, nil)
}

func (r *recordingRuntime) RestartSubset(ctx context.Context, services []string) (int, error) {
	return r.record(VerbRestartSubset, services, nil)
}

func (r *recordingRuntime) ExecInService(ctx context.Context, service string, command []string) (int, error) {
	return r.record(VerbExecInService, []string{service}, command)
}

func (r *recordingRuntime) RunOnceInService(ctx context.Context, service string, command []string) (int, error) {
	return r.record(VerbRunOnceInService, []string{service}, command)
}

func (r *recordingRuntime) ListStatus(ctx context.Context) (int, error) {
	return r.record(VerbListStatus, nil, nil)
}

func (r *recordingRuntime) Stop(ctx context.Context) (int, error) {
	return r.record(VerbStop, nil, nil)
}

func (r *recordingRuntime) StopAndPurge(ctx context.Context) (int, error) {
	return r.record(VerbStopAndPurge, nil, nil)
}

var _ Runtime = (*recordingRuntime)(nil)

// envLookup returns a LookupFunc backed by a map.
func envLookup(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}
