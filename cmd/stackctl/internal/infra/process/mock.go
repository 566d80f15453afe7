// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package process

import (
	"context"
	"sync"
)

// MockManager is a test double for Manager that records every Spec.
//
// # Description
//
// RunAttachedFunc, when set, decides the result of each call. Otherwise
// results are taken from Results in order, and calls beyond the scripted
// results succeed with status 0.
//
// # Example
//
//	mock := process.NewMockManager()
//	mock.Results = []process.Result{{Code: 1}}
//	executor := compose.NewExecutor(mock, cfg)
//	code, _ := executor.Stop(ctx)
//	// mock.Calls()[0].Args == []string{"compose", "down"}
//
// # Thread Safety
//
// MockManager is safe for concurrent use.
type MockManager struct {
	// RunAttachedFunc overrides Results when set.
	RunAttachedFunc func(ctx context.Context, spec Spec) (int, error)

	// Results are returned in call order.
	Results []Result

	mu    sync.Mutex
	calls []Spec
}

// Result is one scripted RunAttached outcome.
type Result struct {
	Code int
	Err  error
}

// NewMockManager returns a MockManager where every call succeeds.
func NewMockManager() *MockManager {
	return &MockManager{}
}

// RunAttached records spec and returns the scripted result.
func (m *MockManager) RunAttached(ctx context.Context, spec Spec) (int, error) {
	m.mu.Lock()
	idx := len(m.calls)
	m.calls = append(m.calls, spec)
	fn := m.RunAttachedFunc
	var res Result
	if idx < len(m.Results) {
		res = m.Results[idx]
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, spec)
	}
	return res.Code, res.Err
}

// Calls returns the recorded specs in call order.
func (m *MockManager) Calls() []Spec {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Spec, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of RunAttached calls.
func (m *MockManager) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

var _ Manager = (*MockManager)(nil)
