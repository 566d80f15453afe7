// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package diagnostics

import (
	"context"
	"maps"
	"sync"
)

// RecordedSpan is a span captured by MockTracer.
type RecordedSpan struct {
	Name  string
	Attrs map[string]string
	Err   error
	Ended bool
}

// MockTracer is a test double for Tracer that records every span.
//
// # Description
//
// Spans are recorded in start order. Attributes set later through
// SetAttributes are merged into the innermost span of the context.
//
// # Thread Safety
//
// MockTracer is safe for concurrent use.
type MockTracer struct {
	mu    sync.Mutex
	spans []*RecordedSpan

	// ShutdownErr is returned by Shutdown.
	ShutdownErr error

	shutdownCalls int
}

type mockSpanKey struct{}

// NewMockTracer returns an empty MockTracer.
func NewMockTracer() *MockTracer {
	return &MockTracer{}
}

func (m *MockTracer) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func(error)) {
	span := &RecordedSpan{Name: name, Attrs: make(map[string]string, len(attrs))}
	maps.Copy(span.Attrs, attrs)

	m.mu.Lock()
	m.spans = append(m.spans, span)
	m.mu.Unlock()

	return context.WithValue(ctx, mockSpanKey{}, span), func(err error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		span.Err = err
		span.Ended = true
	}
}

func (m *MockTracer) SetAttributes(ctx context.Context, attrs map[string]string) {
	span, ok := ctx.Value(mockSpanKey{}).(*RecordedSpan)
	if !ok {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	maps.Copy(span.Attrs, attrs)
}

func (m *MockTracer) GetTraceID(ctx context.Context) string {
	if _, ok := ctx.Value(mockSpanKey{}).(*RecordedSpan); ok {
		return "00000000000000000000000000000001"
	}
	return ""
}

func (m *MockTracer) Shutdown(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownCalls++
	return m.ShutdownErr
}

// Spans returns copies of the recorded spans in start order.
func (m *MockTracer) Spans() []RecordedSpan {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordedSpan, len(m.spans))
	for i, s := range m.spans {
		out[i] = *s
		out[i].Attrs = maps.Clone(s.Attrs)
	}
	return out
}

// SpansNamed returns the recorded spans with the given name.
func (m *MockTracer) SpansNamed(name string) []RecordedSpan {
	var out []RecordedSpan
	for _, s := range m.Spans() {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

// ShutdownCalls returns how many times Shutdown was called.
func (m *MockTracer) ShutdownCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdownCalls
}

var _ Tracer = (*MockTracer)(nil)
