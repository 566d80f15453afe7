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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScope(t *testing.T) {
	assert.True(t, WholeStack().IsWholeStack())
	assert.True(t, Services().IsWholeStack())
	assert.Equal(t, "whole stack", WholeStack().String())

	names := []string{"scheduler", "worker"}
	s := Services(names...)
	names[0] = "collector"
	assert.Equal(t, []string{"scheduler", "worker"}, s.Names(), "Services must copy its input")
	assert.Equal(t, "{scheduler, worker}", s.String())
}

func TestVerb_Destructive(t *testing.T) {
	for _, v := range []Verb{VerbBuildAndStart, VerbFollowLogs, VerbRestartSubset, VerbExecInService,
		VerbRunOnceInService, VerbListStatus, VerbStop} {
		assert.False(t, v.Destructive(), v)
	}
	assert.True(t, VerbStopAndPurge.Destructive())
}

func TestRuntimeCall_StringAndBindings(t *testing.T) {
	call := RuntimeCall{
		Verb:    VerbExecInService,
		Scope:   Services("postgres"),
		Command: []Arg{Lit("psql"), Lit("-U"), Bind(BindingStoreUser), Lit("-d"), Bind(BindingStoreDB)},
	}
	assert.Equal(t, "exec-in-service {postgres} [psql -U ${STORE_USER} -d ${STORE_DB}]", call.String())
	assert.Equal(t, []BindingKey{BindingStoreUser, BindingStoreDB}, call.Bindings())
	assert.Equal(t, "list-status whole stack", RuntimeCall{Verb: VerbListStatus}.String())
}

func TestArg(t *testing.T) {
	lit := Lit("bash")
	assert.False(t, lit.IsBinding())
	assert.Equal(t, BindingKey(""), lit.Binding())
	assert.Equal(t, "bash", lit.String())

	b := Bind(BindingStoreDB)
	assert.True(t, b.IsBinding())
	assert.Equal(t, BindingStoreDB, b.Binding())
	assert.Equal(t, "${STORE_DB}", b.String())
}

func TestActionDescriptor_CopiesInput(t *testing.T) {
	cmd := []Arg{Lit("bash")}
	d := NewActionDescriptor(RuntimeCall{Verb: VerbExecInService, Scope: Services("collector"), Command: cmd})
	cmd[0] = Lit("sh")

	assert.Equal(t, 1, d.Len())
	assert.Equal(t, "bash", d.Calls()[0].Command[0].String())
}

func TestResolvedCall_Target(t *testing.T) {
	assert.Equal(t, "", ResolvedCall{}.Target())
	assert.Equal(t, "collector", ResolvedCall{Scope: Services("collector")}.Target())
	assert.Nil(t, ResolvedCall{}.Redacted())
}

func TestStackServices(t *testing.T) {
	assert.Equal(t, []string{"postgres", "collector", "scheduler", "worker"}, StackServices())

	s := StackServices()
	s[0] = "mutated"
	assert.Equal(t, ServiceStore, StackServices()[0])
}
