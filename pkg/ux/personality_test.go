// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"testing"
)

// withTerminals fakes stdout/stdin terminal detection for one test.
func withTerminals(t *testing.T, out, in bool) {
	t.Helper()
	origOut, origIn := stdoutIsTerminal, stdinIsTerminal
	stdoutIsTerminal = func() bool { return out }
	stdinIsTerminal = func() bool { return in }
	t.Cleanup(func() {
		stdoutIsTerminal, stdinIsTerminal = origOut, origIn
	})
}

func keepPersonality(t *testing.T) {
	t.Helper()
	orig := GetPersonality()
	t.Cleanup(func() { SetPersonality(orig) })
}

// =============================================================================
// GetPersonality / SetPersonality Tests
// =============================================================================

func TestSetPersonality_AndGet(t *testing.T) {
	keepPersonality(t)

	SetPersonality(Personality{Level: PersonalityMinimal, ShowHints: false})

	got := GetPersonality()
	if got.Level != PersonalityMinimal {
		t.Errorf("expected level %v, got %v", PersonalityMinimal, got.Level)
	}
	if got.ShowHints {
		t.Error("expected ShowHints false")
	}
}

func TestSetPersonalityLevel(t *testing.T) {
	keepPersonality(t)

	tests := []struct {
		level     PersonalityLevel
		wantHints bool
	}{
		{PersonalityFull, true},
		{PersonalityStandard, true},
		{PersonalityMinimal, true},
		{PersonalityMachine, false},
	}
	for _, tt := range tests {
		SetPersonalityLevel(tt.level)
		got := GetPersonality()
		if got.Level != tt.level {
			t.Errorf("expected %v, got %v", tt.level, got.Level)
		}
		if got.ShowHints != tt.wantHints {
			t.Errorf("%v: ShowHints = %v, want %v", tt.level, got.ShowHints, tt.wantHints)
		}
	}
}

// =============================================================================
// ParsePersonalityLevel Tests
// =============================================================================

func TestParsePersonalityLevel(t *testing.T) {
	tests := []struct {
		inputs []string
		want   PersonalityLevel
	}{
		{[]string{"full", "Full", "FULL", "f"}, PersonalityFull},
		{[]string{"standard", "Standard", "std", "s"}, PersonalityStandard},
		{[]string{"minimal", "MIN", "m", " minimal "}, PersonalityMinimal},
		{[]string{"machine", "quiet", "q"}, PersonalityMachine},
		{[]string{"", "unknown", "nautical"}, PersonalityStandard},
	}
	for _, tt := range tests {
		for _, input := range tt.inputs {
			if got := ParsePersonalityLevel(input); got != tt.want {
				t.Errorf("ParsePersonalityLevel(%q) = %v, want %v", input, got, tt.want)
			}
		}
	}
}

// =============================================================================
// InitPersonality Tests
// =============================================================================

func TestInitPersonality_Precedence(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		env      string
		tty      bool
		want     PersonalityLevel
	}{
		{"explicit on terminal", "minimal", "full", true, PersonalityMinimal},
		{"explicit wins over pipe", "full", "", false, PersonalityFull},
		{"process env is ignored", "", "machine", true, PersonalityStandard},
		{"pipe means machine", "", "", false, PersonalityMachine},
		{"terminal default", "", "", true, PersonalityStandard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keepPersonality(t)
			withTerminals(t, tt.tty, tt.tty)
			t.Setenv(EnvPersonality, tt.env)

			InitPersonality(tt.explicit)

			if got := GetPersonality().Level; got != tt.want {
				t.Errorf("level = %v, want %v", got, tt.want)
			}
		})
	}
}

// =============================================================================
// IsInteractive / ShouldShowColors Tests
// =============================================================================

func TestIsInteractive(t *testing.T) {
	tests := []struct {
		name   string
		level  PersonalityLevel
		out    bool
		in     bool
		expect bool
	}{
		{"both terminals", PersonalityStandard, true, true, true},
		{"stdin piped", PersonalityStandard, true, false, false},
		{"stdout piped", PersonalityFull, false, true, false},
		{"machine on terminal", PersonalityMachine, true, true, true},
		{"machine piped", PersonalityMachine, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keepPersonality(t)
			withTerminals(t, tt.out, tt.in)
			SetPersonalityLevel(tt.level)

			if got := IsInteractive(); got != tt.expect {
				t.Errorf("IsInteractive() = %v, want %v", got, tt.expect)
			}
		})
	}
}

func TestShouldShowColors(t *testing.T) {
	keepPersonality(t)

	SetPersonalityLevel(PersonalityMachine)
	if ShouldShowColors() {
		t.Error("machine mode should not show colors")
	}
	SetPersonalityLevel(PersonalityMinimal)
	if !ShouldShowColors() {
		t.Error("minimal mode should show colors")
	}
}

func TestDefaultPersonality(t *testing.T) {
	p := DefaultPersonality()
	if p.Level != PersonalityStandard || !p.ShowHints {
		t.Errorf("unexpected default %+v", p)
	}
}
