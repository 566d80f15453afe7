// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// ErrNotInteractive is returned by prompts when no terminal is attached.
var ErrNotInteractive = errors.New("no interactive terminal")

// maxDescriptionLen bounds the confirmation body so it fits a 60-column box.
const maxDescriptionLen = 240

// confirmRunner renders field, which is bound to answer. Replaced in tests.
var confirmRunner = func(field *huh.Confirm, answer *bool) error {
	return huh.NewForm(huh.NewGroup(field)).
		WithTheme(stackTheme()).
		WithShowHelp(false).
		Run()
}

// ConfirmDestructive asks the operator to approve an irreversible action.
//
// # Description
//
// Shows a yes/no prompt defaulting to "no". Returns ErrNotInteractive
// without prompting when stdin or stdout is not a terminal, or when the
// personality is machine; callers treat that as a refusal unless the
// operator pre-approved the action.
//
// # Inputs
//
//   - title: Short question, e.g. "Delete all stack volumes?"
//   - description: What will be lost
//
// # Outputs
//
//   - bool: true only if the operator chose "yes"
//   - error: ErrNotInteractive, or the prompt's own failure (e.g. Ctrl-C)
func ConfirmDestructive(title, description string) (bool, error) {
	if !IsInteractive() {
		return false, ErrNotInteractive
	}

	approved := false
	field := huh.NewConfirm().
		Title(title).
		Description(truncate(description, maxDescriptionLen)).
		Affirmative("Yes, delete").
		Negative("No").
		Value(&approved)

	if err := confirmRunner(field, &approved); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}
	return approved, nil
}

// stackTheme adapts the base huh theme to the CLI palette.
func stackTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = t.Focused.Title.Foreground(ColorWarning).Bold(true)
	t.Focused.Description = t.Focused.Description.Foreground(ColorSlate)
	t.Focused.FocusedButton = t.Focused.FocusedButton.
		Foreground(lipgloss.Color("#0F1923")).
		Background(ColorTealBright)
	t.Focused.BlurredButton = t.Focused.BlurredButton.Foreground(ColorSlate)
	t.Focused.Base = t.Focused.Base.BorderForeground(ColorTealDeep)

	t.Blurred = t.Focused
	t.Blurred.Base = t.Blurred.Base.BorderStyle(lipgloss.HiddenBorder())
	return t
}

// truncate shortens s to maxLen runes, ending in "..." when cut.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
