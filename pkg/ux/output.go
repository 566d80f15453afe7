// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output styling and prompts for stackctl.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Palette - harbor teals with standard semantic colors
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // highlights, success
	ColorTealPrimary = lipgloss.Color("#20B9B4") // main accent
	ColorTealDeep    = lipgloss.Color("#16858E") // borders
	ColorSlate       = lipgloss.Color("#2C4A54") // muted text

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#2C4A54")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	// Text styles
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	// Box styles
	Box        lipgloss.Style
	WarningBox lipgloss.Style
	ErrorBox   lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorTealPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorTealBright).Bold(true),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
	WarningBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorWarning).
		Padding(0, 1),
	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(0, 1),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconPending:
		return Styles.Muted.Render(string(i))
	default:
		return string(i)
	}
}

// -----------------------------------------------------------------------------
// Output streams
// -----------------------------------------------------------------------------

var (
	outMu  sync.RWMutex
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// SetOutput redirects the print helpers. nil restores the process stream.
func SetOutput(out, errOut io.Writer) {
	outMu.Lock()
	defer outMu.Unlock()
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	stdout, stderr = out, errOut
}

func streams() (io.Writer, io.Writer) {
	outMu.RLock()
	defer outMu.RUnlock()
	return stdout, stderr
}

// -----------------------------------------------------------------------------
// Print helpers that respect personality level
// -----------------------------------------------------------------------------

// Title prints a styled title
func Title(text string) {
	if GetPersonality().Level == PersonalityMachine {
		return
	}
	out, _ := streams()
	fmt.Fprintln(out, Styles.Title.Render(text))
	if GetPersonality().Level == PersonalityFull {
		fmt.Fprintln(out, Styles.Muted.Render(repeatChar('─', len([]rune(text)))))
	}
}

// Success prints a success message with checkmark
func Success(text string) {
	out, _ := streams()
	switch GetPersonality().Level {
	case PersonalityMachine:
		fmt.Fprintf(out, "OK: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(out, "%s %s\n", IconSuccess.Render(), text)
	default:
		fmt.Fprintf(out, "%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
	}
}

// Warning prints a warning message. Warnings go to stderr so they never
// mix with piped runtime output.
func Warning(text string) {
	_, errOut := streams()
	switch GetPersonality().Level {
	case PersonalityMachine:
		fmt.Fprintf(errOut, "WARN: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(errOut, "%s %s\n", IconWarning.Render(), text)
	default:
		fmt.Fprintf(errOut, "%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
	}
}

// Error prints an error message to stderr
func Error(text string) {
	_, errOut := streams()
	switch GetPersonality().Level {
	case PersonalityMachine:
		fmt.Fprintf(errOut, "ERROR: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(errOut, "%s %s\n", IconError.Render(), text)
	default:
		fmt.Fprintf(errOut, "%s %s\n", IconError.Render(), Styles.Error.Render(text))
	}
}

// Hint prints a follow-up suggestion when hints are enabled.
func Hint(text string) {
	p := GetPersonality()
	if !p.ShowHints || p.Level == PersonalityMachine {
		return
	}
	_, errOut := streams()
	fmt.Fprintf(errOut, "  %s %s\n", IconArrow.Render(), Styles.Muted.Render(text))
}

// Info prints an informational message
func Info(text string) {
	out, _ := streams()
	switch GetPersonality().Level {
	case PersonalityMachine:
		fmt.Fprintln(out, text)
	default:
		fmt.Fprintf(out, "%s %s\n", Styles.Muted.Render("│"), text)
	}
}

// Muted prints muted/secondary text
func Muted(text string) {
	if GetPersonality().Level == PersonalityMachine {
		return
	}
	out, _ := streams()
	fmt.Fprintln(out, Styles.Muted.Render(text))
}

// Box prints text in a rounded box
func Box(title, content string) {
	out, _ := streams()
	if GetPersonality().Level == PersonalityMachine {
		fmt.Fprintf(out, "%s: %s\n", title, content)
		return
	}
	boxStyle := Styles.Box.Width(60)
	fmt.Fprintln(out, boxStyle.Render(Styles.Title.Render(title)+"\n"+content))
}

// WarningBox prints text in a warning-styled box on stderr
func WarningBox(title, content string) {
	_, errOut := streams()
	if GetPersonality().Level == PersonalityMachine {
		fmt.Fprintf(errOut, "WARN %s: %s\n", title, content)
		return
	}
	boxStyle := Styles.WarningBox.Width(60)
	fmt.Fprintln(errOut, boxStyle.Render(Styles.Warning.Bold(true).Render(title)+"\n"+content))
}

// CommandRow is one line of the command listing.
type CommandRow struct {
	Name        string
	Calls       string // runtime calls, e.g. "follow-logs {collector}"
	Summary     string
	Destructive bool
}

// CommandTable prints the command vocabulary.
//
// Machine output is one tab-separated line per command:
//
//	name<TAB>calls<TAB>destructive|safe<TAB>summary
func CommandTable(rows []CommandRow) {
	out, _ := streams()
	p := GetPersonality()

	if p.Level == PersonalityMachine {
		for _, r := range rows {
			kind := "safe"
			if r.Destructive {
				kind = "destructive"
			}
			fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", r.Name, r.Calls, kind, r.Summary)
		}
		return
	}

	width := 0
	for _, r := range rows {
		width = max(width, len(r.Name))
	}

	for _, r := range rows {
		name := r.Name + strings.Repeat(" ", width-len(r.Name))
		switch p.Level {
		case PersonalityMinimal:
			marker := " "
			if r.Destructive {
				marker = "!"
			}
			fmt.Fprintf(out, "%s %s  %s\n", marker, name, r.Summary)
		default:
			icon := IconBullet.Render()
			if r.Destructive {
				icon = IconWarning.Render()
			}
			fmt.Fprintf(out, "%s %s  %s\n", icon, Styles.Highlight.Render(name), r.Summary)
			if p.Level == PersonalityFull && r.Calls != "" {
				fmt.Fprintf(out, "  %s %s\n", strings.Repeat(" ", width), Styles.Muted.Render(r.Calls))
			}
		}
	}
}

func repeatChar(c rune, n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(string(c), n)
}
