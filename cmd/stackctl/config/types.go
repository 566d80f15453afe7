// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

type StackctlConfig struct {
	// Runtime: which compose CLI drives the stack, and where
	Runtime RuntimeConfig `yaml:"runtime" toml:"runtime"`

	// Logging: console level and optional rotated file
	Logging LoggingConfig `yaml:"logging" toml:"logging"`

	// Tracing: span export for invocations
	Tracing TracingConfig `yaml:"tracing" toml:"tracing"`

	// UI: terminal output style
	UI UIConfig `yaml:"ui" toml:"ui"`
}

type RuntimeConfig struct {
	Binary        string   `yaml:"binary" toml:"binary"`                         // e.g. docker, podman, podman-compose
	ComposeSubcmd string   `yaml:"compose_subcommand" toml:"compose_subcommand"` // e.g. compose, or "" for podman-compose
	ProjectDir    string   `yaml:"project_dir" toml:"project_dir"`
	ProjectName   string   `yaml:"project_name,omitempty" toml:"project_name,omitempty"`
	ComposeFiles  []string `yaml:"compose_files,omitempty" toml:"compose_files,omitempty"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" toml:"level"`
	Dir        string `yaml:"dir,omitempty" toml:"dir,omitempty"`
	JSON       bool   `yaml:"json" toml:"json"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" toml:"max_age_days"`
}

type TracingConfig struct {
	// Exporter is one of none, stdout, otlp
	Exporter string `yaml:"exporter" toml:"exporter"`
	Endpoint string `yaml:"endpoint,omitempty" toml:"endpoint,omitempty"`
	Insecure bool   `yaml:"insecure" toml:"insecure"`
}

type UIConfig struct {
	// Personality is one of full, standard, minimal, machine; empty means auto
	Personality string `yaml:"personality,omitempty" toml:"personality,omitempty"`
}

var (
	validLevels      = []string{"debug", "info", "warn", "warning", "error"}
	validExporters   = []string{"none", "stdout", "otlp"}
	validPersonality = []string{"", "full", "standard", "minimal", "machine"}
)

func DefaultConfig() StackctlConfig {
	return StackctlConfig{
		Runtime: RuntimeConfig{
			Binary:        "docker",
			ComposeSubcmd: "compose",
			ProjectDir:    ".",
		},
		Logging: LoggingConfig{
			Level:      "warn",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
		Tracing: TracingConfig{
			Exporter: "none",
			Insecure: true,
		},
	}
}

// Validate reports the first field outside its allowed values.
func (c StackctlConfig) Validate() error {
	if strings.TrimSpace(c.Runtime.Binary) == "" {
		return fmt.Errorf("%w: runtime.binary is required", ErrInvalid)
	}
	for i, f := range c.Runtime.ComposeFiles {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("%w: runtime.compose_files[%d] is empty", ErrInvalid, i)
		}
	}
	if !slices.Contains(validLevels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("%w: logging.level %q (want one of %s)", ErrInvalid, c.Logging.Level, strings.Join(validLevels, ", "))
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("%w: logging rotation limits must not be negative", ErrInvalid)
	}
	if !slices.Contains(validExporters, strings.ToLower(c.Tracing.Exporter)) {
		return fmt.Errorf("%w: tracing.exporter %q (want one of %s)", ErrInvalid, c.Tracing.Exporter, strings.Join(validExporters, ", "))
	}
	if !slices.Contains(validPersonality, strings.ToLower(c.UI.Personality)) {
		return fmt.Errorf("%w: ui.personality %q", ErrInvalid, c.UI.Personality)
	}
	return nil
}
