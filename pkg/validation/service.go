// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation for values passed to
// subprocesses.
//
// Operator input such as the service in "logs-<service>" ends up on a
// compose command line. These validators keep it from being read as a
// flag or carrying shell metacharacters into a dry-run transcript.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidServiceName is wrapped by every service-name failure.
var ErrInvalidServiceName = errors.New("invalid service name")

// MaxServiceNameLen bounds a service name. Compose itself has no limit;
// container names derived from it are capped by the runtime well above this.
const MaxServiceNameLen = 63

// servicePattern matches compose service names: an alphanumeric first
// character, then alphanumerics, dots, underscores and hyphens.
var servicePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidateServiceName validates a compose service name.
//
// Valid names:
//   - 1-63 characters
//   - Letters and digits
//   - Dots, underscores and hyphens after the first character
//
// Example:
//
//	if err := validation.ValidateServiceName(name); err != nil {
//	    return ExitInvalidService, err
//	}
//	// Safe to pass as a compose argument
func ValidateServiceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidServiceName)
	}
	if len(name) > MaxServiceNameLen {
		return fmt.Errorf("%w: %q exceeds %d characters", ErrInvalidServiceName, truncateForError(name), MaxServiceNameLen)
	}
	if !servicePattern.MatchString(name) {
		return fmt.Errorf("%w: %q (must start with a letter or digit and contain only letters, digits, '.', '_' or '-')", ErrInvalidServiceName, name)
	}
	return nil
}

// ValidateServiceNames validates every name.
// Returns an error listing all invalid names if any fail validation.
func ValidateServiceNames(names []string) error {
	var invalid []string
	for _, n := range names {
		if err := ValidateServiceName(n); err != nil {
			invalid = append(invalid, fmt.Sprintf("%q", truncateForError(n)))
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidServiceName, strings.Join(invalid, ", "))
	}
	return nil
}

func truncateForError(s string) string {
	if len(s) <= MaxServiceNameLen {
		return s
	}
	return s[:MaxServiceNameLen] + "..."
}
