package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateServiceName(t *testing.T) {
	tests := []struct {
		name    string
		service string
		wantErr bool
	}{
		// Valid names
		{"simple", "worker", false},
		{"single char", "a", false},
		{"with digit", "worker2", false},
		{"underscore", "data_fetcher", false},
		{"hyphen", "policy-engine", false},
		{"dot", "collector.v2", false},
		{"uppercase", "Worker", false},
		{"starts with digit", "1worker", false},
		{"max length", strings.Repeat("a", MaxServiceNameLen), false},

		// Invalid names - injection attempts
		{"empty", "", true},
		{"flag", "-v", true},
		{"long flag", "--volumes", true},
		{"starts with dot", ".hidden", true},
		{"starts with underscore", "_worker", true},
		{"shell metachar", "worker;rm", true},
		{"command substitution", "$(id)", true},
		{"spaces", "work er", true},
		{"newline", "worker\n-v", true},
		{"path", "../worker", true},
		{"unicode", "wörker", true},
		{"too long", strings.Repeat("a", MaxServiceNameLen+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateServiceName(tt.service)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateServiceName(%q) error = %v, wantErr %v", tt.service, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidServiceName) {
				t.Errorf("error should wrap ErrInvalidServiceName, got %v", err)
			}
		})
	}
}

func TestValidateServiceNames(t *testing.T) {
	tests := []struct {
		name     string
		services []string
		wantErr  bool
	}{
		{"all valid", []string{"scheduler", "worker"}, false},
		{"one invalid", []string{"scheduler", "-d", "worker"}, true},
		{"all invalid", []string{"", "--rm"}, true},
		{"empty slice", []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateServiceNames(tt.services)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateServiceNames(%v) error = %v, wantErr %v", tt.services, err, tt.wantErr)
			}
		})
	}
}

func TestValidateServiceNames_ListsOffenders(t *testing.T) {
	err := ValidateServiceNames([]string{"worker", "-v", "a b"})
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, `"-v"`) || !strings.Contains(msg, `"a b"`) {
		t.Errorf("error should list every offender, got %q", msg)
	}
	if strings.Contains(msg, `"worker"`) {
		t.Errorf("valid names should not be listed, got %q", msg)
	}
}

func TestValidateServiceName_TruncatesLongInput(t *testing.T) {
	err := ValidateServiceName(strings.Repeat("x", 500))
	if err == nil {
		t.Fatal("expected error")
	}
	if len(err.Error()) > 200 {
		t.Errorf("error message should truncate the name, got %d bytes", len(err.Error()))
	}
}
