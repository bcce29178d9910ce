package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/balajivenky06/dandi/internal/domain"
)

func TestValidateKeyName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"simple", "Production", "Production", false},
		{"trims whitespace", "  My Key \t", "My Key", false},
		{"unicode", "clé de test", "clé de test", false},
		{"exactly max length", strings.Repeat("a", MaxNameLength), strings.Repeat("a", MaxNameLength), false},
		{"empty", "", "", true},
		{"only spaces", "    ", "", true},
		{"too long", strings.Repeat("a", MaxNameLength+1), "", true},
		{"control character", "bad\x00name", "", true},
		{"newline inside", "bad\nname", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateKeyName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateKeyName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
			if got != tt.want {
				t.Errorf("ValidateKeyName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateKeyType(t *testing.T) {
	tests := []struct {
		input   string
		want    domain.KeyType
		wantErr bool
	}{
		{"", domain.KeyTypeDev, false},
		{"dev", domain.KeyTypeDev, false},
		{" prod ", domain.KeyTypeProd, false},
		{"test", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ValidateKeyType(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateKeyType(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ValidateKeyType(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateSecret(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		wantMsg string
	}{
		{"valid", "abcdefghijABCDEFGHIJ0123456789-_", nil, ""},
		{"empty", "", domain.ErrEmpty, MsgSecretEmpty},
		{"whitespace", "   ", domain.ErrEmpty, MsgSecretEmpty},
		{"too short", "abc", domain.ErrBadFormat, MsgSecretLength},
		{"too long", strings.Repeat("a", 33), domain.ErrBadFormat, MsgSecretLength},
		{"bad character", strings.Repeat("a", 31) + "!", domain.ErrBadFormat, MsgSecretAlphabet},
		{"space inside", strings.Repeat("a", 15) + " " + strings.Repeat("a", 16), domain.ErrBadFormat, MsgSecretAlphabet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSecret(tt.input)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if vErr.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", vErr.Message, tt.wantMsg)
			}
			if vErr.Value != "" {
				t.Errorf("secret value leaked into error: %q", vErr.Value)
			}
		})
	}
}

func TestValidateCreateKeyRequest(t *testing.T) {
	errs := ValidateCreateKeyRequest(&domain.CreateKeyRequest{Name: "ok", Type: "prod"})
	if errs.HasErrors() {
		t.Fatalf("unexpected errors: %v", errs)
	}

	errs = ValidateCreateKeyRequest(&domain.CreateKeyRequest{Name: " ", Type: "qa"})
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(errs), errs)
	}
	if !strings.Contains(errs.Error(), "and 1 more errors") {
		t.Errorf("unexpected aggregate message: %s", errs.Error())
	}
}
