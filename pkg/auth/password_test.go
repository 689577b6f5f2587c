package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name          string
		password      string
		shouldFail    bool
		errorContains string
	}{
		{
			name:       "valid strong password",
			password:   "Str0ng!Pass",
			shouldFail: false,
		},
		{
			name:          "too short",
			password:      "Pa@1a",
			shouldFail:    true,
			errorContains: "Password must be at least 8 characters long",
		},
		{
			name:          "missing uppercase",
			password:      "securepass@123",
			shouldFail:    true,
			errorContains: "Password must contain at least one uppercase letter",
		},
		{
			name:          "missing lowercase",
			password:      "SECUREPASS@123",
			shouldFail:    true,
			errorContains: "Password must contain at least one lowercase letter",
		},
		{
			name:          "missing digit",
			password:      "SecurePass@xyz",
			shouldFail:    true,
			errorContains: "Password must contain at least one number",
		},
		{
			name:          "missing special character",
			password:      "SecurePass123",
			shouldFail:    true,
			errorContains: "Password must contain at least one special character",
		},
		{
			name:          "unlisted symbol is not special",
			password:      "SecurePass123~",
			shouldFail:    true,
			errorContains: "Password must contain at least one special character",
		},
		{
			name:       "valid with brackets",
			password:   "MyP[ssw0rd]",
			shouldFail: false,
		},
		{
			name:          "too long",
			password:      "Aa1!" + strings.Repeat("x", 80),
			shouldFail:    true,
			errorContains: "at most 72 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)

			if tt.shouldFail {
				if err == nil {
					t.Errorf("expected error, got nil")
				} else if !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("error message should contain '%s', got: %v", tt.errorContains, err)
				}
			} else if err != nil {
				t.Errorf("expected no error, got: %v", err)
			}
		})
	}
}

func TestValidatePassword_ReportsEveryFailedRule(t *testing.T) {
	err := ValidatePassword("abc")

	var pve *PasswordValidationError
	if !errors.As(err, &pve) {
		t.Fatalf("expected *PasswordValidationError, got %T", err)
	}

	want := []string{
		"Password must be at least 8 characters long",
		"Password must contain at least one uppercase letter",
		"Password must contain at least one number",
		"Password must contain at least one special character",
	}
	if len(pve.Errors) != len(want) {
		t.Fatalf("expected %d errors, got %v", len(want), pve.Errors)
	}
	for i := range want {
		if pve.Errors[i] != want[i] {
			t.Errorf("rule %d: expected %q, got %q", i, want[i], pve.Errors[i])
		}
	}
}

func TestHashAndComparePassword(t *testing.T) {
	password := "SecureP@ss123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if hash == "" || hash == password {
		t.Error("hash should be non-empty and differ from the plaintext")
	}

	if err := ComparePassword(hash, password); err != nil {
		t.Errorf("ComparePassword with correct password failed: %v", err)
	}

	if err := ComparePassword(hash, "WrongPassword123!"); err == nil {
		t.Error("ComparePassword with wrong password should fail")
	}
}

func TestHashPassword_Empty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Error("expected error for empty password")
	}
}

func TestGenerateOpaqueToken(t *testing.T) {
	a, err := GenerateOpaqueToken()
	if err != nil {
		t.Fatalf("GenerateOpaqueToken failed: %v", err)
	}
	b, err := GenerateOpaqueToken()
	if err != nil {
		t.Fatalf("GenerateOpaqueToken failed: %v", err)
	}

	if len(a) != OpaqueTokenLength*2 {
		t.Errorf("expected %d hex chars, got %d", OpaqueTokenLength*2, len(a))
	}
	if a == b {
		t.Error("two generated tokens should differ")
	}
}

func TestHashOpaqueToken(t *testing.T) {
	if HashOpaqueToken("abc") != HashOpaqueToken("abc") {
		t.Error("hash should be deterministic")
	}
	if HashOpaqueToken("abc") == HashOpaqueToken("abd") {
		t.Error("different tokens should hash differently")
	}
	if HashOpaqueToken("abc") == "abc" {
		t.Error("hash should not equal the token")
	}
}
