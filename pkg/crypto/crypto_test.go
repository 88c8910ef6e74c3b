package crypto

import (
	"strings"
	"testing"
)

func TestCodeHashing(t *testing.T) {
	hash, err := HashCode("482913")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}

	if hash == "482913" {
		t.Fatal("expected hash to differ from plaintext code")
	}

	if !VerifyCode(hash, "482913") {
		t.Fatal("expected code verification to succeed")
	}

	if VerifyCode(hash, "482914") {
		t.Fatal("expected code verification to fail")
	}
}

func TestGenerateNumericCode(t *testing.T) {
	code, err := GenerateNumericCode(6)
	if err != nil {
		t.Fatalf("generate error: %v", err)
	}

	if len(code) != 6 {
		t.Fatalf("expected 6 digits, got %q", code)
	}

	if strings.Trim(code, "0123456789") != "" {
		t.Fatalf("expected only decimal digits, got %q", code)
	}
}

func TestGenerateNumericCodeRejectsZeroDigits(t *testing.T) {
	if _, err := GenerateNumericCode(0); err == nil {
		t.Fatal("expected error for zero digits")
	}
}

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken(32)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	if len(token) == 0 {
		t.Fatal("expected token to be non-empty")
	}
}
