package auth

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	sec := "secret123"
	exp := time.Now().Add(5 * time.Minute).Unix()

	tok, err := GenerateOperatorToken(sec, "supervisor", "reset", exp)
	if err != nil {
		t.Fatalf("gen: %v", err)
	}

	op, err := ValidateOperatorToken(sec, tok, "reset", time.Now(), 60)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if op != "supervisor" {
		t.Fatalf("operator mismatch: %s", op)
	}
}

func TestBadSignature(t *testing.T) {
	sec := "secret123"
	exp := time.Now().Add(5 * time.Minute).Unix()
	tok, _ := GenerateOperatorToken(sec, "supervisor", ScopeAll, exp)

	if _, err := ValidateOperatorToken("other", tok, "clear", time.Now(), 60); !errors.Is(err, ErrTokenSig) {
		t.Fatalf("expected signature error, got %v", err)
	}

	// flip a char
	if tok[0] == 'A' {
		tok = "B" + tok[1:]
	} else {
		tok = "A" + tok[1:]
	}
	if _, err := ValidateOperatorToken(sec, tok, "clear", time.Now(), 60); err == nil {
		t.Fatalf("expected error for bad token")
	}
}

func TestExpiryHonoursSkew(t *testing.T) {
	sec := "secret123"
	now := time.Now()
	tok, _ := GenerateOperatorToken(sec, "op", ScopeAll, now.Add(-30*time.Second).Unix())

	if _, err := ValidateOperatorToken(sec, tok, "clear", now, 60); err != nil {
		t.Fatalf("within skew should pass: %v", err)
	}
	if _, err := ValidateOperatorToken(sec, tok, "clear", now, 10); !errors.Is(err, ErrTokenExp) {
		t.Fatalf("expected expiry error, got %v", err)
	}
}

func TestScope(t *testing.T) {
	sec := "secret123"
	tok, _ := GenerateOperatorToken(sec, "op", "clear", time.Now().Add(time.Minute).Unix())
	if _, err := ValidateOperatorToken(sec, tok, "reset", time.Now(), 0); !errors.Is(err, ErrTokenScope) {
		t.Fatalf("expected scope error, got %v", err)
	}
	if _, err := GenerateOperatorToken(sec, "a.b", "clear", 0); !errors.Is(err, ErrTokenFormat) {
		t.Fatalf("dotted operator must be rejected, got %v", err)
	}
}
