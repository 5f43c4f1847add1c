package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func setSecret(t *testing.T, value string) {
	t.Helper()
	t.Setenv("MERIDIAN_AUTH_SECRET", value)
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)
}

func TestGenerateAndValidate(t *testing.T) {
	setSecret(t, "test-secret")

	token, err := GenerateToken("staff-1", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ParseAndValidate(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "staff-1" {
		t.Fatalf("subject = %q", claims.Subject)
	}
	if claims.Issuer != "meridian" {
		t.Fatalf("issuer = %q", claims.Issuer)
	}
}

func TestGenerateTokenValidation(t *testing.T) {
	setSecret(t, "test-secret")

	if _, err := GenerateToken("", time.Minute); err == nil {
		t.Fatal("empty principal must be rejected")
	}
	if _, err := GenerateToken("staff-1", 0); err == nil {
		t.Fatal("zero ttl must be rejected")
	}
}

func TestMissingSecret(t *testing.T) {
	setSecret(t, "")

	if _, err := GenerateToken("staff-1", time.Minute); !errors.Is(err, errMissingSecret) {
		t.Fatalf("expected missing-secret error, got %v", err)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	setSecret(t, "test-secret")

	token, err := GenerateToken("staff-1", time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	setSecret(t, "first-secret")
	token, err := GenerateToken("staff-1", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	setSecret(t, "second-secret")
	if _, err := ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestGarbageTokenRejected(t *testing.T) {
	setSecret(t, "test-secret")
	for _, tok := range []string{"", "   ", "not.a.jwt", "a.b"} {
		if _, err := ParseAndValidate(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%q: expected ErrInvalidToken, got %v", tok, err)
		}
	}
}

func TestPrincipalContextRoundTrip(t *testing.T) {
	ctx := ContextWithPrincipal(context.Background(), "staff-1")
	id, ok := PrincipalFromContext(ctx)
	if !ok || id != "staff-1" {
		t.Fatalf("got %q ok=%v", id, ok)
	}
	if _, ok := PrincipalFromContext(context.Background()); ok {
		t.Fatal("empty context must not carry a principal")
	}
}
