package auth

import (
	"testing"
	"time"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT("secret", "aleo1abc", "client", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ParseJWT("secret", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Address != "aleo1abc" {
		t.Errorf("address = %q, want aleo1abc", claims.Address)
	}
	if claims.Role != "client" {
		t.Errorf("role = %q, want client", claims.Role)
	}
}

func TestJWTWrongSecret(t *testing.T) {
	token, err := GenerateJWT("secret", "aleo1abc", "client", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ParseJWT("other", token); err == nil {
		t.Error("expected parse to fail with a different secret")
	}
}

func TestJWTExpired(t *testing.T) {
	short, err := GenerateJWT("secret", "aleo1abc", "client", time.Millisecond)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := ParseJWT("secret", short); err == nil {
		t.Error("expected expired token to be rejected")
	}
}
