package security

import (
	"errors"
	"testing"
	"time"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "s3cret!" {
		t.Fatalf("expected hash to differ from password")
	}
	if !CheckPassword(hash, "s3cret!") {
		t.Fatalf("expected password to match")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatalf("expected wrong password to fail")
	}
	if CheckPassword("", "s3cret!") {
		t.Fatalf("expected empty hash to fail")
	}
}

func TestUserToken_RoundTrip(t *testing.T) {
	now := time.Now()
	token, err := IssueUserToken("secret", 42, 30*24*time.Hour, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := ParseUserToken("secret", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("expected user id 42, got %d", claims.UserID)
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.Sub(now) < 29*24*time.Hour {
		t.Fatalf("expected ~30 day expiry, got %v", claims.ExpiresAt)
	}
}

func TestParseUserToken_Rejects(t *testing.T) {
	token, err := IssueUserToken("secret", 7, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, errParse := ParseUserToken("other-secret", token); !errors.Is(errParse, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", errParse)
	}

	expired, err := IssueUserToken("secret", 7, time.Hour, time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("issue expired: %v", err)
	}
	if _, errParse := ParseUserToken("secret", expired); !errors.Is(errParse, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", errParse)
	}

	if _, errParse := ParseUserToken("secret", "not-a-token"); !errors.Is(errParse, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", errParse)
	}
}

func TestGenerateRandomString(t *testing.T) {
	a, err := GenerateRandomString(16)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, _ := GenerateRandomString(16)
	if a == b || len(a) == 0 {
		t.Fatalf("expected distinct non-empty values")
	}
	if _, errZero := GenerateRandomString(0); errZero == nil {
		t.Fatalf("expected error for zero length")
	}
}
