package jwt

import (
	"errors"
	"testing"
	"time"
)

func TestSignAndParse(t *testing.T) {
	s := NewTokenService("secret", time.Hour, "raffle-backend")
	now := time.Now()
	token, expiresAt, err := s.Sign("u1", "ops@example.com", "admin", "org-1", now)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !expiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("expected expiry in one hour, got %v", expiresAt)
	}

	claims, err := s.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "u1" || claims.Email != "ops@example.com" || claims.Role != "admin" || claims.OrganizationID != "org-1" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.Issuer != "raffle-backend" {
		t.Fatalf("expected issuer raffle-backend, got %q", claims.Issuer)
	}
}

func TestParseRejectsBadTokens(t *testing.T) {
	s := NewTokenService("secret", time.Hour, "raffle-backend")

	expired, _, err := s.Sign("u1", "ops@example.com", "admin", "org-1", time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := s.Parse(expired); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	other := NewTokenService("another-secret", time.Hour, "raffle-backend")
	forged, _, _ := other.Sign("u1", "ops@example.com", "admin", "org-1", time.Now())
	if _, err := s.Parse(forged); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for a foreign signature, got %v", err)
	}
	if _, err := s.Parse("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestSignWithoutSecret(t *testing.T) {
	s := NewTokenService("", 0, "raffle-backend")
	if _, _, err := s.Sign("u1", "", "", "org-1", time.Now()); err == nil {
		t.Fatal("expected an error without a secret")
	}
}

func TestServiceTokenParses(t *testing.T) {
	s := NewTokenService("secret", time.Hour, "raffle-backend")
	token, err := s.SignService("notifier", time.Now())
	if err != nil {
		t.Fatalf("sign service: %v", err)
	}
	claims, err := s.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "notifier" || claims.OrganizationID != "" {
		t.Fatalf("unexpected service claims %+v", claims)
	}
}
