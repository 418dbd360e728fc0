package sign

import (
	"errors"
	"testing"
	"time"
)

func TestSignVerifyRoundtrip(t *testing.T) {
	s := New("secret", 10*time.Minute)

	token, expiresAt, err := s.Sign("https://example.com/v/1", "mp4")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatal("expected expiry in the future")
	}

	link, err := s.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if link.URL != "https://example.com/v/1" {
		t.Errorf("unexpected url: %q", link.URL)
	}
	if link.Format != "mp4" {
		t.Errorf("unexpected format: %q", link.Format)
	}
}

func TestVerifyExpired(t *testing.T) {
	s := New("secret", -time.Minute)

	token, _, err := s.Sign("https://example.com/v/1", "best")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if _, err := s.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	token, _, err := New("secret-a", time.Minute).Sign("https://example.com/v/1", "best")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if _, err := New("secret-b", time.Minute).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	s := New("secret", time.Minute)
	if _, err := s.Verify("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
