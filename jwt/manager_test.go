package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newHSManager(t *testing.T, clock *fakeClock) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    30 * 24 * time.Hour,
		SigningMethod: MethodHS256,
		AccessKeys:    Keys{Private: []byte(strings.Repeat("a", 32))},
		RefreshKeys:   Keys{Private: []byte(strings.Repeat("r", 32))},
		Issuer:        "sessionkit-test",
		Now:           clock.Now,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestAccessRoundTripAndExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	m := newHSManager(t, clock)

	token, claims, err := m.CreateAccess("acct-1", "jti-1")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	if !claims.ExpiresAt.Time.Equal(clock.now.Add(15 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", claims.ExpiresAt.Time)
	}

	parsed, err := m.ParseAccess(token)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if parsed.UID != "acct-1" || parsed.ID != "jti-1" {
		t.Fatalf("unexpected claims %+v", parsed)
	}

	clock.now = clock.now.Add(15 * time.Minute)
	if _, err := m.ParseAccess(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
	if _, err := m.ParseAccessSignature(token); err != nil {
		t.Fatalf("signature-only parse should accept expired token: %v", err)
	}
}

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	m := newHSManager(t, clock)

	access, _, err := m.CreateAccess("acct-1", "a1")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	refresh, _, err := m.CreateRefresh("acct-1", "r1")
	if err != nil {
		t.Fatalf("create refresh: %v", err)
	}

	if _, err := m.ParseRefresh(access); err == nil {
		t.Fatal("access token must not parse as refresh token")
	}
	if _, err := m.ParseAccess(refresh); err == nil {
		t.Fatal("refresh token must not parse as access token")
	}

	claims, err := m.ParseRefresh(refresh)
	if err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
	if claims.ID != "r1" {
		t.Fatalf("expected record id r1, got %q", claims.ID)
	}
}

func TestParseRejectsTamperedAndForeignTokens(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	m := newHSManager(t, clock)

	token, _, err := m.CreateAccess("acct-1", "a1")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	tampered := token[:len(token)-2] + "xx"
	if _, err := m.ParseAccess(tampered); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}

	foreign := gjwt.NewWithClaims(gjwt.SigningMethodHS256, Claims{
		UID:  "acct-1",
		Type: typeAccess,
		RegisteredClaims: gjwt.RegisteredClaims{
			ID:        "a2",
			Issuer:    "sessionkit-test",
			IssuedAt:  gjwt.NewNumericDate(clock.now),
			ExpiresAt: gjwt.NewNumericDate(clock.now.Add(time.Minute)),
		},
	})
	signed, err := foreign.SignedString([]byte(strings.Repeat("z", 32)))
	if err != nil {
		t.Fatalf("sign foreign token: %v", err)
	}
	if _, err := m.ParseAccess(signed); err == nil {
		t.Fatal("expected token signed with a foreign key to be rejected")
	}

	if _, err := m.ParseAccess(""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for empty input, got %v", err)
	}
}

func TestEd25519Manager(t *testing.T) {
	_, accessPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	_, refreshPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodEd25519,
		AccessKeys:    Keys{Private: accessPriv},
		RefreshKeys:   Keys{Private: refreshPriv},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, _, err := m.CreateRefresh("acct-9", "rec-9")
	if err != nil {
		t.Fatalf("create refresh: %v", err)
	}
	if _, err := m.ParseRefresh(token); err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	base := Config{
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodHS256,
		AccessKeys:    Keys{Private: []byte(strings.Repeat("a", 32))},
		RefreshKeys:   Keys{Private: []byte(strings.Repeat("r", 32))},
	}

	cases := map[string]func(*Config){
		"zero access ttl":  func(c *Config) { c.AccessTTL = 0 },
		"zero refresh ttl": func(c *Config) { c.RefreshTTL = 0 },
		"short secret":     func(c *Config) { c.AccessKeys.Private = []byte("short") },
		"shared secret":    func(c *Config) { c.RefreshKeys = c.AccessKeys },
		"unknown method":   func(c *Config) { c.SigningMethod = "rs256" },
		"huge leeway":      func(c *Config) { c.Leeway = time.Hour },
	}
	for name, mutate := range cases {
		cfg := base
		mutate(&cfg)
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
