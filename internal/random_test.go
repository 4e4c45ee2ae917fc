package internal

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewOTPShape(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		code, err := NewOTP(6)
		if err != nil {
			t.Fatalf("NewOTP error: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		if strings.Trim(code, "0123456789") != "" {
			t.Fatalf("non-digit in code %q", code)
		}
		seen[code] = struct{}{}
	}
	if len(seen) < 150 {
		t.Fatalf("suspiciously low code diversity: %d unique of 200", len(seen))
	}
}

func TestNewOTPRejectsBadWidth(t *testing.T) {
	for _, digits := range []int{0, 3, 11} {
		if _, err := NewOTP(digits); err == nil {
			t.Fatalf("expected error for %d digits", digits)
		}
	}
}

func TestNewTokenIDOrdering(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	first, err := NewTokenID(base)
	if err != nil {
		t.Fatalf("NewTokenID error: %v", err)
	}
	second, err := NewTokenID(base.Add(time.Millisecond))
	if err != nil {
		t.Fatalf("NewTokenID error: %v", err)
	}
	if len(first) != 26 || first >= second {
		t.Fatalf("expected sortable 26-char ids, got %q then %q", first, second)
	}
}

func TestNewAccountID(t *testing.T) {
	id, err := NewAccountID()
	if err != nil {
		t.Fatalf("NewAccountID error: %v", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected uuid, got %q", id)
	}
}

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("token")
	if len(fp) != 64 || fp != Fingerprint("token") || fp == Fingerprint("token2") {
		t.Fatalf("unexpected fingerprint %q", fp)
	}
}
