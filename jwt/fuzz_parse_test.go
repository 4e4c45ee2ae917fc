package jwt

import (
	"strings"
	"testing"
	"time"
)

// FuzzParseRefresh feeds arbitrary strings to the refresh parser.
// Invalid inputs must be rejected with an error and never panic.
func FuzzParseRefresh(f *testing.F) {
	mgr, err := NewManager(Config{
		AccessTTL:     5 * time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodHS256,
		AccessKeys:    Keys{Private: []byte(strings.Repeat("a", 32))},
		RefreshKeys:   Keys{Private: []byte(strings.Repeat("r", 32))},
		Issuer:        "fuzz-test",
	})
	if err != nil {
		f.Fatal(err)
	}

	valid, _, err := mgr.CreateRefresh("acct", "rec")
	if err != nil {
		f.Fatal(err)
	}
	f.Add(valid)
	f.Add("")
	f.Add("a.b.c")
	f.Add("eyJhbGciOiJub25lIn0.eyJ1aWQiOiJ4In0.")

	f.Fuzz(func(t *testing.T, token string) {
		claims, err := mgr.ParseRefresh(token)
		if err == nil && (claims == nil || claims.UID == "") {
			t.Fatal("accepted token without claims")
		}
	})
}
