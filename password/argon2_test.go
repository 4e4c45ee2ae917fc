package password

import (
	"strings"
	"testing"
)

func fastConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestHashAndVerify(t *testing.T) {
	hasher, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	digest, err := hasher.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(digest, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", digest)
	}
	if strings.Contains(digest, "secret1") {
		t.Fatal("digest must not contain the plaintext")
	}
	if !hasher.Verify("secret1", digest) {
		t.Fatal("expected verification to succeed")
	}
	if hasher.Verify("secret2", digest) {
		t.Fatal("expected wrong secret to fail")
	}
}

func TestHashIsSalted(t *testing.T) {
	hasher, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	a, _ := hasher.Hash("same-secret")
	b, _ := hasher.Hash("same-secret")
	if a == b {
		t.Fatal("expected distinct digests for the same secret")
	}
}

func TestHashAcceptsEmptyAndShortSecrets(t *testing.T) {
	hasher, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	for _, secret := range []string{"", "a", "пароль"} {
		digest, err := hasher.Hash(secret)
		if err != nil {
			t.Fatalf("Hash(%q) error: %v", secret, err)
		}
		if digest == "" {
			t.Fatalf("Hash(%q) returned empty digest", secret)
		}
		if !hasher.Verify(secret, digest) {
			t.Fatalf("Verify(%q) failed", secret)
		}
	}
}

func TestHashRejectsOversizedSecret(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxSecretBytes = 32
	hasher, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	if _, err := hasher.Hash(strings.Repeat("x", 33)); err != ErrSecretTooLong {
		t.Fatalf("expected ErrSecretTooLong, got %v", err)
	}
	if _, err := hasher.Hash(strings.Repeat("x", 32)); err != nil {
		t.Fatalf("unexpected error at the bound: %v", err)
	}
}

func TestVerifyMalformedDigestReturnsFalse(t *testing.T) {
	hasher, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	cases := []string{
		"",
		"plain",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=1,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=8192,t=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$",
	}
	for _, digest := range cases {
		if hasher.Verify("anything", digest) {
			t.Fatalf("expected malformed digest %q to fail verification", digest)
		}
	}
}

func TestNeedsUpgrade(t *testing.T) {
	oldHasher, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2(old) error: %v", err)
	}
	digest, err := oldHasher.Hash("upgrade-me")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	stronger := fastConfig()
	stronger.Time = 2
	newHasher, err := NewArgon2(stronger)
	if err != nil {
		t.Fatalf("NewArgon2(new) error: %v", err)
	}

	if oldHasher.NeedsUpgrade(digest) {
		t.Fatal("digest produced with current parameters must not need upgrade")
	}
	if !newHasher.NeedsUpgrade(digest) {
		t.Fatal("expected weaker digest to need upgrade")
	}
	if !newHasher.Verify("upgrade-me", digest) {
		t.Fatal("stronger hasher must still verify older digests")
	}
	if !newHasher.NeedsUpgrade("garbage") {
		t.Fatal("malformed digest should need upgrade")
	}
}

func TestNewArgon2RejectsWeakConfig(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.Memory = 1024 },
		func(c *Config) { c.Time = 0 },
		func(c *Config) { c.Parallelism = 0 },
		func(c *Config) { c.SaltLength = 8 },
		func(c *Config) { c.KeyLength = 8 },
		func(c *Config) { c.MaxSecretBytes = -1 },
	}
	for i, mutate := range cases {
		cfg := fastConfig()
		mutate(&cfg)
		if _, err := NewArgon2(cfg); err == nil {
			t.Fatalf("case %d: expected config error", i)
		}
	}
}
