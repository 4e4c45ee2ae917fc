package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"

	// DefaultMaxSecretBytes bounds the input accepted by Hash and Verify.
	DefaultMaxSecretBytes = 4096
)

var (
	// ErrSecretTooLong is returned by Hash for inputs above Config.MaxSecretBytes.
	ErrSecretTooLong = errors.New("password: secret exceeds maximum length")
	// ErrInvalidUTF8 is returned by Hash for inputs that are not valid UTF-8.
	ErrInvalidUTF8 = errors.New("password: secret is not valid utf-8")

	errMalformedDigest = errors.New("password: malformed digest")
)

// Config holds the Argon2id cost parameters.
//
// Memory is expressed in KiB. MaxSecretBytes defaults to DefaultMaxSecretBytes when zero.
type Config struct {
	Memory         uint32
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MaxSecretBytes int
}

// DefaultConfig returns the production cost parameters (64 MiB, t=3, p=2).
func DefaultConfig() Config {
	return Config{
		Memory:         64 * 1024,
		Time:           3,
		Parallelism:    2,
		SaltLength:     16,
		KeyLength:      32,
		MaxSecretBytes: DefaultMaxSecretBytes,
	}
}

// Argon2 hashes and verifies secrets. It is safe for concurrent use.
type Argon2 struct {
	config Config
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

// NewArgon2 validates cfg and returns a hasher bound to it.
func NewArgon2(cfg Config) (*Argon2, error) {
	if cfg.MaxSecretBytes == 0 {
		cfg.MaxSecretBytes = DefaultMaxSecretBytes
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return &Argon2{config: cfg}, nil
}

// Hash returns a salted PHC digest of secret.
//
// Hash fails only for oversized or non-UTF-8 input, or when the system
// random source cannot be read.
func (a *Argon2) Hash(secret string) (string, error) {
	if len(secret) > a.config.MaxSecretBytes {
		return "", ErrSecretTooLong
	}
	if !utf8.ValidString(secret) {
		return "", ErrInvalidUTF8
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("password: read salt: %w", err)
	}

	key := argon2.IDKey([]byte(secret), salt, a.config.Time, a.config.Memory, a.config.Parallelism, a.config.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		a.config.Memory,
		a.config.Time,
		a.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether secret matches digest.
//
// Malformed or unsupported digests never match. The derived keys are compared
// in constant time.
func (a *Argon2) Verify(secret, digest string) bool {
	if len(secret) > a.config.MaxSecretBytes {
		return false
	}
	parsed, err := parsePHC(digest)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(secret), parsed.salt, parsed.time, parsed.memory, parsed.parallelism, uint32(len(parsed.key)))
	return subtle.ConstantTimeCompare(computed, parsed.key) == 1
}

// NeedsUpgrade reports whether digest was produced with parameters weaker
// than, or different in key length from, the current configuration.
// Malformed digests always need an upgrade.
func (a *Argon2) NeedsUpgrade(digest string) bool {
	parsed, err := parsePHC(digest)
	if err != nil {
		return true
	}

	return a.config.Memory > parsed.memory ||
		a.config.Time > parsed.time ||
		a.config.Parallelism > parsed.parallelism ||
		a.config.KeyLength != uint32(len(parsed.key))
}

func parsePHC(digest string) (*phc, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return nil, errMalformedDigest
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") || version != argon2.Version {
		return nil, errMalformedDigest
	}

	out := &phc{}
	if err := out.parseParams(parts[3]); err != nil {
		return nil, err
	}

	out.salt, err = decodeSegment(parts[4])
	if err != nil || len(out.salt) < int(minSaltLength) {
		return nil, errMalformedDigest
	}
	out.key, err = decodeSegment(parts[5])
	if err != nil || len(out.key) < int(minKeyLength) {
		return nil, errMalformedDigest
	}

	return out, nil
}

func (p *phc) parseParams(segment string) error {
	var seen int
	for _, pair := range strings.Split(segment, ",") {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return errMalformedDigest
		}

		switch name {
		case "m":
			v, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || uint32(v) < minMemoryKB {
				return errMalformedDigest
			}
			p.memory = uint32(v)
		case "t":
			v, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || uint32(v) < minTimeCost {
				return errMalformedDigest
			}
			p.time = uint32(v)
		case "p":
			v, err := strconv.ParseUint(raw, 10, 8)
			if err != nil || uint8(v) < minParallelism {
				return errMalformedDigest
			}
			p.parallelism = uint8(v)
		default:
			return errMalformedDigest
		}
		seen++
	}

	if seen != 3 || p.memory == 0 || p.time == 0 || p.parallelism == 0 {
		return errMalformedDigest
	}
	return nil
}

// decodeSegment accepts both padded and unpadded standard base64.
func decodeSegment(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

func validateConfig(cfg Config) error {
	switch {
	case cfg.Memory < minMemoryKB:
		return fmt.Errorf("password: memory must be >= %d KiB", minMemoryKB)
	case cfg.Time < minTimeCost:
		return errors.New("password: time must be >= 1")
	case cfg.Parallelism < minParallelism:
		return errors.New("password: parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return fmt.Errorf("password: salt length must be >= %d", minSaltLength)
	case cfg.KeyLength < minKeyLength:
		return fmt.Errorf("password: key length must be >= %d", minKeyLength)
	case cfg.MaxSecretBytes < 0:
		return errors.New("password: max secret bytes must not be negative")
	}
	return nil
}
