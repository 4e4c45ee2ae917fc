package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the JWS algorithm used for both token kinds.
type SigningMethod string

const (
	// MethodHS256 signs with HMAC-SHA256 shared secrets.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with Ed25519 key pairs.
	MethodEd25519 SigningMethod = "ed25519"
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"

	minHMACKeyBytes = 32
)

var (
	// ErrInvalidToken wraps every parse or validation failure.
	ErrInvalidToken = errors.New("jwt: invalid token")
	// ErrWrongTokenType is returned when an access token is presented as a refresh token or vice versa.
	ErrWrongTokenType = errors.New("jwt: wrong token type")
)

// Keys holds the signing material for one token kind. For HS256 only
// Private is used, as the shared secret. For Ed25519 Private may be a raw
// key or PEM, and Public is derived from Private when empty.
type Keys struct {
	Private []byte
	Public  []byte
}

// Config configures a Manager.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod SigningMethod
	AccessKeys    Keys
	RefreshKeys   Keys
	Issuer        string
	Audience      string
	Leeway        time.Duration
	MaxFutureIAT  time.Duration
	// Now overrides the clock used for issuing and validating tokens.
	Now func() time.Time
}

// Claims are the claims carried by both token kinds. RegisteredClaims.ID is
// the token identifier; for refresh tokens it names the ledger record.
type Claims struct {
	UID  string `json:"uid"`
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// Manager issues and parses tokens. It is immutable after construction.
type Manager struct {
	config  Config
	access  keyset
	refresh keyset
}

type keyset struct {
	sign   interface{}
	verify interface{}
}

// NewManager validates cfg and resolves its keys.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("jwt: invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("jwt: invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("jwt: invalid MaxFutureIAT configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	access, err := resolveKeys(cfg.SigningMethod, cfg.AccessKeys)
	if err != nil {
		return nil, fmt.Errorf("jwt: access keys: %w", err)
	}
	refresh, err := resolveKeys(cfg.SigningMethod, cfg.RefreshKeys)
	if err != nil {
		return nil, fmt.Errorf("jwt: refresh keys: %w", err)
	}
	if cfg.SigningMethod == MethodHS256 && string(cfg.AccessKeys.Private) == string(cfg.RefreshKeys.Private) {
		return nil, errors.New("jwt: access and refresh secrets must differ")
	}

	return &Manager{config: cfg, access: access, refresh: refresh}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.config.AccessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.config.RefreshTTL }

// CreateAccess signs an access token for uid with token identifier jti.
func (m *Manager) CreateAccess(uid, jti string) (string, *Claims, error) {
	return m.create(typeAccess, uid, jti, m.config.AccessTTL, m.access)
}

// CreateRefresh signs a refresh token for uid bound to the ledger record recordID.
func (m *Manager) CreateRefresh(uid, recordID string) (string, *Claims, error) {
	return m.create(typeRefresh, uid, recordID, m.config.RefreshTTL, m.refresh)
}

// ParseAccess verifies an access token's signature, expiry, issuer and type.
func (m *Manager) ParseAccess(token string) (*Claims, error) {
	return m.parse(token, typeAccess, m.access, true)
}

// ParseRefresh verifies a refresh token's signature, expiry, issuer and type.
func (m *Manager) ParseRefresh(token string) (*Claims, error) {
	return m.parse(token, typeRefresh, m.refresh, true)
}

// ParseAccessSignature verifies only the signature and type of an access
// token. Expired tokens are accepted; logout uses it to revoke tokens that
// may be close to their natural expiry.
func (m *Manager) ParseAccessSignature(token string) (*Claims, error) {
	return m.parse(token, typeAccess, m.access, false)
}

func (m *Manager) create(kind, uid, jti string, ttl time.Duration, keys keyset) (string, *Claims, error) {
	if uid == "" || jti == "" {
		return "", nil, errors.New("jwt: uid and jti are required")
	}

	now := m.config.Now()
	claims := &Claims{
		UID:  uid,
		Type: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   uid,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	signed, err := jwt.NewWithClaims(m.method(), claims).SignedString(keys.sign)
	if err != nil {
		return "", nil, fmt.Errorf("jwt: sign %s token: %w", kind, err)
	}
	return signed, claims, nil
}

func (m *Manager) parse(token, kind string, keys keyset, validateClaims bool) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithTimeFunc(m.config.Now),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}
	if !validateClaims {
		options = append(options, jwt.WithoutClaimsValidation())
	}

	claims := &Claims{}
	parsed, err := jwt.NewParser(options...).ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return keys.verify, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != kind {
		return nil, ErrWrongTokenType
	}
	if claims.UID == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing required claims", ErrInvalidToken)
	}
	if validateClaims && claims.IssuedAt != nil {
		if claims.IssuedAt.Time.After(m.config.Now().Add(m.config.MaxFutureIAT)) {
			return nil, fmt.Errorf("%w: iat too far in the future", ErrInvalidToken)
		}
	}

	return claims, nil
}

func (m *Manager) method() jwt.SigningMethod {
	if m.config.SigningMethod == MethodHS256 {
		return jwt.SigningMethodHS256
	}
	return jwt.SigningMethodEdDSA
}

func resolveKeys(method SigningMethod, keys Keys) (keyset, error) {
	switch method {
	case MethodHS256:
		if len(keys.Private) < minHMACKeyBytes {
			return keyset{}, fmt.Errorf("hs256 secret must be at least %d bytes", minHMACKeyBytes)
		}
		return keyset{sign: keys.Private, verify: keys.Private}, nil
	case MethodEd25519:
		priv, err := parseEdPrivateKey(keys.Private)
		if err != nil {
			return keyset{}, err
		}
		pub := priv.Public().(ed25519.PublicKey)
		if len(keys.Public) > 0 {
			if pub, err = parseEdPublicKey(keys.Public); err != nil {
				return keyset{}, err
			}
		}
		return keyset{sign: priv, verify: pub}, nil
	default:
		return keyset{}, errors.New("unsupported signing method")
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
