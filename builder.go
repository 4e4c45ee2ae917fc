package sessionkit

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saraha-app/sessionkit/credential"
	internalaudit "github.com/saraha-app/sessionkit/internal/audit"
	"github.com/saraha-app/sessionkit/internal/rate"
	"github.com/saraha-app/sessionkit/jwt"
	"github.com/saraha-app/sessionkit/notify"
	"github.com/saraha-app/sessionkit/otp"
	"github.com/saraha-app/sessionkit/password"
)

// Builder assembles an Engine. A Builder can be used for a single Build.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	store     credential.Store
	blacklist credential.Blacklist
	notifier  notify.Notifier
	logger    *slog.Logger
	now       func() time.Time
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the Redis client. It backs login throttling and, when no
// store is given, the account store and blacklist.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore sets the account store. If the store also implements
// credential.Blacklist it is used as the blacklist unless WithBlacklist
// overrides it.
func (b *Builder) WithStore(store credential.Store) *Builder {
	b.store = store
	return b
}

// WithBlacklist sets the access-token blacklist.
func (b *Builder) WithBlacklist(bl credential.Blacklist) *Builder {
	b.blacklist = bl
	return b
}

// WithNotifier sets where one-time codes are delivered. Defaults to
// notify.Discard.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithLogger sets the logger. Defaults to slog.Default().
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithClock overrides the time source for tokens, codes and ledger expiry.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithAuditSink sets the audit sink. Events are dispatched asynchronously.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if err := b.config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineConfigInvalid, err)
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, fmt.Errorf("%w: a store or redis client is required", ErrEngineConfigInvalid)
		}
		store = credential.NewRedisStore(b.redis,
			credential.WithRedisPrefix(b.config.Security.RedisPrefix),
			credential.WithRedisClock(now),
		)
	}
	blacklist := b.blacklist
	if blacklist == nil {
		bl, ok := store.(credential.Blacklist)
		if !ok {
			return nil, fmt.Errorf("%w: store does not implement a blacklist; use WithBlacklist", ErrEngineConfigInvalid)
		}
		blacklist = bl
	}

	var limiter *rate.Limiter
	if b.config.Security.EnableLoginRateLimit {
		if b.redis == nil {
			return nil, fmt.Errorf("%w: login rate limit requires a redis client", ErrEngineConfigInvalid)
		}
		limiter = rate.New(b.redis, rate.Config{
			Prefix:           b.config.Security.RedisPrefix,
			MaxLoginAttempts: b.config.Security.MaxLoginAttempts,
			LoginWindow:      b.config.Security.LoginWindow,
			EnableIPThrottle: b.config.Security.EnableIPThrottle,
		})
	}

	hasher, err := password.NewArgon2(b.config.passwordConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineConfigInvalid, err)
	}
	tokens, err := jwt.NewManager(b.config.jwtConfig(now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineConfigInvalid, err)
	}

	notifier := b.notifier
	if notifier == nil {
		notifier = notify.Discard
	}

	e := &Engine{
		config:       b.config,
		store:        store,
		blacklist:    blacklist,
		rateLimiter:  limiter,
		notifier:     notifier,
		logger:       logger,
		now:          now,
		metrics:      NewMetrics(b.config.Metrics),
		passwordHash: hasher,
		jwtManager:   tokens,
		otp: otp.NewManager(otp.Config{
			TTL:         b.config.OTP.TTL,
			Digits:      b.config.OTP.Digits,
			MaxAttempts: b.config.OTP.MaxAttempts,
			Now:         now,
		}),
	}
	if b.config.Audit.Enabled && b.auditSink != nil {
		e.audit = internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    true,
			BufferSize: b.config.Audit.BufferSize,
			DropIfFull: b.config.Audit.DropIfFull,
			Logger:     logger,
		}, b.auditSink)
	}

	b.built = true
	return e, nil
}
