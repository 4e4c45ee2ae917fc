package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix     = "sk"
	defaultRedisMaxRetries = 16
	minBlacklistTTL        = time.Second
)

const createAccountScript = `
if redis.call("EXISTS", KEYS[1]) == 1 or redis.call("EXISTS", KEYS[2]) == 1 or redis.call("EXISTS", KEYS[3]) == 1 then
  return 0
end
redis.call("SET", KEYS[1], ARGV[2])
redis.call("SET", KEYS[2], ARGV[1])
redis.call("SET", KEYS[3], ARGV[1])
return 1
`

var createAccountLua = redis.NewScript(createAccountScript)

// RedisOption customizes a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisPrefix sets the key namespace. The default is "sk".
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithRedisClock overrides the clock used to derive blacklist key TTLs.
func WithRedisClock(now func() time.Time) RedisOption {
	return func(s *RedisStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRedisMaxRetries bounds optimistic-transaction retries in Update.
func WithRedisMaxRetries(n int) RedisOption {
	return func(s *RedisStore) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// RedisStore keeps each account as one JSON document under
// <prefix>:acct:<id>, with lookup keys for the normalized email and
// username. Two shared indexes let the sweeps find accounts with expired
// or revoked refresh records without scanning the keyspace.
type RedisStore struct {
	redis      redis.UniversalClient
	prefix     string
	maxRetries int
	now        func() time.Time
}

// NewRedisStore returns a store backed by client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		redis:      client,
		prefix:     defaultRedisPrefix,
		maxRetries: defaultRedisMaxRetries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create implements Store.
func (s *RedisStore) Create(ctx context.Context, acct *Account) error {
	payload, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("%w: encode account: %v", ErrCorrupt, err)
	}

	keys := []string{s.accountKey(acct.ID), s.emailKey(acct.Email), s.usernameKey(acct.UsernameKey())}
	created, err := createAccountLua.Run(ctx, s.redis, keys, acct.ID, payload).Int64()
	if err != nil {
		return unavailable(err)
	}
	if created == 0 {
		return ErrDuplicate
	}
	return nil
}

// GetByID implements Store.
func (s *RedisStore) GetByID(ctx context.Context, id string) (*Account, error) {
	data, err := s.redis.Get(ctx, s.accountKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return decodeAccount(data)
}

// GetByEmail implements Store.
func (s *RedisStore) GetByEmail(ctx context.Context, email string) (*Account, error) {
	id, err := s.redis.Get(ctx, s.emailKey(NormalizeEmail(email))).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return s.GetByID(ctx, id)
}

// Update implements Store using WATCH on the account key. A transaction that
// loses a race is retried against the fresh document.
func (s *RedisStore) Update(ctx context.Context, id string, fn UpdateFunc) (*Account, error) {
	key := s.accountKey(id)

	var (
		result *Account
		fnErr  error
	)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return unavailable(err)
		}
		acct, err := decodeAccount(data)
		if err != nil {
			return err
		}

		changed, err := fn(acct)
		fnErr = err
		result = acct
		if !changed {
			return nil
		}

		payload, err := json.Marshal(acct)
		if err != nil {
			return fmt.Errorf("%w: encode account: %v", ErrCorrupt, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			s.queueLedgerIndexes(ctx, pipe, acct)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.redis.Watch(ctx, txf, key)
		switch {
		case err == nil:
			return result, fnErr
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrCorrupt), errors.Is(err, ErrUnavailable):
			return nil, err
		default:
			return nil, unavailable(err)
		}
	}
	return nil, ErrConflict
}

// SweepExpiredRefresh implements Sweeper.
func (s *RedisStore) SweepExpiredRefresh(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.redis.ZRangeByScore(ctx, s.expiryIndexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, unavailable(err)
	}

	return s.sweepAccounts(ctx, ids, func(acct *Account) int {
		return acct.Ledger.PruneExpired(now)
	})
}

// SweepRevokedRefresh implements Sweeper.
func (s *RedisStore) SweepRevokedRefresh(ctx context.Context) (int, error) {
	ids, err := s.redis.SMembers(ctx, s.revokedIndexKey()).Result()
	if err != nil {
		return 0, unavailable(err)
	}

	return s.sweepAccounts(ctx, ids, func(acct *Account) int {
		return acct.Ledger.PruneRevoked()
	})
}

func (s *RedisStore) sweepAccounts(ctx context.Context, ids []string, prune func(*Account) int) (int, error) {
	var (
		total int
		errs  []error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		removed := 0
		_, err := s.Update(ctx, id, func(acct *Account) (bool, error) {
			removed = prune(acct)
			return removed > 0, nil
		})
		if errors.Is(err, ErrNotFound) {
			s.dropFromIndexes(ctx, id)
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("account %s: %w", id, err))
			continue
		}
		total += removed
	}
	return total, errors.Join(errs...)
}

// Add implements Blacklist. The key carries a TTL matching the entry so
// Redis reclaims it even if no sweep runs.
func (s *RedisStore) Add(ctx context.Context, entry BlacklistEntry) error {
	ttl := entry.ExpiresAt.Sub(s.now())
	if ttl < minBlacklistTTL {
		ttl = minBlacklistTTL
	}
	expiresMillis := entry.ExpiresAt.UnixMilli()

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.blacklistKey(entry.Fingerprint), expiresMillis, ttl)
		pipe.ZAdd(ctx, s.blacklistIndexKey(), redis.Z{Score: float64(expiresMillis), Member: entry.Fingerprint})
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// Contains implements Blacklist.
func (s *RedisStore) Contains(ctx context.Context, fingerprint string, now time.Time) (bool, error) {
	expiresMillis, err := s.redis.Get(ctx, s.blacklistKey(fingerprint)).Int64()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, unavailable(err)
	}
	return now.UnixMilli() < expiresMillis, nil
}

// SweepExpired implements Blacklist.
func (s *RedisStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	fingerprints, err := s.redis.ZRangeByScore(ctx, s.blacklistIndexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, unavailable(err)
	}
	if len(fingerprints) == 0 {
		return 0, nil
	}

	keys := make([]string, len(fingerprints))
	members := make([]interface{}, len(fingerprints))
	for i, fp := range fingerprints {
		keys[i] = s.blacklistKey(fp)
		members[i] = fp
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, s.blacklistIndexKey(), members...)
		return nil
	})
	if err != nil {
		return 0, unavailable(err)
	}
	return len(fingerprints), nil
}

func (s *RedisStore) queueLedgerIndexes(ctx context.Context, pipe redis.Pipeliner, acct *Account) {
	if next, ok := acct.Ledger.NextExpiry(); ok {
		pipe.ZAdd(ctx, s.expiryIndexKey(), redis.Z{Score: float64(next.UnixMilli()), Member: acct.ID})
	} else {
		pipe.ZRem(ctx, s.expiryIndexKey(), acct.ID)
	}
	if acct.Ledger.HasRevoked() {
		pipe.SAdd(ctx, s.revokedIndexKey(), acct.ID)
	} else {
		pipe.SRem(ctx, s.revokedIndexKey(), acct.ID)
	}
}

// dropFromIndexes forgets an account that no longer exists.
func (s *RedisStore) dropFromIndexes(ctx context.Context, id string) {
	s.redis.ZRem(ctx, s.expiryIndexKey(), id)
	s.redis.SRem(ctx, s.revokedIndexKey(), id)
}

func (s *RedisStore) accountKey(id string) string { return s.prefix + ":acct:" + id }
func (s *RedisStore) emailKey(email string) string { return s.prefix + ":email:" + email }
func (s *RedisStore) usernameKey(key string) string { return s.prefix + ":username:" + key }
func (s *RedisStore) expiryIndexKey() string { return s.prefix + ":ledger:expiry" }
func (s *RedisStore) revokedIndexKey() string { return s.prefix + ":ledger:revoked" }
func (s *RedisStore) blacklistKey(fp string) string { return s.prefix + ":bl:" + fp }
func (s *RedisStore) blacklistIndexKey() string { return s.prefix + ":bl:expiry" }

func decodeAccount(data []byte) (*Account, error) {
	var acct Account
	if err := json.Unmarshal(data, &acct); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &acct, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
