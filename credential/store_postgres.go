package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/saraha-app/sessionkit/credential/migrations"
)

const pgUniqueViolation = "23505"

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store, Sweeper and Blacklist on PostgreSQL.
//
// Update serializes writers of one account with SELECT ... FOR UPDATE on the
// account row; the ledger rows are rewritten inside the same transaction.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a store using pool. Call RunMigrations first.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// RunMigrations applies the embedded schema with goose.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Create implements Store. The row, any pending challenge and the ledger are
// written in one transaction.
func (s *PostgresStore) Create(ctx context.Context, acct *Account) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return unavailable(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO accounts (
			id, username, username_key, email, password_hash,
			verified, is_active, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, acct.ID, acct.Username, acct.UsernameKey(), acct.Email, acct.PasswordHash,
		acct.Verified, acct.IsActive, acct.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicate
	}
	if err != nil {
		return unavailable(err)
	}

	if err := saveAccount(ctx, tx, acct); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

// GetByID implements Store.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Account, error) {
	return loadAccount(ctx, s.pool, "id = $1", id, false)
}

// GetByEmail implements Store.
func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return loadAccount(ctx, s.pool, "email = $1", NormalizeEmail(email), false)
}

// Update implements Store.
func (s *PostgresStore) Update(ctx context.Context, id string, fn UpdateFunc) (*Account, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	acct, err := loadAccount(ctx, tx, "id = $1", id, true)
	if err != nil {
		return nil, err
	}

	changed, fnErr := fn(acct)
	if !changed {
		return acct, fnErr
	}

	if err := saveAccount(ctx, tx, acct); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, unavailable(err)
	}
	return acct, fnErr
}

// SweepExpiredRefresh implements Sweeper.
func (s *PostgresStore) SweepExpiredRefresh(ctx context.Context, now time.Time) (int, error) {
	return s.sweepRefresh(ctx, `NOT revoked AND expires_at <= $1`, now)
}

// SweepRevokedRefresh implements Sweeper.
func (s *PostgresStore) SweepRevokedRefresh(ctx context.Context) (int, error) {
	return s.sweepRefresh(ctx, `revoked`)
}

// sweepRefresh deletes ledger rows matching cond while holding the row lock
// of every affected account, so a concurrent Update cannot write a swept
// record back. cond uses placeholders $1..$n for args.
func (s *PostgresStore) sweepRefresh(ctx context.Context, cond string, args ...any) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, unavailable(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT id FROM accounts
		WHERE id IN (SELECT account_id FROM refresh_tokens WHERE `+cond+`)
		ORDER BY id
		FOR UPDATE
	`, args...)
	if err != nil {
		return 0, unavailable(err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return 0, unavailable(err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	del := fmt.Sprintf(`DELETE FROM refresh_tokens WHERE %s AND account_id = ANY($%d)`, cond, len(args)+1)
	tag, err := tx.Exec(ctx, del, append(args, ids)...)
	if err != nil {
		return 0, unavailable(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, unavailable(err)
	}
	return int(tag.RowsAffected()), nil
}

// Add implements Blacklist.
func (s *PostgresStore) Add(ctx context.Context, entry BlacklistEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO access_token_blacklist (fingerprint, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (fingerprint)
		DO UPDATE SET expires_at = GREATEST(access_token_blacklist.expires_at, EXCLUDED.expires_at)
	`, entry.Fingerprint, entry.ExpiresAt)
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// Contains implements Blacklist.
func (s *PostgresStore) Contains(ctx context.Context, fingerprint string, now time.Time) (bool, error) {
	var found bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM access_token_blacklist
			WHERE fingerprint = $1 AND expires_at > $2
		)
	`, fingerprint, now).Scan(&found)
	if err != nil {
		return false, unavailable(err)
	}
	return found, nil
}

// SweepExpired implements Blacklist.
func (s *PostgresStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM access_token_blacklist WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, unavailable(err)
	}
	return int(tag.RowsAffected()), nil
}

func loadAccount(ctx context.Context, q querier, where string, arg any, forUpdate bool) (*Account, error) {
	query := `
		SELECT
			id, username, email, password_hash, verified, is_active,
			otp_digest, otp_purpose, otp_issued_at, otp_expires_at, otp_attempts,
			created_at, last_login_at
		FROM accounts
		WHERE ` + where
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		acct       Account
		otpDigest  *string
		otpPurpose *string
		otpIssued  *time.Time
		otpExpires *time.Time
		attempts   int
	)
	err := q.QueryRow(ctx, query, arg).Scan(
		&acct.ID,
		&acct.Username,
		&acct.Email,
		&acct.PasswordHash,
		&acct.Verified,
		&acct.IsActive,
		&otpDigest,
		&otpPurpose,
		&otpIssued,
		&otpExpires,
		&attempts,
		&acct.CreatedAt,
		&acct.LastLoginAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}
	if otpDigest != nil && otpPurpose != nil && otpIssued != nil && otpExpires != nil {
		acct.Challenge = &Challenge{
			Digest:    *otpDigest,
			Purpose:   Purpose(*otpPurpose),
			IssuedAt:  *otpIssued,
			ExpiresAt: *otpExpires,
			Attempts:  attempts,
		}
	}

	rows, err := q.Query(ctx, `
		SELECT id, token_hash, issued_at, expires_at, revoked, user_agent, origin_ip
		FROM refresh_tokens
		WHERE account_id = $1
		ORDER BY position
	`, acct.ID)
	if err != nil {
		return nil, unavailable(err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (RefreshRecord, error) {
		var rec RefreshRecord
		err := row.Scan(&rec.ID, &rec.Hash, &rec.IssuedAt, &rec.ExpiresAt, &rec.Revoked, &rec.UserAgent, &rec.OriginIP)
		return rec, err
	})
	if err != nil {
		return nil, unavailable(err)
	}
	if len(records) > 0 {
		acct.Ledger.Records = records
	}

	return &acct, nil
}

func saveAccount(ctx context.Context, tx pgx.Tx, acct *Account) error {
	var (
		otpDigest, otpPurpose *string
		otpIssued, otpExpires *time.Time
		attempts              int
	)
	if c := acct.Challenge; c != nil {
		purpose := string(c.Purpose)
		otpDigest, otpPurpose = &c.Digest, &purpose
		otpIssued, otpExpires = &c.IssuedAt, &c.ExpiresAt
		attempts = c.Attempts
	}

	batch := &pgx.Batch{}
	batch.Queue(`
		UPDATE accounts SET
			password_hash = $2,
			verified = $3,
			is_active = $4,
			otp_digest = $5,
			otp_purpose = $6,
			otp_issued_at = $7,
			otp_expires_at = $8,
			otp_attempts = $9,
			last_login_at = $10
		WHERE id = $1
	`, acct.ID, acct.PasswordHash, acct.Verified, acct.IsActive,
		otpDigest, otpPurpose, otpIssued, otpExpires, attempts, acct.LastLoginAt)

	ids := make([]string, len(acct.Ledger.Records))
	for i, rec := range acct.Ledger.Records {
		ids[i] = rec.ID
	}
	batch.Queue(`DELETE FROM refresh_tokens WHERE account_id = $1 AND NOT (id = ANY($2))`, acct.ID, ids)

	for i, rec := range acct.Ledger.Records {
		batch.Queue(`
			INSERT INTO refresh_tokens (
				id, account_id, position, token_hash,
				issued_at, expires_at, revoked, user_agent, origin_ip
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				position = EXCLUDED.position,
				revoked = EXCLUDED.revoked
		`, rec.ID, acct.ID, i, rec.Hash, rec.IssuedAt, rec.ExpiresAt, rec.Revoked, rec.UserAgent, rec.OriginIP)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return unavailable(err)
	}
	return nil
}
