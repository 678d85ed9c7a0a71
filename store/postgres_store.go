package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mkrylov/channelpass-bot/types"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = buildPostgresDSNFromEnv()
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{pool: pool}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func buildPostgresDSNFromEnv() string {
	host := strings.TrimSpace(os.Getenv("POSTGRES_HOST"))
	if host == "" {
		host = "localhost"
	}
	port := strings.TrimSpace(os.Getenv("POSTGRES_PORT"))
	if port == "" {
		port = "5432"
	}
	db := strings.TrimSpace(os.Getenv("POSTGRES_DB"))
	if db == "" {
		db = "channelpass"
	}
	user := strings.TrimSpace(os.Getenv("POSTGRES_USER"))
	if user == "" {
		user = "channelpass"
	}
	pass := os.Getenv("POSTGRES_PASSWORD")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", urlEscape(user), urlEscape(pass), host, port, db)
}

func urlEscape(s string) string {
	r := strings.NewReplacer(
		"%", "%25",
		":", "%3A",
		"/", "%2F",
		"@", "%40",
		"?", "%3F",
		"#", "%23",
		"[", "%5B",
		"]", "%5D",
	)
	return r.Replace(s)
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDB(*s.pool.Config().ConnConfig)
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "migrations")
}

func (s *PostgresStore) UpsertProfile(ctx context.Context, u types.User) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
INSERT INTO users (user_id, chat_id, username, first_name, last_name)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id) DO UPDATE SET
  chat_id = EXCLUDED.chat_id,
  username = EXCLUDED.username,
  first_name = EXCLUDED.first_name,
  last_name = EXCLUDED.last_name,
  updated_at = NOW();
`, u.UserID, u.ChatID, strings.TrimSpace(u.Username), strings.TrimSpace(u.FirstName), strings.TrimSpace(u.LastName))
	return err
}

const userColumns = `
user_id, chat_id, username, first_name, last_name,
subscription, expires_at, in_channel,
pending_payment_id, pending_plan, pending_currency, pending_amount, pending_created_at,
created_at, updated_at`

func scanUser(row pgx.Row) (*types.User, error) {
	var (
		u                types.User
		pendingID        *string
		pendingPlan      *string
		pendingCurrency  *string
		pendingAmount    *float64
		pendingCreatedAt *time.Time
	)
	err := row.Scan(
		&u.UserID, &u.ChatID, &u.Username, &u.FirstName, &u.LastName,
		&u.Subscription, &u.ExpiresAt, &u.InChannel,
		&pendingID, &pendingPlan, &pendingCurrency, &pendingAmount, &pendingCreatedAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if pendingID != nil {
		u.Pending = &types.PendingPayment{
			PaymentID: *pendingID,
			Plan:      deref(pendingPlan),
			Currency:  types.Currency(deref(pendingCurrency)),
			CreatedAt: derefTime(pendingCreatedAt),
		}
		if pendingAmount != nil {
			u.Pending.Amount = *pendingAmount
		}
	}
	return &u, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func (s *PostgresStore) GetUser(ctx context.Context, userID int64) (*types.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	u, err := scanUser(s.pool.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE user_id = $1
`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (s *PostgresStore) SetPendingPayment(ctx context.Context, userID int64, p types.PendingPayment) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
INSERT INTO users (user_id, chat_id, pending_payment_id, pending_plan, pending_currency, pending_amount, pending_created_at)
VALUES ($1, $1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id) DO UPDATE SET
  pending_payment_id = EXCLUDED.pending_payment_id,
  pending_plan = EXCLUDED.pending_plan,
  pending_currency = EXCLUDED.pending_currency,
  pending_amount = EXCLUDED.pending_amount,
  pending_created_at = EXCLUDED.pending_created_at,
  updated_at = NOW();
`, userID, p.PaymentID, p.Plan, string(p.Currency), p.Amount, p.CreatedAt)
	return err
}

func (s *PostgresStore) FindTransactionByHash(ctx context.Context, hash string) (*types.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var t types.Transaction
	err := s.pool.QueryRow(ctx, `
SELECT id, user_id, hash, payment_id, plan, currency, amount, status, created_at
FROM transactions
WHERE hash = $1
`, hash).Scan(&t.ID, &t.UserID, &t.Hash, &t.PaymentID, &t.Plan, &t.Currency, &t.Amount, &t.Status, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ConditionalActivate is the single mutual-exclusion point of the whole
// system: the UPDATE only fires while paymentID is still the user's current
// pending payment, and the transactions hash index rejects replays. Both run
// in one database transaction, so a lost race leaves no partial state.
func (s *PostgresStore) ConditionalActivate(ctx context.Context, userID int64, paymentID string, plan string, months int, rec types.Transaction) (*time.Time, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var newExpiry time.Time
	err = tx.QueryRow(ctx, `
UPDATE users
SET subscription = $3,
    expires_at = GREATEST(COALESCE(expires_at, NOW()), NOW()) + make_interval(months => $4),
    pending_payment_id = NULL,
    pending_plan = NULL,
    pending_currency = NULL,
    pending_amount = NULL,
    pending_created_at = NULL,
    updated_at = NOW()
WHERE user_id = $1 AND pending_payment_id = $2
RETURNING expires_at
`, userID, paymentID, plan, months).Scan(&newExpiry)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	tag, err := tx.Exec(ctx, `
INSERT INTO transactions (user_id, hash, payment_id, plan, currency, amount, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (hash) DO NOTHING
`, rec.UserID, rec.Hash, rec.PaymentID, rec.Plan, string(rec.Currency), rec.Amount, string(rec.Status))
	if err != nil {
		return nil, false, err
	}
	if tag.RowsAffected() == 0 {
		// Hash landed for someone else between dedup check and now.
		return nil, false, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return &newExpiry, true, nil
}

func (s *PostgresStore) RecordAwaitingReview(ctx context.Context, userID int64, paymentID string, rec types.Transaction) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
UPDATE users
SET pending_payment_id = NULL,
    pending_plan = NULL,
    pending_currency = NULL,
    pending_amount = NULL,
    pending_created_at = NULL,
    updated_at = NOW()
WHERE user_id = $1 AND pending_payment_id = $2
`, userID, paymentID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	tag, err = tx.Exec(ctx, `
INSERT INTO transactions (user_id, hash, payment_id, plan, currency, amount, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (hash) DO NOTHING
`, rec.UserID, rec.Hash, rec.PaymentID, rec.Plan, string(rec.Currency), rec.Amount, string(rec.Status))
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PostgresStore) ExpireSubscription(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	// expires_at is kept as historical record.
	_, err := s.pool.Exec(ctx, `
UPDATE users
SET subscription = '', updated_at = NOW()
WHERE user_id = $1
`, userID)
	return err
}

func (s *PostgresStore) FindExpiredActive(ctx context.Context, now time.Time) ([]*types.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	rows, err := s.pool.Query(ctx, `
SELECT `+userColumns+`
FROM users
WHERE subscription <> '' AND expires_at IS NOT NULL AND expires_at < $1
`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SetInChannel(ctx context.Context, userID int64, in bool) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
UPDATE users
SET in_channel = $2, updated_at = NOW()
WHERE user_id = $1
`, userID, in)
	return err
}
