package dedup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/firsthalfhero/OzBargain/internal/domain"
)

// PostgresStore is a seen-set backed by Postgres, for deployments where the
// state file's single-host durability is not enough. It implements the same
// contract as FileStore: stale before lookup, atomic check-and-record, lazy
// eviction on access. A failing database degrades to re-alerting, never to a
// crashed evaluation.
type PostgresStore struct {
	db        *sql.DB
	builder   sq.StatementBuilderType
	maxAge    time.Duration
	retention time.Duration
	logger    *slog.Logger
}

// OpenPostgresStore connects to dsn and ensures the seen_deals table exists.
func OpenPostgresStore(dsn string, maxAge, retention time.Duration, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	if retention <= 0 {
		retention = 2 * maxAge
	}
	if retention < maxAge {
		retention = maxAge
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	s := &PostgresStore{
		db:        db,
		builder:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		maxAge:    maxAge,
		retention: retention,
		logger:    logger,
	}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	const schema = `CREATE TABLE IF NOT EXISTS seen_deals (
		identity_key  TEXT PRIMARY KEY,
		first_seen_at TIMESTAMPTZ NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure seen_deals schema: %w", err)
	}
	return nil
}

// IsNew mirrors FileStore.IsNew. The insert's ON CONFLICT clause makes the
// check-and-record atomic at the database, so concurrent pollers across
// processes cannot both observe New for one key.
func (s *PostgresStore) IsNew(ctx context.Context, identityKey string, publishedAt, now time.Time) domain.DedupDecision {
	if now.Sub(publishedAt) > s.maxAge {
		return domain.DecisionStale
	}

	s.evict(ctx, now)

	res, err := s.builder.
		Insert("seen_deals").
		Columns("identity_key", "first_seen_at").
		Values(identityKey, now).
		Suffix("ON CONFLICT (identity_key) DO NOTHING").
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		s.logger.Error("seen-store insert failed, treating entry as new", "identity_key", identityKey, "error", err)
		return domain.DecisionNew
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		s.logger.Error("seen-store insert result unreadable, treating entry as new", "identity_key", identityKey, "error", err)
		return domain.DecisionNew
	}
	if inserted == 0 {
		return domain.DecisionDuplicate
	}
	return domain.DecisionNew
}

func (s *PostgresStore) evict(ctx context.Context, now time.Time) {
	_, err := s.builder.
		Delete("seen_deals").
		Where(sq.Lt{"first_seen_at": now.Add(-s.retention)}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		s.logger.Error("seen-store eviction failed", "error", err)
	}
}

// Close releases the database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
