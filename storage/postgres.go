package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"transfer_agents/models"
)

// duplicate_column
const pgDuplicateColumn = "42701"

// pgxPool is the subset of *pgxpool.Pool the store uses.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

type PostgresStore struct {
	pool pgxPool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 4
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func newPostgresStoreWithPool(pool pgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transfers (
			id BIGSERIAL PRIMARY KEY,
			player TEXT NOT NULL,
			from_club TEXT,
			to_club TEXT,
			fee TEXT,
			type TEXT,
			player_url TEXT
		)`)
	if err != nil {
		return fmt.Errorf("create transfers: %w", err)
	}

	_, err = s.pool.Exec(ctx, `ALTER TABLE transfers ADD COLUMN agent_name TEXT`)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgDuplicateColumn {
			log.Printf("Migrate: agent_name column already present")
			return nil
		}
		return fmt.Errorf("add agent_name: %w", err)
	}
	log.Printf("Migrate: added agent_name column")
	return nil
}

var copyColumns = []string{"player", "from_club", "to_club", "fee", "type", "player_url", "agent_name"}

func (s *PostgresStore) ReplaceAll(ctx context.Context, records []models.TransferRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM transfers`); err != nil {
		tx.Rollback(ctx)
		return 0, fmt.Errorf("clear transfers: %w", err)
	}

	rows := make([][]any, 0, len(records))
	for _, t := range records {
		rows = append(rows, []any{t.Player, t.FromClub, t.ToClub, t.Fee, string(t.Type),
			nullIfEmpty(t.PlayerURL), t.Agent.NullString()})
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"transfers"}, copyColumns, pgx.CopyFromRows(rows))
	if err != nil {
		tx.Rollback(ctx)
		return 0, fmt.Errorf("copy transfers: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return int(n), nil
}

func (s *PostgresStore) UpdateAgent(ctx context.Context, id int64, outcome models.AgentOutcome) error {
	_, err := s.pool.Exec(ctx, `UPDATE transfers SET agent_name = $1 WHERE id = $2`, outcome.NullString(), id)
	return err
}

func (s *PostgresStore) SelectUnenriched(ctx context.Context, limit int, policy models.RetryPolicy) ([]models.TransferRecord, error) {
	where, args := unenrichedWhere(policy, func(n int) string { return fmt.Sprintf("$%d", n) })
	query := fmt.Sprintf(`SELECT %s FROM transfers WHERE (%s) AND id > $%d ORDER BY id LIMIT $%d`,
		transferColumns, where, len(args)+1, len(args)+2)

	return selectRetryable(ctx, limit, policy, func(ctx context.Context, afterID int64, n int) ([]models.TransferRecord, error) {
		return s.query(ctx, query, append(args[:len(args):len(args)], afterID, n)...)
	})
}

func (s *PostgresStore) All(ctx context.Context) ([]models.TransferRecord, error) {
	return s.query(ctx, `SELECT `+transferColumns+` FROM transfers ORDER BY id`)
}

func (s *PostgresStore) Peek(ctx context.Context, n int) ([]models.TransferRecord, error) {
	return s.query(ctx, `SELECT `+transferColumns+` FROM transfers ORDER BY id LIMIT $1`, n)
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]models.TransferRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.TransferRecord
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, t)
	}
	return records, rows.Err()
}
