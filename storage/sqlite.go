package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"transfer_agents/models"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database file and brings the schema up to date.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}

	store := &SQLiteStore{db: db}
	if err := store.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates the transfers table and adds agent_name to stores created
// before enrichment existed.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS transfers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		player TEXT NOT NULL,
		from_club TEXT,
		to_club TEXT,
		fee TEXT,
		type TEXT,
		player_url TEXT
	);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create transfers: %w", err)
	}

	_, err := s.db.ExecContext(ctx, `ALTER TABLE transfers ADD COLUMN agent_name TEXT`)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate column name") {
			log.Printf("Migrate: agent_name column already present")
			return nil
		}
		return fmt.Errorf("add agent_name: %w", err)
	}
	log.Printf("Migrate: added agent_name column")
	return nil
}

func (s *SQLiteStore) ReplaceAll(ctx context.Context, records []models.TransferRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM transfers`); err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("clear transfers: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transfers (player, from_club, to_club, fee, type, player_url, agent_name)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range records {
		if _, err := stmt.ExecContext(ctx, t.Player, t.FromClub, t.ToClub, t.Fee, string(t.Type),
			nullIfEmpty(t.PlayerURL), t.Agent.NullString()); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("insert %s: %w", t.Player, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(records), nil
}

func (s *SQLiteStore) UpdateAgent(ctx context.Context, id int64, outcome models.AgentOutcome) error {
	_, err := s.db.ExecContext(ctx, `UPDATE transfers SET agent_name = ? WHERE id = ?`, outcome.NullString(), id)
	return err
}

func (s *SQLiteStore) SelectUnenriched(ctx context.Context, limit int, policy models.RetryPolicy) ([]models.TransferRecord, error) {
	where, args := unenrichedWhere(policy, func(int) string { return "?" })
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE (` + where + `) AND id > ? ORDER BY id LIMIT ?`

	return selectRetryable(ctx, limit, policy, func(ctx context.Context, afterID int64, n int) ([]models.TransferRecord, error) {
		return s.query(ctx, query, append(args[:len(args):len(args)], afterID, n)...)
	})
}

func (s *SQLiteStore) All(ctx context.Context) ([]models.TransferRecord, error) {
	return s.query(ctx, `SELECT `+transferColumns+` FROM transfers ORDER BY id`)
}

func (s *SQLiteStore) Peek(ctx context.Context, n int) ([]models.TransferRecord, error) {
	return s.query(ctx, `SELECT `+transferColumns+` FROM transfers ORDER BY id LIMIT ?`, n)
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]models.TransferRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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
