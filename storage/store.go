package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"transfer_agents/models"
)

// Store persists transfer records in the transfers table.
type Store interface {
	Migrate(ctx context.Context) error
	// ReplaceAll swaps the table contents for records in one transaction.
	ReplaceAll(ctx context.Context, records []models.TransferRecord) (int, error)
	// UpdateAgent sets agent_name on one row. Unknown ids are ignored.
	UpdateAgent(ctx context.Context, id int64, outcome models.AgentOutcome) error
	SelectUnenriched(ctx context.Context, limit int, policy models.RetryPolicy) ([]models.TransferRecord, error)
	All(ctx context.Context) ([]models.TransferRecord, error)
	Peek(ctx context.Context, n int) ([]models.TransferRecord, error)
	Close() error
}

const transferColumns = "id, player, from_club, to_club, fee, type, player_url, agent_name"

// unenrichedWhere builds a prefilter for rows the policy may re-select. It
// matches every value that decodes to a retryable outcome, and a few that do
// not (a malformed "Scrape Failed (...)"), so callers filter with Retryable.
// placeholder returns the bind marker for the nth argument (1-based).
func unenrichedWhere(policy models.RetryPolicy, placeholder func(n int) string) (string, []any) {
	values := policy.RetryableSentinels()
	args := make([]any, 0, len(values)+1)
	marks := make([]string, 0, len(values))
	for _, v := range values {
		args = append(args, v)
		marks = append(marks, placeholder(len(args)))
	}

	where := fmt.Sprintf("agent_name IS NULL OR TRIM(agent_name) = '' OR TRIM(agent_name) IN (%s)", strings.Join(marks, ", "))
	if policy.RetryFailed {
		args = append(args, models.FailedPrefix()+"%")
		where += " OR TRIM(agent_name) LIKE " + placeholder(len(args))
	}
	return where, args
}

// pageFunc returns up to n prefiltered rows with id > afterID, ordered by id.
type pageFunc func(ctx context.Context, afterID int64, n int) ([]models.TransferRecord, error)

// selectRetryable walks the prefiltered rows in id order and keeps those whose
// decoded outcome is retryable under policy, up to limit.
func selectRetryable(ctx context.Context, limit int, policy models.RetryPolicy, page pageFunc) ([]models.TransferRecord, error) {
	var out []models.TransferRecord
	if limit <= 0 {
		return out, nil
	}

	var afterID int64
	for len(out) < limit {
		batch, err := page(ctx, afterID, limit)
		if err != nil {
			return nil, err
		}
		for _, r := range batch {
			afterID = r.ID
			if !r.Agent.Retryable(policy) {
				continue
			}
			out = append(out, r)
			if len(out) == limit {
				break
			}
		}
		if len(batch) < limit {
			break
		}
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row rowScanner) (models.TransferRecord, error) {
	var t models.TransferRecord
	var fromClub, toClub, fee, typ, playerURL, agent sql.NullString
	if err := row.Scan(&t.ID, &t.Player, &fromClub, &toClub, &fee, &typ, &playerURL, &agent); err != nil {
		return t, err
	}
	t.FromClub = fromClub.String
	t.ToClub = toClub.String
	t.Fee = fee.String
	t.Type = models.Direction(typ.String)
	t.PlayerURL = playerURL.String
	t.Agent = models.ParseAgentOutcome(agent)
	return t, nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
