package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transfer_agents/models"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "transfers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleTransfers() []models.TransferRecord {
	return []models.TransferRecord{
		{Player: "Test Player", FromClub: "Arsenal", ToClub: "Chelsea", Fee: "€10.00m", Type: models.DirectionArrival,
			PlayerURL: "https://www.transfermarkt.com/test-player/profil/spieler/123"},
		{Player: "Old Player", FromClub: "Chelsea", ToClub: "Sevilla FC", Fee: "free transfer", Type: models.DirectionDeparture,
			PlayerURL: "https://www.transfermarkt.com/old-player/profil/spieler/789"},
		{Player: "Linkless", FromClub: "N/A", ToClub: "Chelsea", Fee: "-", Type: models.DirectionArrival},
	}
}

func stripIDs(records []models.TransferRecord) []models.TransferRecord {
	out := make([]models.TransferRecord, len(records))
	for i, r := range records {
		r.ID = 0
		out[i] = r
	}
	return out
}

func TestSQLiteStore_ReplaceAllIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)

	n, err := store.ReplaceAll(ctx, sampleTransfers())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	first, err := store.All(ctx)
	require.NoError(t, err)

	_, err = store.ReplaceAll(ctx, sampleTransfers())
	require.NoError(t, err)

	second, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, second, 3)
	assert.Equal(t, stripIDs(first), stripIDs(second))
	assert.Equal(t, sampleTransfers(), stripIDs(second))
}

func TestSQLiteStore_ReplaceAllEmptyKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)

	_, err := store.ReplaceAll(ctx, sampleTransfers())
	require.NoError(t, err)

	n, err := store.ReplaceAll(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLiteStore_UpdateAgentTouchesOneRow(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)
	_, err := store.ReplaceAll(ctx, sampleTransfers())
	require.NoError(t, err)

	all, err := store.All(ctx)
	require.NoError(t, err)

	require.NoError(t, store.UpdateAgent(ctx, all[0].ID, models.Resolved("Stellar Football")))
	require.NoError(t, store.UpdateAgent(ctx, 999999, models.Resolved("Nobody")))

	after, err := store.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, all[0].ID, after[0].ID)
	assert.Equal(t, models.Resolved("Stellar Football"), after[0].Agent)
	assert.Equal(t, all[0].Player, after[0].Player)
	assert.Equal(t, models.AgentOutcome{}, after[1].Agent)
	assert.Equal(t, models.AgentOutcome{}, after[2].Agent)
}

func TestSQLiteStore_SelectUnenriched(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)

	records := []models.TransferRecord{
		{Player: "Pending", Type: models.DirectionArrival},
		{Player: "Resolved", Type: models.DirectionArrival, Agent: models.Resolved("CAA Base")},
		{Player: "NotFound", Type: models.DirectionArrival, Agent: models.NotFound()},
		{Player: "NoURL", Type: models.DirectionArrival, Agent: models.NoURL()},
		{Player: "RequestError", Type: models.DirectionArrival, Agent: models.RequestError()},
		{Player: "HTTPError", Type: models.DirectionArrival, Agent: models.HTTPError(403)},
	}
	_, err := store.ReplaceAll(ctx, records)
	require.NoError(t, err)

	players := func(rs []models.TransferRecord) []string {
		var out []string
		for _, r := range rs {
			out = append(out, r.Player)
		}
		return out
	}

	got, err := store.SelectUnenriched(ctx, 100, models.RetryPolicy{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Pending", "NotFound", "NoURL"}, players(got))

	got, err = store.SelectUnenriched(ctx, 100, models.RetryPolicy{RetryFailed: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Pending", "NotFound", "NoURL", "RequestError", "HTTPError"}, players(got))

	got, err = store.SelectUnenriched(ctx, 2, models.RetryPolicy{})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	for _, r := range got {
		assert.True(t, r.Agent.Retryable(models.RetryPolicy{}))
	}
}

func TestSQLiteStore_SelectUnenrichedEmptyString(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)
	_, err := store.ReplaceAll(ctx, sampleTransfers())
	require.NoError(t, err)

	_, err = store.db.ExecContext(ctx, `UPDATE transfers SET agent_name = ''`)
	require.NoError(t, err)

	got, err := store.SelectUnenriched(ctx, 10, models.RetryPolicy{})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestSQLiteStore_MigrateAddsColumnToOldTable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "old.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE transfers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		player TEXT NOT NULL, from_club TEXT, to_club TEXT, fee TEXT, type TEXT, player_url TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO transfers (player, type) VALUES ('Legacy', 'Arrival')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx))

	got, err := store.SelectUnenriched(ctx, 10, models.RetryPolicy{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Legacy", got[0].Player)
	assert.Equal(t, models.OutcomePending, got[0].Agent.Kind)
}

func TestSQLiteStore_Peek(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)
	_, err := store.ReplaceAll(ctx, sampleTransfers())
	require.NoError(t, err)

	got, err := store.Peek(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Test Player", got[0].Player)
	assert.Equal(t, "Old Player", got[1].Player)
}

func TestNewSQLiteStore_UnopenablePath(t *testing.T) {
	_, err := NewSQLiteStore(filepath.Join(t.TempDir(), "missing", "dir", "transfers.db"))
	assert.Error(t, err)
}

func TestSQLiteStore_SelectUnenrichedAgreesWithRetryable(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)

	stored := []sql.NullString{
		{},
		{String: "", Valid: true},
		{String: "   ", Valid: true},
		{String: "\t", Valid: true},
		{String: "Not Found", Valid: true},
		{String: "  Not Found ", Valid: true},
		{String: "not found", Valid: true},
		{String: "No URL", Valid: true},
		{String: "Request Error", Valid: true},
		{String: " Request Error", Valid: true},
		{String: "Scrape Failed (403)", Valid: true},
		{String: " Scrape Failed (500) ", Valid: true},
		{String: "Scrape Failed (abc)", Valid: true},
		{String: "Scrape Failed ()", Valid: true},
		{String: "Scrape Failed (+1)", Valid: true},
		{String: "Scrape Failed (12", Valid: true},
		{String: "Stellar Football", Valid: true},
		{String: "Relatives", Valid: true},
	}

	records := make([]models.TransferRecord, len(stored))
	for i := range stored {
		records[i] = models.TransferRecord{Player: fmt.Sprintf("p%02d", i), Type: models.DirectionArrival}
	}
	_, err := store.ReplaceAll(ctx, records)
	require.NoError(t, err)

	rows, err := store.All(ctx)
	require.NoError(t, err)
	for i, r := range rows {
		_, err := store.db.ExecContext(ctx, `UPDATE transfers SET agent_name = ? WHERE id = ?`, stored[i], r.ID)
		require.NoError(t, err)
	}

	players := func(rs []models.TransferRecord) []string {
		out := []string{}
		for _, r := range rs {
			out = append(out, r.Player)
		}
		return out
	}

	for _, policy := range []models.RetryPolicy{{}, {RetryFailed: true}} {
		want := []string{}
		for i, v := range stored {
			if models.ParseAgentOutcome(v).Retryable(policy) {
				want = append(want, records[i].Player)
			}
		}

		got, err := store.SelectUnenriched(ctx, 100, policy)
		require.NoError(t, err)
		assert.Equal(t, want, players(got), "retry failed: %v", policy.RetryFailed)

		// Small limits page past rows the prefilter lets through.
		for limit := 1; limit <= len(want); limit++ {
			got, err := store.SelectUnenriched(ctx, limit, policy)
			require.NoError(t, err)
			assert.Equal(t, want[:limit], players(got), "limit %d, retry failed: %v", limit, policy.RetryFailed)
		}
	}
}
