package workers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"transfer_agents/httputil"
	"transfer_agents/metrics"
	"transfer_agents/models"
	"transfer_agents/scraper"
)

// EnrichmentStore is what a pass needs from the store.
type EnrichmentStore interface {
	SelectUnenriched(ctx context.Context, limit int, policy models.RetryPolicy) ([]models.TransferRecord, error)
	UpdateAgent(ctx context.Context, id int64, outcome models.AgentOutcome) error
}

// EnrichmentWorker resolves the agent for transfers that do not have one yet.
// Each row is written as soon as it is resolved, so an interrupted pass keeps
// its progress and the next pass picks up the remainder.
type EnrichmentWorker struct {
	store     EnrichmentStore
	fetcher   httputil.Fetcher
	parser    *scraper.ProfileParser
	limiter   *rate.Limiter
	batchSize int
	policy    models.RetryPolicy
	metrics   *metrics.Metrics
}

// NewEnrichmentWorker spaces profile requests at least cooldown apart.
func NewEnrichmentWorker(store EnrichmentStore, fetcher httputil.Fetcher, parser *scraper.ProfileParser,
	batchSize int, cooldown time.Duration, policy models.RetryPolicy, m *metrics.Metrics) *EnrichmentWorker {
	limit := rate.Inf
	if cooldown > 0 {
		limit = rate.Every(cooldown)
	}

	return &EnrichmentWorker{
		store:     store,
		fetcher:   fetcher,
		parser:    parser,
		limiter:   rate.NewLimiter(limit, 1),
		batchSize: batchSize,
		policy:    policy,
		metrics:   m,
	}
}

// RunOnce runs one bounded pass. Per-row failures are recorded as outcomes;
// only store errors and cancellation end the pass early.
func (w *EnrichmentWorker) RunOnce(ctx context.Context) (*models.EnrichmentSummary, error) {
	summary := models.NewEnrichmentSummary()
	defer func() {
		summary.FinishedAt = time.Now()
		w.metrics.ObservePass(summary.FinishedAt.Sub(summary.StartedAt))
	}()

	records, err := w.store.SelectUnenriched(ctx, w.batchSize, w.policy)
	if err != nil {
		summary.Status = models.RunStatusFailed
		return summary, fmt.Errorf("select unenriched: %w", err)
	}
	summary.Selected = len(records)

	if len(records) == 0 {
		log.Println("Enrichment: no new players to scrape agents for, the store is up to date")
		summary.Status = models.RunStatusCompleted
		return summary, nil
	}

	log.Printf("Enrichment: found %d players without agent information", len(records))

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			summary.Status = models.RunStatusFailed
			return summary, err
		}

		outcome, err := w.resolve(ctx, rec)
		if err != nil {
			summary.Status = models.RunStatusFailed
			return summary, err
		}

		if err := w.store.UpdateAgent(ctx, rec.ID, outcome); err != nil {
			summary.Status = models.RunStatusFailed
			return summary, fmt.Errorf("update agent for %d: %w", rec.ID, err)
		}
		summary.Record(outcome)
		w.metrics.ObserveOutcome(outcome)

		log.Printf("(%d/%d) Player: %s -> Agent: %s", i+1, len(records), rec.Player, outcome)
	}

	summary.Status = models.RunStatusCompleted
	log.Printf("Enrichment: complete, %d resolved, %d unresolved", summary.Succeeded(), summary.Failed())
	return summary, nil
}

// resolve returns an error only when ctx is done.
func (w *EnrichmentWorker) resolve(ctx context.Context, rec models.TransferRecord) (models.AgentOutcome, error) {
	if !validProfileURL(rec.PlayerURL) {
		return models.NoURL(), nil
	}

	// The cooldown spaces requests, not rows: "No URL" rows above never wait.
	if err := w.limiter.Wait(ctx); err != nil {
		return models.AgentOutcome{}, err
	}

	page, err := w.fetcher.Fetch(ctx, rec.PlayerURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.AgentOutcome{}, ctxErr
		}
		var fe *httputil.FetchError
		if errors.As(err, &fe) && !fe.Transport() {
			return models.HTTPError(fe.Status), nil
		}
		log.Printf("  -> Request Error: %v", err)
		return models.RequestError(), nil
	}

	return w.parser.Parse(bytes.NewReader(page.Body)), nil
}

func validProfileURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
