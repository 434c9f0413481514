package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"transfer_agents/httputil"
	"transfer_agents/metrics"
	"transfer_agents/models"
	"transfer_agents/storage"
)

var ErrListingFetch = errors.New("listing fetch failed")

// ListingStore receives a full listings snapshot.
type ListingStore interface {
	ReplaceAll(ctx context.Context, records []models.TransferRecord) (int, error)
}

// PageArchive keeps raw pages for later replay.
type PageArchive interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// Orchestrator runs the listings stage: fetch, parse, replace the table.
type Orchestrator struct {
	listingURL string
	fetcher    httputil.Fetcher
	parser     *ListingParser
	store      ListingStore
	archive    PageArchive
	metrics    *metrics.Metrics
}

func NewOrchestrator(listingURL string, fetcher httputil.Fetcher, parser *ListingParser, store ListingStore, archive PageArchive, m *metrics.Metrics) *Orchestrator {
	if archive == nil {
		archive = storage.NoOpArchive{}
	}
	return &Orchestrator{
		listingURL: listingURL,
		fetcher:    fetcher,
		parser:     parser,
		store:      store,
		archive:    archive,
		metrics:    m,
	}
}

// Run scrapes the listing page once. A failed fetch leaves the store untouched.
func (o *Orchestrator) Run(ctx context.Context) (*models.ScrapeSummary, error) {
	summary := &models.ScrapeSummary{
		RunID:     uuid.New(),
		SourceURL: o.listingURL,
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	}
	defer func() { summary.FinishedAt = time.Now() }()

	log.Printf("Fetching listings from: %s", o.listingURL)
	page, err := o.fetcher.Fetch(ctx, o.listingURL)
	if err != nil {
		summary.Status = models.RunStatusFailed
		return summary, fmt.Errorf("%w: %v", ErrListingFetch, err)
	}

	key := storage.ListingKey(summary.RunID, summary.StartedAt)
	if err := o.archive.Put(ctx, key, page.Body, "text/html; charset=utf-8"); err != nil {
		log.Printf("Warning: failed to archive listing page: %v", err)
	} else {
		summary.ArchiveKey = key
	}

	result, err := o.parser.Parse(bytes.NewReader(page.Body))
	if err != nil {
		summary.Status = models.RunStatusFailed
		return summary, fmt.Errorf("parse listings: %w", err)
	}
	summary.RowsParsed = len(result.Records)
	summary.SectionsSkipped = result.SectionsSkipped

	log.Printf("Parsed %d transfers (%d sections skipped, %d rows skipped, %d duplicates)",
		len(result.Records), result.SectionsSkipped, result.RowsSkipped, result.Duplicates)

	if len(result.Records) == 0 {
		log.Println("No transfers extracted, keeping the existing snapshot")
		summary.Status = models.RunStatusCompleted
		o.metrics.ObserveListingRows(0, 0)
		return summary, nil
	}

	saved, err := o.store.ReplaceAll(ctx, result.Records)
	if err != nil {
		summary.Status = models.RunStatusFailed
		return summary, fmt.Errorf("save transfers: %w", err)
	}
	summary.RowsSaved = saved
	summary.Status = models.RunStatusCompleted
	o.metrics.ObserveListingRows(summary.RowsParsed, saved)

	log.Printf("Saved %d transfers to the store", saved)
	return summary, nil
}
