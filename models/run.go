package models

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ScrapeSummary reports one listing scrape.
type ScrapeSummary struct {
	RunID           uuid.UUID `json:"run_id"`
	SourceURL       string    `json:"source_url"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	Status          RunStatus `json:"status"`
	RowsParsed      int       `json:"rows_parsed"`
	RowsSaved       int       `json:"rows_saved"`
	SectionsSkipped int       `json:"sections_skipped"`
	ArchiveKey      string    `json:"archive_key,omitempty"`
}

// EnrichmentSummary reports one enrichment pass.
type EnrichmentSummary struct {
	RunID      uuid.UUID           `json:"run_id"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	Status     RunStatus           `json:"status"`
	Selected   int                 `json:"selected"`
	Processed  int                 `json:"processed"`
	ByOutcome  map[OutcomeKind]int `json:"by_outcome"`
}

func NewEnrichmentSummary() *EnrichmentSummary {
	return &EnrichmentSummary{
		RunID:     uuid.New(),
		StartedAt: time.Now(),
		Status:    RunStatusRunning,
		ByOutcome: make(map[OutcomeKind]int),
	}
}

// Record counts one processed row.
func (s *EnrichmentSummary) Record(o AgentOutcome) {
	s.Processed++
	s.ByOutcome[o.Kind]++
}

// Succeeded counts rows that resolved to an agent name.
func (s *EnrichmentSummary) Succeeded() int {
	return s.ByOutcome[OutcomeResolved]
}

// Failed counts rows that ended in any sentinel.
func (s *EnrichmentSummary) Failed() int {
	return s.Processed - s.Succeeded()
}
