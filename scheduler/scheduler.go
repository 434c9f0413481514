package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"transfer_agents/config"
	"transfer_agents/models"
)

// Scraper runs the listings stage.
type Scraper interface {
	Run(ctx context.Context) (*models.ScrapeSummary, error)
}

// Enricher runs one enrichment pass.
type Enricher interface {
	RunOnce(ctx context.Context) (*models.EnrichmentSummary, error)
}

// Scheduler runs the pipeline stages on cron schedules. Jobs share one lock,
// so a job that fires while another is running is skipped.
type Scheduler struct {
	cfg      config.SchedulerConfig
	scraper  Scraper
	enricher Enricher
	cron     *cron.Cron
	mu       sync.Mutex
}

func New(cfg config.SchedulerConfig, scraper Scraper, enricher Enricher) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		scraper:  scraper,
		enricher: enricher,
		cron:     cron.New(),
	}
}

// Start registers the configured jobs and starts the cron runner.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs := 0

	if s.cfg.ScrapeCron != "" {
		log.Printf("Scheduling scrape with cron: %s", s.cfg.ScrapeCron)
		if _, err := s.cron.AddFunc(s.cfg.ScrapeCron, func() { s.RunScrape(ctx) }); err != nil {
			return fmt.Errorf("invalid scrape cron expression: %w", err)
		}
		jobs++
	}

	if s.cfg.EnrichCron != "" {
		log.Printf("Scheduling enrichment with cron: %s", s.cfg.EnrichCron)
		if _, err := s.cron.AddFunc(s.cfg.EnrichCron, func() { s.RunEnrich(ctx) }); err != nil {
			return fmt.Errorf("invalid enrich cron expression: %w", err)
		}
		jobs++
	}

	if jobs == 0 {
		return fmt.Errorf("no schedule configured: set SCRAPE_CRON and/or ENRICH_CRON")
	}

	s.cron.Start()
	return nil
}

// Stop stops the cron runner and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunScrape runs the listings stage unless another job holds the lock.
// It reports whether the job ran.
func (s *Scheduler) RunScrape(ctx context.Context) bool {
	if !s.mu.TryLock() {
		log.Println("Scheduled scrape skipped: another job is still running")
		return false
	}
	defer s.mu.Unlock()

	summary, err := s.scraper.Run(ctx)
	if err != nil {
		log.Printf("Scheduled scrape error: %v", err)
		return true
	}
	log.Printf("Scheduled scrape %s: %d rows saved", summary.RunID, summary.RowsSaved)
	return true
}

// RunEnrich runs one enrichment pass unless another job holds the lock.
func (s *Scheduler) RunEnrich(ctx context.Context) bool {
	if !s.mu.TryLock() {
		log.Println("Scheduled enrichment skipped: another job is still running")
		return false
	}
	defer s.mu.Unlock()

	summary, err := s.enricher.RunOnce(ctx)
	if err != nil {
		log.Printf("Scheduled enrichment error: %v", err)
		return true
	}
	log.Printf("Scheduled enrichment %s: %d/%d processed", summary.RunID, summary.Processed, summary.Selected)
	return true
}
