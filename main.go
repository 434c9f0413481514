package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transfer_agents/config"
	"transfer_agents/httputil"
	"transfer_agents/logging"
	"transfer_agents/metrics"
	"transfer_agents/models"
	"transfer_agents/report"
	"transfer_agents/scheduler"
	"transfer_agents/scraper"
	"transfer_agents/storage"
	"transfer_agents/workers"
)

const peekRows = 5

var (
	migrateNow = flag.Bool("migrate", false, "Create or upgrade the transfers table and exit")
	scrapeNow  = flag.Bool("scrape", false, "Scrape the listings page once and replace the stored transfers")
	enrichNow  = flag.Bool("enrich", false, "Run one agent enrichment pass")
	reportNow  = flag.Bool("report", false, "Print key numbers for the stored transfers")
	peekNow    = flag.Bool("peek", false, "Print the first stored transfers")
	daemon     = flag.Bool("daemon", false, "Run scrape and enrichment on the configured cron schedules")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if !*migrateNow && !*scrapeNow && !*enrichNow && !*reportNow && !*peekNow && !*daemon {
		fmt.Fprintln(os.Stderr, "Nothing to do. Pass one or more of -migrate, -scrape, -enrich, -report, -peek or -daemon.")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := logging.Setup(cfg.LogFile, cfg.LogMaxSize)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting transfer_agents...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	if *migrateNow {
		if err := store.Migrate(ctx); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migration complete")
	}

	m := metrics.New()

	var fetcher httputil.Fetcher
	if *scrapeNow || *enrichNow || *daemon {
		f, closeFetcher := newFetcher(cfg.Fetch, m)
		defer closeFetcher()
		fetcher = f
	}

	var orchestrator *scraper.Orchestrator
	if *scrapeNow || *daemon {
		archive := newArchive(ctx, cfg.Archive)
		parser := scraper.NewListingParser(cfg.Source.BaseURL, cfg.Source.IgnoredHeadlines)
		orchestrator = scraper.NewOrchestrator(cfg.Source.ListingURL, fetcher, parser, store, archive, m)
	}

	var enricher *workers.EnrichmentWorker
	if *enrichNow || *daemon {
		enricher = workers.NewEnrichmentWorker(store, fetcher, scraper.NewProfileParser(cfg.Source.AgentMarker),
			cfg.Enrichment.BatchSize, cfg.Enrichment.Cooldown,
			models.RetryPolicy{RetryFailed: cfg.Enrichment.RetryFailed}, m)
	}

	if *scrapeNow {
		summary, err := orchestrator.Run(ctx)
		if err != nil {
			log.Fatalf("Scrape failed: %v", err)
		}
		log.Printf("Scrape %s complete: %d parsed, %d saved", summary.RunID, summary.RowsParsed, summary.RowsSaved)
	}

	if *enrichNow {
		summary, err := enricher.RunOnce(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Printf("Enrichment interrupted after %d of %d rows, progress is saved", summary.Processed, summary.Selected)
				return
			}
			log.Fatalf("Enrichment failed: %v", err)
		}
		log.Printf("Enrichment %s complete: %d processed, %d resolved", summary.RunID, summary.Processed, summary.Succeeded())
	}

	if *reportNow {
		records, err := store.All(ctx)
		if err != nil {
			log.Fatalf("Failed to read transfers: %v", err)
		}
		if err := report.Write(os.Stdout, report.Summarize(records)); err != nil {
			log.Fatalf("Failed to write report: %v", err)
		}
	}

	if *peekNow {
		records, err := store.Peek(ctx, peekRows)
		if err != nil {
			log.Fatalf("Failed to read transfers: %v", err)
		}
		printPeek(records)
	}

	if *daemon {
		runDaemon(ctx, cfg, orchestrator, enricher, m)
	}
}

func runDaemon(ctx context.Context, cfg *config.Config, orchestrator *scraper.Orchestrator, enricher *workers.EnrichmentWorker, m *metrics.Metrics) {
	sched := scheduler.New(cfg.Scheduler, orchestrator, enricher)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	var srv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Printf("Serving metrics on %s/metrics", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Metrics server error: %v", err)
			}
		}()
	}

	log.Println("Daemon running. Press Ctrl+C to stop.")
	<-ctx.Done()

	log.Println("Shutting down...")
	sched.Stop()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}
	log.Println("Goodbye!")
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (storage.Store, error) {
	switch cfg.Driver {
	case "postgres":
		store, err := storage.NewPostgresStore(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.URL))
		return store, nil
	default:
		store, err := storage.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		log.Printf("SQLite database: %s", cfg.Path)
		return store, nil
	}
}

func newFetcher(cfg config.FetchConfig, m *metrics.Metrics) (httputil.Fetcher, func()) {
	if cfg.Mode == "browser" {
		log.Println("Fetching pages with a headless browser")
		f := httputil.NewBrowserFetcher(cfg.UserAgent, cfg.Timeout, m)
		return f, func() {
			if err := f.Close(); err != nil {
				log.Printf("Warning: browser shutdown: %v", err)
			}
		}
	}
	if cfg.ProxyURL != "" {
		log.Printf("Proxy: %s", maskConnectionString(cfg.ProxyURL))
	}
	return httputil.NewHTTPFetcher(httputil.NewScrapingClient(cfg), cfg.UserAgent, m), func() {}
}

func newArchive(ctx context.Context, cfg config.ArchiveConfig) scraper.PageArchive {
	if !cfg.Enabled() {
		return storage.NoOpArchive{}
	}
	archive, err := storage.NewS3Archive(ctx, storage.S3Config{
		Bucket:          cfg.Bucket,
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
	})
	if err != nil {
		log.Printf("Warning: page archive disabled: %v", err)
		return storage.NoOpArchive{}
	}
	log.Printf("Archiving listing pages to s3://%s", cfg.Bucket)
	return archive
}

func printPeek(records []models.TransferRecord) {
	if len(records) == 0 {
		fmt.Println("No transfers stored yet.")
		return
	}
	for _, r := range records {
		agent := r.Agent.String()
		if agent == "" {
			agent = "-"
		}
		fmt.Printf("%d | %s | %s -> %s | %s | %s | %s\n", r.ID, r.Player, r.FromClub, r.ToClub, r.Fee, r.Type, agent)
	}
}

// maskConnectionString hides the password in a connection string for logging.
func maskConnectionString(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil || u.User == nil {
		return connStr
	}
	return u.Redacted()
}
