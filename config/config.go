package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultListingURL  = "https://www.transfermarkt.com/premier-league/transfers/wettbewerb/GB1/saison_id/2025"
	DefaultBaseURL     = "https://www.transfermarkt.com"
	DefaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/109.0.0.0 Safari/537.36"
	DefaultAgentMarker = "Player agent:"
)

var DefaultIgnoredHeadlines = []string{"Transfer record", "No Headline Found"}

type Config struct {
	Source      SourceConfig
	Database    DatabaseConfig
	Fetch       FetchConfig
	Enrichment  EnrichmentConfig
	Scheduler   SchedulerConfig
	Archive     ArchiveConfig
	LogFile     string
	LogMaxSize  int64 // bytes, 0 for the logging default
	MetricsAddr string
}

// SourceConfig describes the listing site. It is read from config/source.yaml
// when present; env vars override the URLs.
type SourceConfig struct {
	ListingURL       string   `yaml:"listing_url"`
	BaseURL          string   `yaml:"base_url"`
	IgnoredHeadlines []string `yaml:"ignored_headlines"`
	AgentMarker      string   `yaml:"agent_marker"`
}

type DatabaseConfig struct {
	Driver string // sqlite or postgres
	Path   string
	URL    string
}

type FetchConfig struct {
	Mode      string // http or browser
	UserAgent string
	Timeout   time.Duration
	ProxyURL  string
}

type EnrichmentConfig struct {
	BatchSize   int
	Cooldown    time.Duration
	RetryFailed bool
}

type SchedulerConfig struct {
	ScrapeCron string
	EnrichCron string
}

type ArchiveConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether raw pages should be archived.
func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	source, err := LoadSource(getEnv("SOURCE_CONFIG", "config/source.yaml"))
	if err != nil {
		return nil, err
	}
	if v := os.Getenv("LISTING_URL"); v != "" {
		source.ListingURL = v
	}
	if v := os.Getenv("BASE_URL"); v != "" {
		source.BaseURL = v
	}

	cfg := &Config{
		Source: *source,
		Database: DatabaseConfig{
			Driver: strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			Path:   getEnv("DB_PATH", "transfers.db"),
			URL:    os.Getenv("DATABASE_URL"),
		},
		Fetch: FetchConfig{
			Mode:      strings.ToLower(getEnv("FETCH_MODE", "http")),
			UserAgent: getEnv("USER_AGENT", DefaultUserAgent),
			Timeout:   getEnvDuration("HTTP_TIMEOUT", 15*time.Second),
			ProxyURL:  os.Getenv("PROXY_URL"),
		},
		Enrichment: EnrichmentConfig{
			BatchSize:   getEnvInt("ENRICH_BATCH_SIZE", 100),
			Cooldown:    getEnvDuration("ENRICH_COOLDOWN", 2*time.Second),
			RetryFailed: os.Getenv("ENRICH_RETRY_FAILED") == "true",
		},
		Scheduler: SchedulerConfig{
			ScrapeCron: os.Getenv("SCRAPE_CRON"),
			EnrichCron: os.Getenv("ENRICH_CRON"),
		},
		Archive: ArchiveConfig{
			Bucket:          os.Getenv("ARCHIVE_BUCKET"),
			Region:          getEnv("ARCHIVE_REGION", "us-east-1"),
			Endpoint:        os.Getenv("ARCHIVE_ENDPOINT"),
			AccessKeyID:     os.Getenv("ARCHIVE_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("ARCHIVE_SECRET_ACCESS_KEY"),
		},
		LogFile:     getEnv("LOG_FILE", "transfers.log"),
		LogMaxSize:  int64(getEnvInt("LOG_MAX_SIZE", 0)),
		MetricsAddr: os.Getenv("METRICS_ADDR"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadSource reads the source file at path. A missing file yields the defaults.
func LoadSource(path string) (*SourceConfig, error) {
	src := &SourceConfig{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, src); err != nil {
			return nil, err
		}
	}

	if src.ListingURL == "" {
		src.ListingURL = DefaultListingURL
	}
	if src.BaseURL == "" {
		src.BaseURL = DefaultBaseURL
	}
	if len(src.IgnoredHeadlines) == 0 {
		src.IgnoredHeadlines = append([]string(nil), DefaultIgnoredHeadlines...)
	}
	if src.AgentMarker == "" {
		src.AgentMarker = DefaultAgentMarker
	}
	src.BaseURL = strings.TrimRight(src.BaseURL, "/")
	return src, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("DB_PATH is required for sqlite")
		}
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("DATABASE_URL is required for postgres")
		}
	default:
		return errors.New("DB_DRIVER must be sqlite or postgres")
	}
	if c.Fetch.Mode != "http" && c.Fetch.Mode != "browser" {
		return errors.New("FETCH_MODE must be http or browser")
	}
	if c.Fetch.Timeout <= 0 {
		return errors.New("HTTP_TIMEOUT must be positive")
	}
	if c.Enrichment.BatchSize <= 0 {
		return errors.New("ENRICH_BATCH_SIZE must be positive")
	}
	if c.Enrichment.Cooldown < 0 {
		return errors.New("ENRICH_COOLDOWN must not be negative")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
