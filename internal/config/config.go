package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the SiteSpar server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Providers ProvidersConfig
	Analysis  AnalysisConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type ProvidersConfig struct {
	PageSpeed PageSpeedConfig
	Content   ContentConfig
	Backlinks BacklinksConfig
	Social    SocialConfig
	Ads       AdsConfig
}

type PageSpeedConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type ContentConfig struct {
	UserAgent string
	Timeout   time.Duration
}

type BacklinksConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// SocialConfig covers the scraper API. Each platform carries its own
// timeout: the scrapers are slow and unevenly so.
type SocialConfig struct {
	BaseURL          string
	APIKey           string
	FacebookTimeout  time.Duration
	InstagramTimeout time.Duration
	LinkedInTimeout  time.Duration
}

type AdsConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Enabled bool
}

// AnalysisConfig tunes the admission gates and cache TTLs.
type AnalysisConfig struct {
	RateLimit         int
	SectionRateLimit  int
	RateWindow        time.Duration
	LockStaleAfter    time.Duration
	ReportTTL         time.Duration
	SocialCacheTTL    time.Duration
	APIRequestsPerMin int
	RefreshWorkers    int
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("SITESPAR_PORT", 8080),
			Env:  envString("SITESPAR_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Providers: ProvidersConfig{
			PageSpeed: PageSpeedConfig{
				BaseURL: os.Getenv("PAGESPEED_BASE_URL"),
				APIKey:  os.Getenv("PAGESPEED_API_KEY"),
				Timeout: envDuration("PAGESPEED_TIMEOUT", 30*time.Second),
			},
			Content: ContentConfig{
				UserAgent: envString("CONTENT_USER_AGENT", "SiteSparBot/1.0"),
				Timeout:   envDuration("CONTENT_TIMEOUT", 30*time.Second),
			},
			Backlinks: BacklinksConfig{
				BaseURL: os.Getenv("BACKLINKS_BASE_URL"),
				APIKey:  os.Getenv("BACKLINKS_API_KEY"),
				Timeout: envDuration("BACKLINKS_TIMEOUT", 30*time.Second),
			},
			Social: SocialConfig{
				BaseURL:          os.Getenv("SOCIAL_BASE_URL"),
				APIKey:           os.Getenv("SOCIAL_API_KEY"),
				FacebookTimeout:  envDuration("SOCIAL_FACEBOOK_TIMEOUT", 60*time.Second),
				InstagramTimeout: envDuration("SOCIAL_INSTAGRAM_TIMEOUT", 90*time.Second),
				LinkedInTimeout:  envDuration("SOCIAL_LINKEDIN_TIMEOUT", 45*time.Second),
			},
			Ads: AdsConfig{
				BaseURL: os.Getenv("ADS_BASE_URL"),
				APIKey:  os.Getenv("ADS_API_KEY"),
				Timeout: envDuration("ADS_TIMEOUT", 30*time.Second),
				Enabled: envBool("ADS_ENABLED", false),
			},
		},
		Analysis: AnalysisConfig{
			RateLimit:         envInt("ANALYSIS_RATE_LIMIT", 3),
			SectionRateLimit:  envInt("ANALYSIS_SECTION_RATE_LIMIT", 10),
			RateWindow:        envDuration("ANALYSIS_RATE_WINDOW", 5*time.Minute),
			LockStaleAfter:    envDuration("ANALYSIS_LOCK_STALE_AFTER", 5*time.Minute),
			ReportTTL:         envDuration("REPORT_TTL", 7*24*time.Hour),
			SocialCacheTTL:    envDuration("SOCIAL_CACHE_TTL", 30*time.Minute),
			APIRequestsPerMin: envInt("API_REQUESTS_PER_MINUTE", 60),
			RefreshWorkers:    envInt("REFRESH_WORKERS", 2),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	for name, u := range map[string]string{
		"PAGESPEED_BASE_URL": c.Providers.PageSpeed.BaseURL,
		"BACKLINKS_BASE_URL": c.Providers.Backlinks.BaseURL,
		"SOCIAL_BASE_URL":    c.Providers.Social.BaseURL,
	} {
		if u == "" {
			return fmt.Errorf("%s is required", name)
		}
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return fmt.Errorf("%s must start with http:// or https://, got %q", name, u)
		}
	}

	if c.Providers.Ads.Enabled && c.Providers.Ads.BaseURL == "" {
		return fmt.Errorf("ADS_BASE_URL is required when ADS_ENABLED is true")
	}

	if c.Analysis.RateLimit <= 0 {
		return fmt.Errorf("ANALYSIS_RATE_LIMIT must be positive, got %d", c.Analysis.RateLimit)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
