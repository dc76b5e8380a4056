package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultScrapeUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

type Config struct {
	Env               string
	HTTPAddr          string
	DatabaseURL       string
	JWTSecret         string
	AdminPasswordHash string
	S3                S3Config
	Logging           LoggingConfig
	Scrape            ScrapeConfig
}

type S3Config struct {
	Endpoint       string
	PublicEndpoint string
	Bucket         string
	AccessKey      string
	SecretKey      string
	Region         string
	UseSSL         bool
}

type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

// ScrapeConfig carries every knob of the scrape-and-reconcile pipeline.
// All values default to something usable so a bare environment still runs
// (with the vendor provider in sandbox mode).
type ScrapeConfig struct {
	Enabled           bool
	Zone              string
	RunAt             string
	Days              int
	MaxDetailPages    int
	UserAgent         string
	FetchTimeout      time.Duration
	Pincodes          []string
	PostalCodeCityMap map[string]string
	Providers         ProvidersConfig
	PincodeLookup     PincodeLookupConfig
}

type ProvidersConfig struct {
	BookMyShow ListingProviderConfig
	District   ListingProviderConfig
	MovieGlu   MovieGluConfig
}

// ListingProviderConfig configures one HTML listing scraper.
type ListingProviderConfig struct {
	Enabled            bool
	BaseURL            string
	MoviesPathTemplate string
	EventsPathTemplate string
}

type MovieGluConfig struct {
	Enabled       bool
	BaseURL       string
	UseSandbox    bool
	MaxCinemas    int
	Client        string
	APIKey        string
	Authorization string
	Territory     string
	APIVersion    string
	Geolocation   string

	SandboxClient        string
	SandboxAPIKey        string
	SandboxAuthorization string
	SandboxTerritory     string
	SandboxAPIVersion    string
	SandboxGeolocation   string
}

type PincodeLookupConfig struct {
	Enabled bool
	BaseURL string
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:               getenv("APP_ENV", "dev"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		S3: S3Config{
			Endpoint:       os.Getenv("S3_ENDPOINT"),
			PublicEndpoint: os.Getenv("S3_PUBLIC_ENDPOINT"),
			Bucket:         os.Getenv("S3_BUCKET"),
			AccessKey:      os.Getenv("S3_ACCESS_KEY"),
			SecretKey:      os.Getenv("S3_SECRET_KEY"),
			Region:         getenv("S3_REGION", "us-east-1"),
			UseSSL:         getenvBool("S3_USE_SSL", true),
		},
		Logging: LoggingConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "text"),
			File:   os.Getenv("LOG_FILE"),
		},
		Scrape: ScrapeConfig{
			Enabled:           getenvBool("SCRAPE_ENABLED", true),
			Zone:              getenv("SCRAPE_ZONE", "Asia/Kolkata"),
			RunAt:             getenv("SCRAPE_RUN_AT", "12:00"),
			Days:              getenvInt("SCRAPE_DAYS", 7),
			MaxDetailPages:    getenvInt("SCRAPE_MAX_DETAIL_PAGES", 25),
			UserAgent:         getenv("SCRAPE_USER_AGENT", defaultScrapeUserAgent),
			FetchTimeout:      getenvDuration("SCRAPE_FETCH_TIMEOUT", 20*time.Second),
			Pincodes:          parseList(os.Getenv("SCRAPE_PINCODES")),
			PostalCodeCityMap: parsePairMap(os.Getenv("SCRAPE_PINCODE_CITY_MAP")),
			Providers: ProvidersConfig{
				BookMyShow: ListingProviderConfig{
					Enabled:            getenvBool("SCRAPE_BOOKMYSHOW_ENABLED", true),
					BaseURL:            getenv("SCRAPE_BOOKMYSHOW_BASE_URL", "https://in.bookmyshow.com"),
					MoviesPathTemplate: getenv("SCRAPE_BOOKMYSHOW_MOVIES_PATH", "/explore/movies-{citySlug}"),
					EventsPathTemplate: getenv("SCRAPE_BOOKMYSHOW_EVENTS_PATH", "/explore/events-{citySlug}"),
				},
				District: ListingProviderConfig{
					Enabled:            getenvBool("SCRAPE_DISTRICT_ENABLED", true),
					BaseURL:            getenv("SCRAPE_DISTRICT_BASE_URL", "https://www.district.in"),
					MoviesPathTemplate: getenv("SCRAPE_DISTRICT_MOVIES_PATH", "/movies/{citySlug}-movie-tickets"),
					EventsPathTemplate: getenv("SCRAPE_DISTRICT_EVENTS_PATH", "/activities/{citySlug}-activity-tickets"),
				},
				MovieGlu: MovieGluConfig{
					Enabled:              getenvBool("SCRAPE_MOVIEGLU_ENABLED", true),
					BaseURL:              getenv("SCRAPE_MOVIEGLU_BASE_URL", "https://api-gate2.movieglu.com"),
					UseSandbox:           getenvBool("SCRAPE_MOVIEGLU_USE_SANDBOX", true),
					MaxCinemas:           getenvInt("SCRAPE_MOVIEGLU_MAX_CINEMAS", 8),
					Client:               os.Getenv("SCRAPE_MOVIEGLU_CLIENT"),
					APIKey:               os.Getenv("SCRAPE_MOVIEGLU_API_KEY"),
					Authorization:        os.Getenv("SCRAPE_MOVIEGLU_AUTHORIZATION"),
					Territory:            getenv("SCRAPE_MOVIEGLU_TERRITORY", "IN"),
					APIVersion:           getenv("SCRAPE_MOVIEGLU_API_VERSION", "v201"),
					Geolocation:          getenv("SCRAPE_MOVIEGLU_GEOLOCATION", "20.59;78.96"),
					SandboxClient:        os.Getenv("SCRAPE_MOVIEGLU_SANDBOX_CLIENT"),
					SandboxAPIKey:        os.Getenv("SCRAPE_MOVIEGLU_SANDBOX_API_KEY"),
					SandboxAuthorization: os.Getenv("SCRAPE_MOVIEGLU_SANDBOX_AUTHORIZATION"),
					SandboxTerritory:     getenv("SCRAPE_MOVIEGLU_SANDBOX_TERRITORY", "XX"),
					SandboxAPIVersion:    getenv("SCRAPE_MOVIEGLU_SANDBOX_API_VERSION", "v201"),
					SandboxGeolocation:   getenv("SCRAPE_MOVIEGLU_SANDBOX_GEOLOCATION", "52.47;-1.93"),
				},
			},
			PincodeLookup: PincodeLookupConfig{
				Enabled: getenvBool("SCRAPE_PINCODE_LOOKUP_ENABLED", true),
				BaseURL: getenv("SCRAPE_PINCODE_LOOKUP_BASE_URL", "https://api.postalpincode.in/pincode/"),
			},
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// Location resolves the configured zone, falling back to UTC on a bad name.
func (c ScrapeConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Zone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseList(val string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(val, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// parsePairMap parses "411001:Pune,110001:New Delhi" style values.
func parsePairMap(val string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(val, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}
