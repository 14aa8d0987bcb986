package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Commit modes for an ingestion run.
const (
	CommitModeRun     = "run"
	CommitModeAthlete = "athlete"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	HTTP          HTTPConfig          `yaml:"http"`
	Strava        StravaConfig        `yaml:"strava"`
	Ingest        IngestConfig        `yaml:"ingest"`
	Scoring       ScoringConfig       `yaml:"scoring"`
	Roster        RosterConfig        `yaml:"roster"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration. An empty URL selects the in-process bus.
type NATSConfig struct {
	URL string `yaml:"url"`
	// NKeySeed authenticates as a NATS user when set.
	NKeySeed string `yaml:"nkey_seed"`
}

// HTTPConfig holds the API server configuration.
type HTTPConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	StateSecret    string   `yaml:"state_secret"`
}

// StravaConfig holds the OAuth client and API endpoints.
type StravaConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
	APIBaseURL   string `yaml:"api_base_url"`
	AuthURL      string `yaml:"auth_url"`
	TokenURL     string `yaml:"token_url"`
	Scope        string `yaml:"scope"`
}

// IngestConfig controls the fetch window, pacing and transaction policy.
// After and Before are unix seconds.
type IngestConfig struct {
	After               int64         `yaml:"after"`
	Before              int64         `yaml:"before"`
	PageSize            int           `yaml:"page_size"`
	RequestDelay        time.Duration `yaml:"request_delay"`
	AthleteDelay        time.Duration `yaml:"athlete_delay"`
	RateLimitCooldown   time.Duration `yaml:"rate_limit_cooldown"`
	MaxRateLimitRetries *int          `yaml:"max_rate_limit_retries"`
	HTTPTimeout         time.Duration `yaml:"http_timeout"`
	ScheduleInterval    time.Duration `yaml:"schedule_interval"`
	RunOnStart          bool          `yaml:"run_on_start"`
	JobTimeout          time.Duration `yaml:"job_timeout"`
	CommitMode          string        `yaml:"commit_mode"`
}

// DefaultMaxRateLimitRetries applies when max_rate_limit_retries is unset.
// An explicit 0 fails on the first rate-limited response.
const DefaultMaxRateLimitRetries = 5

// RateLimitRetries returns the configured retry cap or the default when unset.
func (c IngestConfig) RateLimitRetries() int {
	if c.MaxRateLimitRetries == nil {
		return DefaultMaxRateLimitRetries
	}
	return *c.MaxRateLimitRetries
}

// ScoringConfig lists the competing teams and the neutral owner name.
type ScoringConfig struct {
	Teams        []string `yaml:"teams"`
	NeutralOwner string   `yaml:"neutral_owner"`
}

// RosterConfig is the segment roster: static groups plus time-boxed challenges.
type RosterConfig struct {
	Groups     []RosterGroup     `yaml:"groups"`
	Challenges []ChallengeWindow `yaml:"challenges"`
}

// RosterGroup is a team's home segments.
type RosterGroup struct {
	Team     string  `yaml:"team"`
	Segments []int64 `yaml:"segments"`
}

// ChallengeWindow makes a segment valid for activities in [Start, End).
type ChallengeWindow struct {
	SegmentID int64  `yaml:"segment_id"`
	Start     int64  `yaml:"start"`
	End       int64  `yaml:"end"`
	Owner     string `yaml:"owner"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	ServiceName string `yaml:"service_name"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		// If the file is not found, try loading from environment variables
		return loadConfigFromEnv()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("NATS_NKEY_SEED"); v != "" {
		cfg.NATS.NKeySeed = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("OAUTH_STATE_SECRET"); v != "" {
		cfg.HTTP.StateSecret = v
	}
	if v := os.Getenv("STRAVA_CLIENT_ID"); v != "" {
		cfg.Strava.ClientID = v
	}
	if v := os.Getenv("STRAVA_CLIENT_SECRET"); v != "" {
		cfg.Strava.ClientSecret = v
	}
	if v := os.Getenv("STRAVA_REDIRECT_URL"); v != "" {
		cfg.Strava.RedirectURL = v
	}
	if v := os.Getenv("INGEST_COMMIT_MODE"); v != "" {
		cfg.Ingest.CommitMode = v
	}
	if v := os.Getenv("INGEST_AFTER"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid INGEST_AFTER value: %w", err)
		}
		cfg.Ingest.After = n
	}
	if v := os.Getenv("INGEST_BEFORE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid INGEST_BEFORE value: %w", err)
		}
		cfg.Ingest.Before = n
	}
	if v := os.Getenv("INGEST_SCHEDULE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid INGEST_SCHEDULE_INTERVAL value: %w", err)
		}
		cfg.Ingest.ScheduleInterval = d
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	return nil
}

// loadConfigFromEnv loads the configuration from environment variables.
// The roster cannot be expressed in the environment, so it stays empty.
func loadConfigFromEnv() (*Config, error) {
	var cfg Config

	cfg.Postgres.DSN = os.Getenv("DATABASE_URL")
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills every unset knob with its production value.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Strava.APIBaseURL == "" {
		c.Strava.APIBaseURL = "https://www.strava.com/api/v3"
	}
	if c.Strava.AuthURL == "" {
		c.Strava.AuthURL = "https://www.strava.com/oauth/authorize"
	}
	if c.Strava.TokenURL == "" {
		c.Strava.TokenURL = "https://www.strava.com/oauth/token"
	}
	if c.Strava.Scope == "" {
		c.Strava.Scope = "activity:read_all"
	}
	if c.Ingest.PageSize <= 0 {
		c.Ingest.PageSize = 50
	}
	if c.Ingest.RequestDelay == 0 {
		c.Ingest.RequestDelay = 100 * time.Millisecond
	}
	if c.Ingest.AthleteDelay == 0 {
		c.Ingest.AthleteDelay = 200 * time.Millisecond
	}
	if c.Ingest.RateLimitCooldown == 0 {
		c.Ingest.RateLimitCooldown = 60 * time.Second
	}
	if c.Ingest.MaxRateLimitRetries == nil {
		retries := DefaultMaxRateLimitRetries
		c.Ingest.MaxRateLimitRetries = &retries
	}
	if c.Ingest.HTTPTimeout == 0 {
		c.Ingest.HTTPTimeout = 10 * time.Second
	}
	if c.Ingest.ScheduleInterval == 0 {
		c.Ingest.ScheduleInterval = time.Hour
	}
	if c.Ingest.JobTimeout == 0 {
		c.Ingest.JobTimeout = 2 * time.Hour
	}
	if c.Ingest.CommitMode == "" {
		c.Ingest.CommitMode = CommitModeRun
	}
	if len(c.Scoring.Teams) == 0 {
		c.Scoring.Teams = []string{"North", "South", "StPaul"}
	}
	if c.Scoring.NeutralOwner == "" {
		c.Scoring.NeutralOwner = "Dub"
	}
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = "segment-ctf"
	}
	if c.Observability.LogLevel == "" {
		c.Observability.LogLevel = "info"
	}
}

// Validate rejects settings the ingestion pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Ingest.CommitMode {
	case CommitModeRun, CommitModeAthlete:
	default:
		return fmt.Errorf("invalid ingest.commit_mode %q: want %q or %q", c.Ingest.CommitMode, CommitModeRun, CommitModeAthlete)
	}
	if c.Ingest.RateLimitRetries() < 0 {
		return fmt.Errorf("invalid ingest.max_rate_limit_retries %d: must not be negative", c.Ingest.RateLimitRetries())
	}
	if c.Ingest.After != 0 && c.Ingest.Before != 0 && c.Ingest.After >= c.Ingest.Before {
		return fmt.Errorf("ingest window is empty: after=%d before=%d", c.Ingest.After, c.Ingest.Before)
	}
	for _, team := range c.Scoring.Teams {
		if team == c.Scoring.NeutralOwner {
			return fmt.Errorf("neutral owner %q cannot also be a team", team)
		}
	}
	return nil
}
