package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATABASE_URL", "NATS_URL", "HTTP_ADDR", "OAUTH_STATE_SECRET",
		"STRAVA_CLIENT_ID", "STRAVA_CLIENT_SECRET", "STRAVA_REDIRECT_URL",
		"INGEST_COMMIT_MODE", "INGEST_AFTER", "INGEST_BEFORE", "INGEST_SCHEDULE_INTERVAL",
		"LOG_LEVEL", "ENV",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_FileWithDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
postgres:
  dsn: postgres://localhost/ctf
ingest:
  after: 100
  before: 200
  request_delay: 250ms
roster:
  groups:
    - team: North
      segments: [1, 2]
  challenges:
    - segment_id: 9
      start: 100
      end: 150
      owner: Dub
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/ctf", cfg.Postgres.DSN)
	assert.Equal(t, int64(100), cfg.Ingest.After)
	assert.Equal(t, int64(200), cfg.Ingest.Before)
	assert.Equal(t, 250*time.Millisecond, cfg.Ingest.RequestDelay)
	assert.Equal(t, 50, cfg.Ingest.PageSize)
	assert.Equal(t, 200*time.Millisecond, cfg.Ingest.AthleteDelay)
	assert.Equal(t, 60*time.Second, cfg.Ingest.RateLimitCooldown)
	assert.Equal(t, 10*time.Second, cfg.Ingest.HTTPTimeout)
	assert.Equal(t, DefaultMaxRateLimitRetries, cfg.Ingest.RateLimitRetries())
	assert.Equal(t, CommitModeRun, cfg.Ingest.CommitMode)
	assert.Equal(t, []string{"North", "South", "StPaul"}, cfg.Scoring.Teams)
	assert.Equal(t, "Dub", cfg.Scoring.NeutralOwner)
	require.Len(t, cfg.Roster.Groups, 1)
	assert.Equal(t, []int64{1, 2}, cfg.Roster.Groups[0].Segments)
	require.Len(t, cfg.Roster.Challenges, 1)
	assert.Equal(t, ChallengeWindow{SegmentID: 9, Start: 100, End: 150, Owner: "Dub"}, cfg.Roster.Challenges[0])
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "postgres:\n  dsn: postgres://file\n")
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("STRAVA_CLIENT_SECRET", "s3cret")
	t.Setenv("INGEST_COMMIT_MODE", CommitModeAthlete)
	t.Setenv("INGEST_SCHEDULE_INTERVAL", "15m")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env", cfg.Postgres.DSN)
	assert.Equal(t, "s3cret", cfg.Strava.ClientSecret)
	assert.Equal(t, CommitModeAthlete, cfg.Ingest.CommitMode)
	assert.Equal(t, 15*time.Minute, cfg.Ingest.ScheduleInterval)
}

func TestLoadConfig_MissingFileFallsBackToEnv(t *testing.T) {
	clearEnv(t)
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	_, err := LoadConfig(missing)
	require.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://env-only")
	cfg, err := LoadConfig(missing)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env-only", cfg.Postgres.DSN)
	assert.Empty(t, cfg.NATS.URL)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "unknown commit mode", mutate: func(c *Config) { c.Ingest.CommitMode = "page" }, wantErr: true},
		{name: "empty window", mutate: func(c *Config) { c.Ingest.After, c.Ingest.Before = 10, 10 }, wantErr: true},
		{name: "negative rate limit retries", mutate: func(c *Config) { n := -1; c.Ingest.MaxRateLimitRetries = &n }, wantErr: true},
		{name: "neutral owner is a team", mutate: func(c *Config) { c.Scoring.Teams = []string{"Dub", "North"} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.ApplyDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_ZeroRateLimitRetriesIsKept(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "postgres:\n  dsn: postgres://file\ningest:\n  max_rate_limit_retries: 0\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.Ingest.MaxRateLimitRetries)
	assert.Equal(t, 0, cfg.Ingest.RateLimitRetries())
}
