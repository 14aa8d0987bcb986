package ingestdomain

import "time"

// Athlete identifies whose feed is being fetched.
type Athlete struct {
	ID   int64
	Name string
}

// Window is the fixed [After, Before] activity window in unix seconds.
type Window struct {
	After  int64 `json:"after"`
	Before int64 `json:"before"`
}

// FetchResult describes one athlete's completed fetch.
type FetchResult struct {
	Pages          int
	Activities     int
	DetailFetches  int
	MatchedEfforts int
	Inserted       int64
}

// Athlete outcomes within a run.
const (
	OutcomeIngested      = "ingested"
	OutcomeRefreshFailed = "refresh_failed"
	OutcomeFetchFailed   = "fetch_failed"
)

// AthleteReport is the per-athlete line of a run summary.
type AthleteReport struct {
	AthleteID int64  `json:"athlete_id"`
	Outcome   string `json:"outcome"`
	Inserted  int64  `json:"inserted"`
	Error     string `json:"error,omitempty"`
}

// RunSummary describes a committed ingestion run.
type RunSummary struct {
	RunID      string          `json:"run_id"`
	Window     Window          `json:"window"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Athletes   []AthleteReport `json:"athletes"`
	Inserted   int64           `json:"inserted"`
}

// Skipped counts athletes whose data was not ingested.
func (s RunSummary) Skipped() int {
	n := 0
	for _, a := range s.Athletes {
		if a.Outcome != OutcomeIngested {
			n++
		}
	}
	return n
}
