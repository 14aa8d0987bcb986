package ingestqueue

import (
	"github.com/riverqueue/river"
)

// QueueIngest is the dedicated queue; it runs a single worker so ingestion
// runs never overlap.
const QueueIngest = "ingest"

// IngestRunArgs asks for one ingestion run. Zero After/Before use the
// configured window.
type IngestRunArgs struct {
	Reason string `json:"reason"`
	After  int64  `json:"after,omitempty"`
	Before int64  `json:"before,omitempty"`
}

// Kind returns the job type identifier for River
func (IngestRunArgs) Kind() string { return "ingest_run" }

// InsertOpts pins the job to the ingest queue. A failed run is reported, not retried.
func (IngestRunArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       QueueIngest,
		MaxAttempts: 1,
	}
}
