package stravaclient

import (
	"fmt"
	"time"
)

// Activity is the subset of an activity payload the pipeline reads. The list
// endpoint usually omits SegmentEfforts; the detail endpoint fills it.
type Activity struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	StartDateLocal string          `json:"start_date_local"`
	SegmentEfforts []SegmentEffort `json:"segment_efforts"`
}

// SegmentEffort is one timed segment pass inside an activity.
type SegmentEffort struct {
	ID             int64      `json:"id"`
	ElapsedTime    int        `json:"elapsed_time"`
	StartDateLocal string     `json:"start_date_local"`
	Segment        SegmentRef `json:"segment"`
}

// SegmentRef is the embedded segment summary of an effort.
type SegmentRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Segment is the segment detail payload.
type Segment struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ActivityQuery selects one page of an athlete's activity feed.
type ActivityQuery struct {
	After             int64
	Before            int64
	Page              int
	PerPage           int
	IncludeAllEfforts bool
}

// StartTime parses start_date_local. The provider formats local wall time with
// a trailing Z, so the value is read as UTC.
func (a Activity) StartTime() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, a.StartDateLocal)
	if err != nil {
		return time.Time{}, fmt.Errorf("activity %d: invalid start_date_local %q: %w", a.ID, a.StartDateLocal, err)
	}
	return t.UTC(), nil
}

// StartTime parses the effort's own start_date_local. Efforts without one
// report the given fallback, normally the activity start.
func (e SegmentEffort) StartTime(fallback time.Time) (time.Time, error) {
	if e.StartDateLocal == "" {
		return fallback, nil
	}
	t, err := time.Parse(time.RFC3339, e.StartDateLocal)
	if err != nil {
		return time.Time{}, fmt.Errorf("effort %d: invalid start_date_local %q: %w", e.ID, e.StartDateLocal, err)
	}
	return t.UTC(), nil
}
