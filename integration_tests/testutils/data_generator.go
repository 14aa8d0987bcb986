package testutils

import (
	"time"

	"github.com/brianvoe/gofakeit/v7"

	effortdb "github.com/Black-And-White-Club/segment-ctf/app/modules/effort/infrastructure/repositories"
)

// TestDataGenerator creates randomized but reproducible rows for integration tests.
type TestDataGenerator struct {
	faker *gofakeit.Faker
	seed  int64
}

// NewTestDataGenerator creates a generator. Without a seed the current time is used.
func NewTestDataGenerator(seed ...int64) *TestDataGenerator {
	s := time.Now().UnixNano()
	if len(seed) > 0 {
		s = seed[0]
	}
	return &TestDataGenerator{faker: gofakeit.New(uint64(s)), seed: s}
}

// Seed reports the generator's seed so failures can be replayed.
func (g *TestDataGenerator) Seed() int64 { return g.seed }

// Effort returns an effort for the athlete on the segment with a random
// activity, name and start time inside July 2025.
func (g *TestDataGenerator) Effort(athleteID, segmentID int64, elapsed int) effortdb.SegmentEffort {
	start := time.Date(2025, time.July, 7, 5, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.July, 14, 0, 0, 0, 0, time.UTC)
	return effortdb.SegmentEffort{
		AthleteID:      athleteID,
		AthleteName:    g.faker.Name(),
		SegmentID:      segmentID,
		SegmentName:    g.faker.Street(),
		ActivityID:     int64(g.faker.IntRange(1_000_000, 9_999_999_999)),
		ElapsedTime:    elapsed,
		StartDateLocal: g.faker.DateRange(start, end).UTC(),
	}
}

// Efforts returns n efforts by distinct random athletes on one segment.
func (g *TestDataGenerator) Efforts(segmentID int64, n int) []effortdb.SegmentEffort {
	out := make([]effortdb.SegmentEffort, 0, n)
	seen := make(map[int64]bool, n)
	for len(out) < n {
		athleteID := int64(g.faker.IntRange(1, 99_999_999))
		if seen[athleteID] {
			continue
		}
		seen[athleteID] = true
		out = append(out, g.Effort(athleteID, segmentID, g.faker.IntRange(60, 3600)))
	}
	return out
}
