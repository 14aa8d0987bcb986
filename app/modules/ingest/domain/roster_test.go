package ingestdomain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keys(s SegmentSet) []int64 {
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}

func TestNewRoster_Validation(t *testing.T) {
	tests := []struct {
		name       string
		groups     []Group
		challenges []Challenge
		wantErr    bool
	}{
		{
			name:   "valid roster",
			groups: []Group{{Team: "North", Segments: []int64{1, 2}}, {Team: "South", Segments: []int64{3}}},
			challenges: []Challenge{
				{SegmentID: 10, Start: 100, End: 200, Owner: "Dub"},
				{SegmentID: 10, Start: 200, End: 300, Owner: "Dub"},
			},
		},
		{
			name:       "empty window",
			challenges: []Challenge{{SegmentID: 10, Start: 200, End: 200}},
			wantErr:    true,
		},
		{
			name:       "inverted window",
			challenges: []Challenge{{SegmentID: 10, Start: 300, End: 200}},
			wantErr:    true,
		},
		{
			name: "overlapping windows on the same segment",
			challenges: []Challenge{
				{SegmentID: 10, Start: 100, End: 250},
				{SegmentID: 10, Start: 200, End: 300},
			},
			wantErr: true,
		},
		{
			name: "overlapping windows on different segments are fine",
			challenges: []Challenge{
				{SegmentID: 10, Start: 100, End: 250},
				{SegmentID: 11, Start: 200, End: 300},
			},
		},
		{
			name:    "segment in two groups",
			groups:  []Group{{Team: "North", Segments: []int64{1}}, {Team: "South", Segments: []int64{1}}},
			wantErr: true,
		},
		{
			name:    "group without team",
			groups:  []Group{{Segments: []int64{1}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRoster(tt.groups, tt.challenges)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRoster)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRoster_Resolve(t *testing.T) {
	roster, err := NewRoster(
		[]Group{{Team: "North", Segments: []int64{1, 2}}, {Team: "South", Segments: []int64{3}}},
		[]Challenge{
			{SegmentID: 37250565, Start: 1751864400, End: 1751950800, Owner: "Dub"},
			{SegmentID: 39505193, Start: 1751950800, End: 1752037200, Owner: "Dub"},
			{SegmentID: 37433791, Start: 1752037200, End: 1752123600, Owner: "Dub"},
		},
	)
	require.NoError(t, err)

	tests := []struct {
		name string
		ts   int64
		want []int64
	}{
		{name: "before every window", ts: 1751864399, want: []int64{1, 2, 3}},
		{name: "window start is inclusive", ts: 1751864400, want: []int64{1, 2, 3, 37250565}},
		{name: "window end is exclusive", ts: 1751950800, want: []int64{1, 2, 3, 39505193}},
		{name: "last window", ts: 1752123599, want: []int64{1, 2, 3, 37433791}},
		{name: "after every window", ts: 1752123600, want: []int64{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.want, keys(roster.Resolve(tt.ts)))
		})
	}
}

func TestRoster_ResolveDoesNotLeakStaticSet(t *testing.T) {
	roster, err := NewRoster([]Group{{Team: "North", Segments: []int64{1}}}, nil)
	require.NoError(t, err)

	got := roster.Resolve(0)
	got[99] = struct{}{}

	assert.False(t, roster.Resolve(0).Contains(99))
}

func TestRoster_Owners(t *testing.T) {
	roster, err := NewRoster(
		[]Group{{Team: "North", Segments: []int64{1}}, {Team: "South", Segments: []int64{2}}},
		[]Challenge{
			{SegmentID: 9, Start: 0, End: 10, Owner: "Dub"},
			{SegmentID: 2, Start: 0, End: 10, Owner: "Dub"},
		},
	)
	require.NoError(t, err)

	assert.Equal(t, map[int64]string{1: "North", 2: "South", 9: "Dub"}, roster.Owners())
}

func TestSegmentCache(t *testing.T) {
	c := NewSegmentCache()

	_, seen := c.Lookup(5)
	assert.False(t, seen)

	c.MarkMissing(5)
	name, seen := c.Lookup(5)
	assert.True(t, seen)
	assert.Empty(t, name)

	c.Store(5, "Hill Climb")
	name, seen = c.Lookup(5)
	assert.True(t, seen)
	assert.Equal(t, "Hill Climb", name)

	c.MarkMissing(5)
	name, _ = c.Lookup(5)
	assert.Equal(t, "Hill Climb", name)
	assert.Equal(t, 1, c.Len())
}

func TestRunSummary_Skipped(t *testing.T) {
	s := RunSummary{Athletes: []AthleteReport{
		{AthleteID: 1, Outcome: OutcomeIngested},
		{AthleteID: 2, Outcome: OutcomeRefreshFailed},
		{AthleteID: 3, Outcome: OutcomeFetchFailed},
	}}
	assert.Equal(t, 2, s.Skipped())
}
