package ingestdomain

import (
	"cmp"
	"fmt"
	"slices"
)

// SegmentSet is a set of segment IDs.
type SegmentSet map[int64]struct{}

// Contains reports whether id is in the set.
func (s SegmentSet) Contains(id int64) bool {
	_, ok := s[id]
	return ok
}

// Group is a team's always-tracked home segments.
type Group struct {
	Team     string
	Segments []int64
}

// Challenge is a time-boxed segment, in scope for activities with Start <= ts < End.
type Challenge struct {
	SegmentID int64
	Start     int64
	End       int64
	Owner     string
}

// Contains reports whether ts falls inside the half-open window.
func (c Challenge) Contains(ts int64) bool {
	return c.Start <= ts && ts < c.End
}

// Roster answers which segments are in scope for a given activity timestamp.
// It is immutable once built.
type Roster struct {
	groups     []Group
	challenges []Challenge
	static     SegmentSet
}

// NewRoster validates and builds a roster. Static segments may belong to only
// one group; challenge windows must be non-empty and must not overlap other
// windows of the same segment.
func NewRoster(groups []Group, challenges []Challenge) (*Roster, error) {
	static := make(SegmentSet)
	seenIn := make(map[int64]string)
	for _, g := range groups {
		if g.Team == "" {
			return nil, fmt.Errorf("%w: group with empty team name", ErrInvalidRoster)
		}
		for _, id := range g.Segments {
			if prev, dup := seenIn[id]; dup {
				return nil, fmt.Errorf("%w: segment %d listed for both %s and %s", ErrInvalidRoster, id, prev, g.Team)
			}
			seenIn[id] = g.Team
			static[id] = struct{}{}
		}
	}

	sorted := slices.Clone(challenges)
	slices.SortFunc(sorted, func(a, b Challenge) int {
		if c := cmp.Compare(a.SegmentID, b.SegmentID); c != 0 {
			return c
		}
		return cmp.Compare(a.Start, b.Start)
	})
	for i, c := range sorted {
		if c.Start >= c.End {
			return nil, fmt.Errorf("%w: challenge segment %d has empty window [%d, %d)", ErrInvalidRoster, c.SegmentID, c.Start, c.End)
		}
		if i > 0 {
			prev := sorted[i-1]
			if prev.SegmentID == c.SegmentID && c.Start < prev.End {
				return nil, fmt.Errorf("%w: challenge segment %d windows [%d, %d) and [%d, %d) overlap",
					ErrInvalidRoster, c.SegmentID, prev.Start, prev.End, c.Start, c.End)
			}
		}
	}

	return &Roster{
		groups:     slices.Clone(groups),
		challenges: sorted,
		static:     static,
	}, nil
}

// Resolve returns the static roster plus every challenge segment whose window contains ts.
func (r *Roster) Resolve(ts int64) SegmentSet {
	out := make(SegmentSet, len(r.static)+1)
	for id := range r.static {
		out[id] = struct{}{}
	}
	for _, c := range r.challenges {
		if c.Contains(ts) {
			out[c.SegmentID] = struct{}{}
		}
	}
	return out
}

// Groups returns the static groups.
func (r *Roster) Groups() []Group { return slices.Clone(r.groups) }

// Challenges returns the challenge windows sorted by segment then start.
func (r *Roster) Challenges() []Challenge { return slices.Clone(r.challenges) }

// Owners maps every roster segment to its initial owner. Home segments belong
// to their group's team; a challenge segment takes its window's owner unless it
// is also a home segment.
func (r *Roster) Owners() map[int64]string {
	owners := make(map[int64]string)
	for _, c := range r.challenges {
		if c.Owner != "" {
			owners[c.SegmentID] = c.Owner
		}
	}
	for _, g := range r.groups {
		for _, id := range g.Segments {
			owners[id] = g.Team
		}
	}
	return owners
}
