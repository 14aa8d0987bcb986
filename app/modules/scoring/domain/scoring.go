package scoringdomain

import (
	"cmp"
	"slices"
)

// Scoring policies.
const (
	PolicyRank          = "rank"
	PolicyParticipation = "participation"
)

// Segment results.
const (
	ResultDefended = "defended"
	ResultCaptured = "captured"
	ResultClaimed  = "claimed"
)

// Flags awarded per segment.
const (
	DefendFlags  = 1
	CaptureFlags = 2
)

// Effort is a stored segment effort with the athlete's team resolved. Team is
// empty when the athlete has no affiliation.
type Effort struct {
	AthleteID   int64
	Team        string
	SegmentID   int64
	SegmentName string
	ActivityID  int64
	ElapsedTime int
}

// FlagsResult maps every configured team to its flag total.
type FlagsResult map[string]int

// SegmentOutcome explains how one segment was scored.
type SegmentOutcome struct {
	SegmentID   int64          `json:"segment_id"`
	SegmentName string         `json:"segment_name"`
	Owner       string         `json:"owner"`
	Policy      string         `json:"policy"`
	Efforts     int            `json:"efforts"`
	Points      map[string]int `json:"points"`
	Winner      string         `json:"winner"`
	Flags       int            `json:"flags"`
	Result      string         `json:"result"`
}

// Rules carries the team list and the neutral owner name.
type Rules struct {
	Teams        []string
	NeutralOwner string
}

func (r Rules) isTeam(name string) bool {
	return slices.Contains(r.Teams, name)
}

// ComputeFlags totals flags per team over every scorable segment.
func ComputeFlags(rules Rules, efforts []Effort, owners map[int64]string) FlagsResult {
	return Tally(rules, ScoreSegments(rules, efforts, owners))
}

// Tally sums outcome flags into a result holding exactly the configured teams.
func Tally(rules Rules, outcomes []SegmentOutcome) FlagsResult {
	result := make(FlagsResult, len(rules.Teams))
	for _, team := range rules.Teams {
		result[team] = 0
	}
	for _, o := range outcomes {
		if _, ok := result[o.Winner]; ok {
			result[o.Winner] += o.Flags
		}
	}
	return result
}

// ScoreSegments scores each segment that has an owner and at least one
// effort by an athlete on a configured team. Outcomes are ordered by segment ID.
func ScoreSegments(rules Rules, efforts []Effort, owners map[int64]string) []SegmentOutcome {
	bySegment := make(map[int64][]Effort)
	for _, e := range efforts {
		if !rules.isTeam(e.Team) {
			continue
		}
		bySegment[e.SegmentID] = append(bySegment[e.SegmentID], e)
	}

	ids := make([]int64, 0, len(bySegment))
	for id := range bySegment {
		if _, owned := owners[id]; owned {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	outcomes := make([]SegmentOutcome, 0, len(ids))
	for _, id := range ids {
		owner := owners[id]
		if owner == rules.NeutralOwner {
			outcomes = append(outcomes, scoreParticipation(rules, id, owner, bySegment[id]))
		} else {
			outcomes = append(outcomes, scoreRank(rules, id, owner, bySegment[id]))
		}
	}
	return outcomes
}

// scoreParticipation awards the segment to the team with the most efforts.
func scoreParticipation(rules Rules, segmentID int64, owner string, efforts []Effort) SegmentOutcome {
	tally := NewTeamTally(rules.Teams)
	for _, e := range efforts {
		tally.Add(e.Team, 1)
	}
	winner := tally.Leader("")
	return SegmentOutcome{
		SegmentID:   segmentID,
		SegmentName: segmentName(efforts),
		Owner:       owner,
		Policy:      PolicyParticipation,
		Efforts:     len(efforts),
		Points:      tally.Points(),
		Winner:      winner,
		Flags:       CaptureFlags,
		Result:      ResultClaimed,
	}
}

// scoreRank applies True Team scoring: with N efforts the fastest earns N
// points and the slowest 1. Equal times are ordered by athlete then activity.
func scoreRank(rules Rules, segmentID int64, owner string, efforts []Effort) SegmentOutcome {
	ranked := slices.Clone(efforts)
	slices.SortFunc(ranked, func(a, b Effort) int {
		if c := cmp.Compare(a.ElapsedTime, b.ElapsedTime); c != 0 {
			return c
		}
		if c := cmp.Compare(a.AthleteID, b.AthleteID); c != 0 {
			return c
		}
		return cmp.Compare(a.ActivityID, b.ActivityID)
	})

	n := len(ranked)
	tally := NewTeamTally(rules.Teams)
	for i, e := range ranked {
		tally.Add(e.Team, n-i)
	}

	winner := tally.Leader(owner)
	outcome := SegmentOutcome{
		SegmentID:   segmentID,
		SegmentName: segmentName(efforts),
		Owner:       owner,
		Policy:      PolicyRank,
		Efforts:     n,
		Points:      tally.Points(),
		Winner:      winner,
	}
	if winner == owner {
		outcome.Flags = DefendFlags
		outcome.Result = ResultDefended
	} else {
		outcome.Flags = CaptureFlags
		outcome.Result = ResultCaptured
	}
	return outcome
}

func segmentName(efforts []Effort) string {
	for _, e := range efforts {
		if e.SegmentName != "" {
			return e.SegmentName
		}
	}
	return ""
}
