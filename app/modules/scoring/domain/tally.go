package scoringdomain

import "slices"

// TeamTally accumulates points per team for one segment. It is created per
// scoring call and never shared.
type TeamTally struct {
	teams  []string
	points map[string]int
}

// NewTeamTally starts every team at zero.
func NewTeamTally(teams []string) *TeamTally {
	t := &TeamTally{
		teams:  slices.Clone(teams),
		points: make(map[string]int, len(teams)),
	}
	slices.Sort(t.teams)
	for _, team := range t.teams {
		t.points[team] = 0
	}
	return t
}

// Add credits points to team. Unknown teams are ignored.
func (t *TeamTally) Add(team string, points int) {
	if _, ok := t.points[team]; ok {
		t.points[team] += points
	}
}

// Leader returns the team with the highest total. Among tied leaders the
// preferred team wins if present, otherwise the lexicographically smallest.
func (t *TeamTally) Leader(preferred string) string {
	best := -1
	var tied []string
	for _, team := range t.teams {
		p := t.points[team]
		switch {
		case p > best:
			best = p
			tied = []string{team}
		case p == best:
			tied = append(tied, team)
		}
	}
	if len(tied) == 0 {
		return ""
	}
	if preferred != "" && slices.Contains(tied, preferred) {
		return preferred
	}
	return tied[0]
}

// Points returns a copy of the totals.
func (t *TeamTally) Points() map[string]int {
	out := make(map[string]int, len(t.points))
	for team, p := range t.points {
		out[team] = p
	}
	return out
}
