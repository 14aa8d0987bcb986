package teamdomain

// Reasons carried by StandingsChanged.
const (
	ReasonOwnershipSeeded = "ownership_seeded"
	ReasonAthleteAssigned = "athlete_assigned"
)

// StandingsChanged is announced after ownership or affiliation changes commit.
// Either can move flags without any new effort being ingested.
type StandingsChanged struct {
	Reason    string `json:"reason"`
	Segments  int    `json:"segments,omitempty"`
	AthleteID int64  `json:"athlete_id,omitempty"`
	Team      string `json:"team,omitempty"`
}
