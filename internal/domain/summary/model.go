package summary

import "time"

// Record is one player's season-to-date totals, denormalized with team
// and position for fast filtering. The full record set is a
// materialized view over the raw gameweek rows: it is always replaced
// wholesale by a recomputation, never patched in place.
type Record struct {
	PlayerID        int64
	TeamID          int64
	PositionType    string
	GameweeksPlayed int
	Minutes         int
	GoalsScored     int
	Assists         int
	CleanSheets     int
	GoalsConceded   int
	OwnGoals        int
	PenaltiesSaved  int
	PenaltiesMissed int
	YellowCards     int
	RedCards        int
	Saves           int
	Bonus           int
	BPS             int
	TotalPoints     int
	ComputedAt      time.Time
}
