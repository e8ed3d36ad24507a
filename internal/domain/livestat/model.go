package livestat

import "time"

// Record is one player's raw performance line for one gameweek.
// Uniquely keyed by (GameweekID, PlayerID); rows are overwritten by
// later syncs, never deleted individually.
type Record struct {
	GameweekID      int
	PlayerID        int64
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
	Influence       float64
	Creativity      float64
	Threat          float64
	ICTIndex        float64
	Starts          int
	TotalPoints     int
	InDreamTeam     bool
	SourceUpdatedAt *time.Time
}
