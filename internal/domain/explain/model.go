package explain

// Record holds the points attributable to each stat for one player in
// one gameweek. Same key space as the raw live stats, derived from the
// same upstream fetch, but stored in its own table and cache namespace.
type Record struct {
	GameweekID            int
	PlayerID              int64
	MinutesPoints         int
	GoalsScoredPoints     int
	AssistsPoints         int
	CleanSheetsPoints     int
	GoalsConcededPoints   int
	OwnGoalsPoints        int
	PenaltiesSavedPoints  int
	PenaltiesMissedPoints int
	YellowCardsPoints     int
	RedCardsPoints        int
	SavesPoints           int
	BonusPoints           int
	TotalPoints           int
}
