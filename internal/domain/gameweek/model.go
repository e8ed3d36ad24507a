package gameweek

import "time"

// Result is the overall outcome of one gameweek across all players.
type Result struct {
	GameweekID   int
	AverageScore float64
	HighestScore int
	PlayerCount  int
	ComputedAt   time.Time
}
