package player

import "fmt"

// Position represents the position categories carried on summary rows.
type Position string

const (
	PositionGoalkeeper Position = "GK"
	PositionDefender   Position = "DEF"
	PositionMidfielder Position = "MID"
	PositionForward    Position = "FWD"
)

var AllPositions = map[Position]struct{}{
	PositionGoalkeeper: {},
	PositionDefender:   {},
	PositionMidfielder: {},
	PositionForward:    {},
}

// Player is the static metadata joined onto aggregate views. It changes
// rarely compared to the live rows, so reads go through a caching
// decorator.
type Player struct {
	ID       int64
	Name     string
	TeamID   int64
	Position Position
}

func (p Player) Validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("player id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("player name is required")
	}
	if p.TeamID <= 0 {
		return fmt.Errorf("player team id is required")
	}
	if _, ok := AllPositions[p.Position]; !ok {
		return fmt.Errorf("invalid player position: %s", p.Position)
	}

	return nil
}
