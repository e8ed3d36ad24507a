package statsfeed

// Elements is a pointer so an absent array field can be told apart
// from a present-but-empty one.
type liveEnvelope struct {
	Elements *[]liveElement `json:"elements"`
}

type liveElement struct {
	ID      int64              `json:"id"`
	Stats   liveElementStats   `json:"stats"`
	Explain []liveExplainBlock `json:"explain"`
}

// Numeric index metrics arrive as decimal strings from the provider.
type liveElementStats struct {
	Minutes         int    `json:"minutes"`
	GoalsScored     int    `json:"goals_scored"`
	Assists         int    `json:"assists"`
	CleanSheets     int    `json:"clean_sheets"`
	GoalsConceded   int    `json:"goals_conceded"`
	OwnGoals        int    `json:"own_goals"`
	PenaltiesSaved  int    `json:"penalties_saved"`
	PenaltiesMissed int    `json:"penalties_missed"`
	YellowCards     int    `json:"yellow_cards"`
	RedCards        int    `json:"red_cards"`
	Saves           int    `json:"saves"`
	Bonus           int    `json:"bonus"`
	BPS             int    `json:"bps"`
	Influence       string `json:"influence"`
	Creativity      string `json:"creativity"`
	Threat          string `json:"threat"`
	ICTIndex        string `json:"ict_index"`
	Starts          int    `json:"starts"`
	TotalPoints     int    `json:"total_points"`
	InDreamTeam     bool   `json:"in_dreamteam"`
}

type liveExplainBlock struct {
	Fixture int64              `json:"fixture"`
	Stats   []liveExplainEntry `json:"stats"`
}

type liveExplainEntry struct {
	Identifier string `json:"identifier"`
	Points     int    `json:"points"`
	Value      int    `json:"value"`
}
