package httpapi

import (
	"time"

	"github.com/matchpulse/livesync/internal/domain/explain"
	"github.com/matchpulse/livesync/internal/domain/gameweek"
	"github.com/matchpulse/livesync/internal/domain/jobaudit"
	"github.com/matchpulse/livesync/internal/domain/livestat"
	"github.com/matchpulse/livesync/internal/domain/summary"
)

type liveStatDTO struct {
	GameweekID      int        `json:"gameweek_id"`
	PlayerID        int64      `json:"player_id"`
	Minutes         int        `json:"minutes"`
	GoalsScored     int        `json:"goals_scored"`
	Assists         int        `json:"assists"`
	CleanSheets     int        `json:"clean_sheets"`
	GoalsConceded   int        `json:"goals_conceded"`
	OwnGoals        int        `json:"own_goals"`
	PenaltiesSaved  int        `json:"penalties_saved"`
	PenaltiesMissed int        `json:"penalties_missed"`
	YellowCards     int        `json:"yellow_cards"`
	RedCards        int        `json:"red_cards"`
	Saves           int        `json:"saves"`
	Bonus           int        `json:"bonus"`
	BPS             int        `json:"bps"`
	Influence       float64    `json:"influence"`
	Creativity      float64    `json:"creativity"`
	Threat          float64    `json:"threat"`
	ICTIndex        float64    `json:"ict_index"`
	Starts          int        `json:"starts"`
	TotalPoints     int        `json:"total_points"`
	InDreamTeam     bool       `json:"in_dreamteam"`
	SourceUpdatedAt *time.Time `json:"source_updated_at,omitempty"`
}

func liveStatToDTO(record livestat.Record) liveStatDTO {
	return liveStatDTO{
		GameweekID:      record.GameweekID,
		PlayerID:        record.PlayerID,
		Minutes:         record.Minutes,
		GoalsScored:     record.GoalsScored,
		Assists:         record.Assists,
		CleanSheets:     record.CleanSheets,
		GoalsConceded:   record.GoalsConceded,
		OwnGoals:        record.OwnGoals,
		PenaltiesSaved:  record.PenaltiesSaved,
		PenaltiesMissed: record.PenaltiesMissed,
		YellowCards:     record.YellowCards,
		RedCards:        record.RedCards,
		Saves:           record.Saves,
		Bonus:           record.Bonus,
		BPS:             record.BPS,
		Influence:       record.Influence,
		Creativity:      record.Creativity,
		Threat:          record.Threat,
		ICTIndex:        record.ICTIndex,
		Starts:          record.Starts,
		TotalPoints:     record.TotalPoints,
		InDreamTeam:     record.InDreamTeam,
		SourceUpdatedAt: record.SourceUpdatedAt,
	}
}

type explainDTO struct {
	GameweekID            int   `json:"gameweek_id"`
	PlayerID              int64 `json:"player_id"`
	MinutesPoints         int   `json:"minutes_points"`
	GoalsScoredPoints     int   `json:"goals_scored_points"`
	AssistsPoints         int   `json:"assists_points"`
	CleanSheetsPoints     int   `json:"clean_sheets_points"`
	GoalsConcededPoints   int   `json:"goals_conceded_points"`
	OwnGoalsPoints        int   `json:"own_goals_points"`
	PenaltiesSavedPoints  int   `json:"penalties_saved_points"`
	PenaltiesMissedPoints int   `json:"penalties_missed_points"`
	YellowCardsPoints     int   `json:"yellow_cards_points"`
	RedCardsPoints        int   `json:"red_cards_points"`
	SavesPoints           int   `json:"saves_points"`
	BonusPoints           int   `json:"bonus_points"`
	TotalPoints           int   `json:"total_points"`
}

func explainToDTO(record explain.Record) explainDTO {
	return explainDTO{
		GameweekID:            record.GameweekID,
		PlayerID:              record.PlayerID,
		MinutesPoints:         record.MinutesPoints,
		GoalsScoredPoints:     record.GoalsScoredPoints,
		AssistsPoints:         record.AssistsPoints,
		CleanSheetsPoints:     record.CleanSheetsPoints,
		GoalsConcededPoints:   record.GoalsConcededPoints,
		OwnGoalsPoints:        record.OwnGoalsPoints,
		PenaltiesSavedPoints:  record.PenaltiesSavedPoints,
		PenaltiesMissedPoints: record.PenaltiesMissedPoints,
		YellowCardsPoints:     record.YellowCardsPoints,
		RedCardsPoints:        record.RedCardsPoints,
		SavesPoints:           record.SavesPoints,
		BonusPoints:           record.BonusPoints,
		TotalPoints:           record.TotalPoints,
	}
}

type playerSummaryDTO struct {
	PlayerID        int64     `json:"player_id"`
	TeamID          int64     `json:"team_id"`
	PositionType    string    `json:"position_type"`
	GameweeksPlayed int       `json:"gameweeks_played"`
	Minutes         int       `json:"minutes"`
	GoalsScored     int       `json:"goals_scored"`
	Assists         int       `json:"assists"`
	CleanSheets     int       `json:"clean_sheets"`
	GoalsConceded   int       `json:"goals_conceded"`
	OwnGoals        int       `json:"own_goals"`
	PenaltiesSaved  int       `json:"penalties_saved"`
	PenaltiesMissed int       `json:"penalties_missed"`
	YellowCards     int       `json:"yellow_cards"`
	RedCards        int       `json:"red_cards"`
	Saves           int       `json:"saves"`
	Bonus           int       `json:"bonus"`
	BPS             int       `json:"bps"`
	TotalPoints     int       `json:"total_points"`
	ComputedAt      time.Time `json:"computed_at"`
}

func playerSummaryToDTO(record summary.Record) playerSummaryDTO {
	return playerSummaryDTO{
		PlayerID:        record.PlayerID,
		TeamID:          record.TeamID,
		PositionType:    record.PositionType,
		GameweeksPlayed: record.GameweeksPlayed,
		Minutes:         record.Minutes,
		GoalsScored:     record.GoalsScored,
		Assists:         record.Assists,
		CleanSheets:     record.CleanSheets,
		GoalsConceded:   record.GoalsConceded,
		OwnGoals:        record.OwnGoals,
		PenaltiesSaved:  record.PenaltiesSaved,
		PenaltiesMissed: record.PenaltiesMissed,
		YellowCards:     record.YellowCards,
		RedCards:        record.RedCards,
		Saves:           record.Saves,
		Bonus:           record.Bonus,
		BPS:             record.BPS,
		TotalPoints:     record.TotalPoints,
		ComputedAt:      record.ComputedAt,
	}
}

type gameweekResultDTO struct {
	GameweekID   int       `json:"gameweek_id"`
	AverageScore float64   `json:"average_score"`
	HighestScore int       `json:"highest_score"`
	PlayerCount  int       `json:"player_count"`
	ComputedAt   time.Time `json:"computed_at"`
}

func gameweekResultToDTO(result gameweek.Result) gameweekResultDTO {
	return gameweekResultDTO{
		GameweekID:   result.GameweekID,
		AverageScore: result.AverageScore,
		HighestScore: result.HighestScore,
		PlayerCount:  result.PlayerCount,
		ComputedAt:   result.ComputedAt,
	}
}

type jobEnqueuedDTO struct {
	JobID      string `json:"job_id"`
	Kind       string `json:"kind"`
	GameweekID int    `json:"gameweek_id"`
	Deduped    bool   `json:"deduped"`
}

type jobAuditEventDTO struct {
	JobID        string    `json:"job_id"`
	Kind         string    `json:"kind"`
	GameweekID   int       `json:"gameweek_id"`
	Source       string    `json:"source"`
	Status       string    `json:"status"`
	Attempt      int       `json:"attempt"`
	ErrorMessage string    `json:"error_message,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
	TraceID      string    `json:"trace_id,omitempty"`
	SpanID       string    `json:"span_id,omitempty"`
}

func jobAuditEventToDTO(event jobaudit.AttemptEvent) jobAuditEventDTO {
	return jobAuditEventDTO{
		JobID:        event.JobID,
		Kind:         event.Kind,
		GameweekID:   event.GameweekID,
		Source:       event.Source,
		Status:       string(event.Status),
		Attempt:      event.Attempt,
		ErrorMessage: event.ErrorMessage,
		OccurredAt:   event.OccurredAt,
		TraceID:      event.TraceID,
		SpanID:       event.SpanID,
	}
}
