package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/matchpulse/livesync/internal/domain/summary"
	qb "github.com/matchpulse/livesync/internal/platform/querybuilder"
)

type SummaryRepository struct {
	db *sqlx.DB
}

func NewSummaryRepository(db *sqlx.DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

func (r *SummaryRepository) ListAll(ctx context.Context) ([]summary.Record, error) {
	query, args, err := qb.Select(summaryColumns...).From("player_summaries").
		Where(qb.IsNull("deleted_at")).
		OrderBy("total_points DESC", "player_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list player summaries query: %w", err)
	}

	var rows []summaryRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list player summaries: %w", err)
	}

	out := make([]summary.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapSummaryRow(row))
	}
	return out, nil
}

func (r *SummaryRepository) GetByPlayer(ctx context.Context, playerID int64) (summary.Record, bool, error) {
	query, args, err := qb.Select(summaryColumns...).From("player_summaries").
		Where(
			qb.Eq("player_id", playerID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return summary.Record{}, false, fmt.Errorf("build get player summary query: %w", err)
	}

	var row summaryRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return summary.Record{}, false, nil
		}
		return summary.Record{}, false, fmt.Errorf("get player summary player=%d: %w", playerID, err)
	}

	return mapSummaryRow(row), true, nil
}

// ReplaceAll swaps the whole materialized view in one transaction: the
// prior generation is soft-deleted, then every fresh row is upserted
// with deleted_at reset. Readers never observe a mixed generation.
func (r *SummaryRepository) ReplaceAll(ctx context.Context, records []summary.Record) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx replace player summaries: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	clearQuery, clearArgs, err := qb.Update("player_summaries").
		SetExpr("deleted_at", "NOW()").
		Where(qb.IsNull("deleted_at")).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build clear player summaries query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, clearQuery, clearArgs...); err != nil {
		return fmt.Errorf("clear player summaries: %w", err)
	}

	for _, record := range records {
		insertModel := summaryInsertModel{
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

		query, args, err := qb.InsertModel("player_summaries", insertModel, `ON CONFLICT (player_id) WHERE deleted_at IS NULL
DO UPDATE SET
    team_id = EXCLUDED.team_id,
    position_type = EXCLUDED.position_type,
    gameweeks_played = EXCLUDED.gameweeks_played,
    minutes = EXCLUDED.minutes,
    goals_scored = EXCLUDED.goals_scored,
    assists = EXCLUDED.assists,
    clean_sheets = EXCLUDED.clean_sheets,
    goals_conceded = EXCLUDED.goals_conceded,
    own_goals = EXCLUDED.own_goals,
    penalties_saved = EXCLUDED.penalties_saved,
    penalties_missed = EXCLUDED.penalties_missed,
    yellow_cards = EXCLUDED.yellow_cards,
    red_cards = EXCLUDED.red_cards,
    saves = EXCLUDED.saves,
    bonus = EXCLUDED.bonus,
    bps = EXCLUDED.bps,
    total_points = EXCLUDED.total_points,
    computed_at = EXCLUDED.computed_at,
    deleted_at = NULL`)
		if err != nil {
			return fmt.Errorf("build upsert player summary query: %w", err)
		}
		if err := execContextRetry(ctx, tx, query, args...); err != nil {
			return fmt.Errorf("upsert player summary player=%d: %w", record.PlayerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace player summaries tx: %w", err)
	}
	return nil
}

var summaryColumns = []string{
	"player_id",
	"team_id",
	"position_type",
	"gameweeks_played",
	"minutes",
	"goals_scored",
	"assists",
	"clean_sheets",
	"goals_conceded",
	"own_goals",
	"penalties_saved",
	"penalties_missed",
	"yellow_cards",
	"red_cards",
	"saves",
	"bonus",
	"bps",
	"total_points",
	"computed_at",
}

type summaryRow struct {
	PlayerID        int64     `db:"player_id"`
	TeamID          int64     `db:"team_id"`
	PositionType    string    `db:"position_type"`
	GameweeksPlayed int       `db:"gameweeks_played"`
	Minutes         int       `db:"minutes"`
	GoalsScored     int       `db:"goals_scored"`
	Assists         int       `db:"assists"`
	CleanSheets     int       `db:"clean_sheets"`
	GoalsConceded   int       `db:"goals_conceded"`
	OwnGoals        int       `db:"own_goals"`
	PenaltiesSaved  int       `db:"penalties_saved"`
	PenaltiesMissed int       `db:"penalties_missed"`
	YellowCards     int       `db:"yellow_cards"`
	RedCards        int       `db:"red_cards"`
	Saves           int       `db:"saves"`
	Bonus           int       `db:"bonus"`
	BPS             int       `db:"bps"`
	TotalPoints     int       `db:"total_points"`
	ComputedAt      time.Time `db:"computed_at"`
}

type summaryInsertModel summaryRow

func mapSummaryRow(row summaryRow) summary.Record {
	return summary.Record{
		PlayerID:        row.PlayerID,
		TeamID:          row.TeamID,
		PositionType:    row.PositionType,
		GameweeksPlayed: row.GameweeksPlayed,
		Minutes:         row.Minutes,
		GoalsScored:     row.GoalsScored,
		Assists:         row.Assists,
		CleanSheets:     row.CleanSheets,
		GoalsConceded:   row.GoalsConceded,
		OwnGoals:        row.OwnGoals,
		PenaltiesSaved:  row.PenaltiesSaved,
		PenaltiesMissed: row.PenaltiesMissed,
		YellowCards:     row.YellowCards,
		RedCards:        row.RedCards,
		Saves:           row.Saves,
		Bonus:           row.Bonus,
		BPS:             row.BPS,
		TotalPoints:     row.TotalPoints,
		ComputedAt:      row.ComputedAt,
	}
}
