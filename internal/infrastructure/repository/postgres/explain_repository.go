package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/matchpulse/livesync/internal/domain/explain"
	qb "github.com/matchpulse/livesync/internal/platform/querybuilder"
)

type ExplainRepository struct {
	db *sqlx.DB
}

func NewExplainRepository(db *sqlx.DB) *ExplainRepository {
	return &ExplainRepository{db: db}
}

func (r *ExplainRepository) ListByGameweek(ctx context.Context, gameweekID int) ([]explain.Record, error) {
	query, args, err := qb.Select(
		"gameweek_id",
		"player_id",
		"minutes_points",
		"goals_scored_points",
		"assists_points",
		"clean_sheets_points",
		"goals_conceded_points",
		"own_goals_points",
		"penalties_saved_points",
		"penalties_missed_points",
		"yellow_cards_points",
		"red_cards_points",
		"saves_points",
		"bonus_points",
		"total_points",
	).From("explain_records").
		Where(
			qb.Eq("gameweek_id", gameweekID),
			qb.IsNull("deleted_at"),
		).
		OrderBy("player_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list explain records query: %w", err)
	}

	var rows []explainRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list explain records gameweek=%d: %w", gameweekID, err)
	}

	out := make([]explain.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, explain.Record{
			GameweekID:            row.GameweekID,
			PlayerID:              row.PlayerID,
			MinutesPoints:         row.MinutesPoints,
			GoalsScoredPoints:     row.GoalsScoredPoints,
			AssistsPoints:         row.AssistsPoints,
			CleanSheetsPoints:     row.CleanSheetsPoints,
			GoalsConcededPoints:   row.GoalsConcededPoints,
			OwnGoalsPoints:        row.OwnGoalsPoints,
			PenaltiesSavedPoints:  row.PenaltiesSavedPoints,
			PenaltiesMissedPoints: row.PenaltiesMissedPoints,
			YellowCardsPoints:     row.YellowCardsPoints,
			RedCardsPoints:        row.RedCardsPoints,
			SavesPoints:           row.SavesPoints,
			BonusPoints:           row.BonusPoints,
			TotalPoints:           row.TotalPoints,
		})
	}

	return out, nil
}

func (r *ExplainRepository) BatchUpsert(ctx context.Context, records []explain.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert explain records: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, record := range records {
		insertModel := explainInsertModel{
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

		query, args, err := qb.InsertModel("explain_records", insertModel, `ON CONFLICT (gameweek_id, player_id) WHERE deleted_at IS NULL
DO UPDATE SET
    minutes_points = EXCLUDED.minutes_points,
    goals_scored_points = EXCLUDED.goals_scored_points,
    assists_points = EXCLUDED.assists_points,
    clean_sheets_points = EXCLUDED.clean_sheets_points,
    goals_conceded_points = EXCLUDED.goals_conceded_points,
    own_goals_points = EXCLUDED.own_goals_points,
    penalties_saved_points = EXCLUDED.penalties_saved_points,
    penalties_missed_points = EXCLUDED.penalties_missed_points,
    yellow_cards_points = EXCLUDED.yellow_cards_points,
    red_cards_points = EXCLUDED.red_cards_points,
    saves_points = EXCLUDED.saves_points,
    bonus_points = EXCLUDED.bonus_points,
    total_points = EXCLUDED.total_points,
    updated_at = NOW()`)
		if err != nil {
			return fmt.Errorf("build upsert explain record query: %w", err)
		}
		if err := execContextRetry(ctx, tx, query, args...); err != nil {
			return fmt.Errorf("upsert explain record gameweek=%d player=%d: %w", record.GameweekID, record.PlayerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert explain records tx: %w", err)
	}
	return nil
}

type explainRow struct {
	GameweekID            int   `db:"gameweek_id"`
	PlayerID              int64 `db:"player_id"`
	MinutesPoints         int   `db:"minutes_points"`
	GoalsScoredPoints     int   `db:"goals_scored_points"`
	AssistsPoints         int   `db:"assists_points"`
	CleanSheetsPoints     int   `db:"clean_sheets_points"`
	GoalsConcededPoints   int   `db:"goals_conceded_points"`
	OwnGoalsPoints        int   `db:"own_goals_points"`
	PenaltiesSavedPoints  int   `db:"penalties_saved_points"`
	PenaltiesMissedPoints int   `db:"penalties_missed_points"`
	YellowCardsPoints     int   `db:"yellow_cards_points"`
	RedCardsPoints        int   `db:"red_cards_points"`
	SavesPoints           int   `db:"saves_points"`
	BonusPoints           int   `db:"bonus_points"`
	TotalPoints           int   `db:"total_points"`
}

type explainInsertModel struct {
	GameweekID            int   `db:"gameweek_id"`
	PlayerID              int64 `db:"player_id"`
	MinutesPoints         int   `db:"minutes_points"`
	GoalsScoredPoints     int   `db:"goals_scored_points"`
	AssistsPoints         int   `db:"assists_points"`
	CleanSheetsPoints     int   `db:"clean_sheets_points"`
	GoalsConcededPoints   int   `db:"goals_conceded_points"`
	OwnGoalsPoints        int   `db:"own_goals_points"`
	PenaltiesSavedPoints  int   `db:"penalties_saved_points"`
	PenaltiesMissedPoints int   `db:"penalties_missed_points"`
	YellowCardsPoints     int   `db:"yellow_cards_points"`
	RedCardsPoints        int   `db:"red_cards_points"`
	SavesPoints           int   `db:"saves_points"`
	BonusPoints           int   `db:"bonus_points"`
	TotalPoints           int   `db:"total_points"`
}
