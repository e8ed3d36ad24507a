package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/matchpulse/livesync/internal/domain/gameweek"
	qb "github.com/matchpulse/livesync/internal/platform/querybuilder"
)

type GameweekResultRepository struct {
	db *sqlx.DB
}

func NewGameweekResultRepository(db *sqlx.DB) *GameweekResultRepository {
	return &GameweekResultRepository{db: db}
}

func (r *GameweekResultRepository) GetResult(ctx context.Context, gameweekID int) (gameweek.Result, error) {
	query, args, err := qb.Select(
		"gameweek_id",
		"average_score",
		"highest_score",
		"player_count",
		"computed_at",
	).From("gameweek_results").
		Where(
			qb.Eq("gameweek_id", gameweekID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return gameweek.Result{}, fmt.Errorf("build get gameweek result query: %w", err)
	}

	var row gameweekResultRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return gameweek.Result{}, nil
		}
		return gameweek.Result{}, fmt.Errorf("get gameweek result gameweek=%d: %w", gameweekID, err)
	}

	return gameweek.Result{
		GameweekID:   row.GameweekID,
		AverageScore: row.AverageScore,
		HighestScore: row.HighestScore,
		PlayerCount:  row.PlayerCount,
		ComputedAt:   row.ComputedAt,
	}, nil
}

func (r *GameweekResultRepository) UpsertResult(ctx context.Context, result gameweek.Result) error {
	insertModel := gameweekResultRow{
		GameweekID:   result.GameweekID,
		AverageScore: result.AverageScore,
		HighestScore: result.HighestScore,
		PlayerCount:  result.PlayerCount,
		ComputedAt:   result.ComputedAt,
	}

	query, args, err := qb.InsertModel("gameweek_results", insertModel, `ON CONFLICT (gameweek_id) WHERE deleted_at IS NULL
DO UPDATE SET
    average_score = EXCLUDED.average_score,
    highest_score = EXCLUDED.highest_score,
    player_count = EXCLUDED.player_count,
    computed_at = EXCLUDED.computed_at,
    updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("build upsert gameweek result query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert gameweek result gameweek=%d: %w", result.GameweekID, err)
	}
	return nil
}

type gameweekResultRow struct {
	GameweekID   int       `db:"gameweek_id"`
	AverageScore float64   `db:"average_score"`
	HighestScore int       `db:"highest_score"`
	PlayerCount  int       `db:"player_count"`
	ComputedAt   time.Time `db:"computed_at"`
}
