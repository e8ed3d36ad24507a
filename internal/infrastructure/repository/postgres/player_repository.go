package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/matchpulse/livesync/internal/domain/player"
	qb "github.com/matchpulse/livesync/internal/platform/querybuilder"
)

type PlayerRepository struct {
	db *sqlx.DB
}

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

func (r *PlayerRepository) ListAll(ctx context.Context) ([]player.Player, error) {
	query, args, err := qb.Select(
		"player_id",
		"name",
		"team_id",
		"position_type",
	).From("players").
		Where(qb.IsNull("deleted_at")).
		OrderBy("player_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list players query: %w", err)
	}

	var rows []playerRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, player.Player{
			ID:       row.PlayerID,
			Name:     row.Name,
			TeamID:   row.TeamID,
			Position: player.Position(row.PositionType),
		})
	}
	return out, nil
}

func (r *PlayerRepository) Upsert(ctx context.Context, players []player.Player) error {
	if len(players) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert players: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range players {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("validate player %d: %w", item.ID, err)
		}

		insertModel := playerRow{
			PlayerID:     item.ID,
			Name:         item.Name,
			TeamID:       item.TeamID,
			PositionType: string(item.Position),
		}
		query, args, err := qb.InsertModel("players", insertModel, `ON CONFLICT (player_id) WHERE deleted_at IS NULL
DO UPDATE SET
    name = EXCLUDED.name,
    team_id = EXCLUDED.team_id,
    position_type = EXCLUDED.position_type,
    updated_at = NOW()`)
		if err != nil {
			return fmt.Errorf("build upsert player query: %w", err)
		}
		if err := execContextRetry(ctx, tx, query, args...); err != nil {
			return fmt.Errorf("upsert player %d: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert players tx: %w", err)
	}
	return nil
}

type playerRow struct {
	PlayerID     int64  `db:"player_id"`
	Name         string `db:"name"`
	TeamID       int64  `db:"team_id"`
	PositionType string `db:"position_type"`
}
