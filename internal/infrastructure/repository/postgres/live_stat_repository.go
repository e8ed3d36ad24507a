package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/matchpulse/livesync/internal/domain/livestat"
	qb "github.com/matchpulse/livesync/internal/platform/querybuilder"
)

type LiveStatRepository struct {
	db *sqlx.DB
}

func NewLiveStatRepository(db *sqlx.DB) *LiveStatRepository {
	return &LiveStatRepository{db: db}
}

func (r *LiveStatRepository) ListByGameweek(ctx context.Context, gameweekID int) ([]livestat.Record, error) {
	query, args, err := qb.Select(liveStatColumns...).From("live_stats").
		Where(
			qb.Eq("gameweek_id", gameweekID),
			qb.IsNull("deleted_at"),
		).
		OrderBy("player_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list live stats query: %w", err)
	}

	var rows []liveStatRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list live stats gameweek=%d: %w", gameweekID, err)
	}

	return mapLiveStatRows(rows), nil
}

func (r *LiveStatRepository) ListUpToGameweek(ctx context.Context, gameweekID int) ([]livestat.Record, error) {
	query, args, err := qb.Select(liveStatColumns...).From("live_stats").
		Where(
			qb.Expr("gameweek_id <= ?", gameweekID),
			qb.IsNull("deleted_at"),
		).
		OrderBy("gameweek_id", "player_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list live stats up-to query: %w", err)
	}

	var rows []liveStatRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list live stats up to gameweek=%d: %w", gameweekID, err)
	}

	return mapLiveStatRows(rows), nil
}

// BatchUpsert writes the full record set for one sync pass. Each row is
// keyed by (gameweek_id, player_id); re-running the same payload leaves
// the stored state unchanged.
func (r *LiveStatRepository) BatchUpsert(ctx context.Context, records []livestat.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert live stats: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, record := range records {
		insertModel := liveStatInsertModel{
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

		query, args, err := qb.InsertModel("live_stats", insertModel, liveStatUpsertSuffix)
		if err != nil {
			return fmt.Errorf("build upsert live stat query: %w", err)
		}
		if err := execContextRetry(ctx, tx, query, args...); err != nil {
			return fmt.Errorf("upsert live stat gameweek=%d player=%d: %w", record.GameweekID, record.PlayerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert live stats tx: %w", err)
	}
	return nil
}

// The WHERE clause on the conflict update keeps re-running an unchanged
// payload a true no-op: rows whose stat values already match are left
// alone, so source_updated_at and updated_at only move when the data
// did.
const liveStatUpsertSuffix = `ON CONFLICT (gameweek_id, player_id) WHERE deleted_at IS NULL
DO UPDATE SET
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
    influence = EXCLUDED.influence,
    creativity = EXCLUDED.creativity,
    threat = EXCLUDED.threat,
    ict_index = EXCLUDED.ict_index,
    starts = EXCLUDED.starts,
    total_points = EXCLUDED.total_points,
    in_dream_team = EXCLUDED.in_dream_team,
    source_updated_at = EXCLUDED.source_updated_at,
    updated_at = NOW()
WHERE (live_stats.minutes, live_stats.goals_scored, live_stats.assists, live_stats.clean_sheets,
       live_stats.goals_conceded, live_stats.own_goals, live_stats.penalties_saved, live_stats.penalties_missed,
       live_stats.yellow_cards, live_stats.red_cards, live_stats.saves, live_stats.bonus, live_stats.bps,
       live_stats.influence, live_stats.creativity, live_stats.threat, live_stats.ict_index,
       live_stats.starts, live_stats.total_points, live_stats.in_dream_team)
      IS DISTINCT FROM
      (EXCLUDED.minutes, EXCLUDED.goals_scored, EXCLUDED.assists, EXCLUDED.clean_sheets,
       EXCLUDED.goals_conceded, EXCLUDED.own_goals, EXCLUDED.penalties_saved, EXCLUDED.penalties_missed,
       EXCLUDED.yellow_cards, EXCLUDED.red_cards, EXCLUDED.saves, EXCLUDED.bonus, EXCLUDED.bps,
       EXCLUDED.influence, EXCLUDED.creativity, EXCLUDED.threat, EXCLUDED.ict_index,
       EXCLUDED.starts, EXCLUDED.total_points, EXCLUDED.in_dream_team)`

var liveStatColumns = []string{
	"gameweek_id",
	"player_id",
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
	"influence",
	"creativity",
	"threat",
	"ict_index",
	"starts",
	"total_points",
	"in_dream_team",
	"source_updated_at",
}

type liveStatRow struct {
	GameweekID      int          `db:"gameweek_id"`
	PlayerID        int64        `db:"player_id"`
	Minutes         int          `db:"minutes"`
	GoalsScored     int          `db:"goals_scored"`
	Assists         int          `db:"assists"`
	CleanSheets     int          `db:"clean_sheets"`
	GoalsConceded   int          `db:"goals_conceded"`
	OwnGoals        int          `db:"own_goals"`
	PenaltiesSaved  int          `db:"penalties_saved"`
	PenaltiesMissed int          `db:"penalties_missed"`
	YellowCards     int          `db:"yellow_cards"`
	RedCards        int          `db:"red_cards"`
	Saves           int          `db:"saves"`
	Bonus           int          `db:"bonus"`
	BPS             int          `db:"bps"`
	Influence       float64      `db:"influence"`
	Creativity      float64      `db:"creativity"`
	Threat          float64      `db:"threat"`
	ICTIndex        float64      `db:"ict_index"`
	Starts          int          `db:"starts"`
	TotalPoints     int          `db:"total_points"`
	InDreamTeam     bool         `db:"in_dream_team"`
	SourceUpdatedAt sql.NullTime `db:"source_updated_at"`
}

type liveStatInsertModel struct {
	GameweekID      int        `db:"gameweek_id"`
	PlayerID        int64      `db:"player_id"`
	Minutes         int        `db:"minutes"`
	GoalsScored     int        `db:"goals_scored"`
	Assists         int        `db:"assists"`
	CleanSheets     int        `db:"clean_sheets"`
	GoalsConceded   int        `db:"goals_conceded"`
	OwnGoals        int        `db:"own_goals"`
	PenaltiesSaved  int        `db:"penalties_saved"`
	PenaltiesMissed int        `db:"penalties_missed"`
	YellowCards     int        `db:"yellow_cards"`
	RedCards        int        `db:"red_cards"`
	Saves           int        `db:"saves"`
	Bonus           int        `db:"bonus"`
	BPS             int        `db:"bps"`
	Influence       float64    `db:"influence"`
	Creativity      float64    `db:"creativity"`
	Threat          float64    `db:"threat"`
	ICTIndex        float64    `db:"ict_index"`
	Starts          int        `db:"starts"`
	TotalPoints     int        `db:"total_points"`
	InDreamTeam     bool       `db:"in_dream_team"`
	SourceUpdatedAt *time.Time `db:"source_updated_at"`
}

func mapLiveStatRows(rows []liveStatRow) []livestat.Record {
	out := make([]livestat.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, livestat.Record{
			GameweekID:      row.GameweekID,
			PlayerID:        row.PlayerID,
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
			Influence:       row.Influence,
			Creativity:      row.Creativity,
			Threat:          row.Threat,
			ICTIndex:        row.ICTIndex,
			Starts:          row.Starts,
			TotalPoints:     row.TotalPoints,
			InDreamTeam:     row.InDreamTeam,
			SourceUpdatedAt: nullTimeToTimePtr(row.SourceUpdatedAt),
		})
	}
	return out
}
