package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

func isNotFound(err error) bool {
	return err == sql.ErrNoRows
}

// isBindParameterMismatch matches the 08P01 protocol error pq raises
// when a cached unnamed statement disagrees with the bind message.
func isBindParameterMismatch(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "08P01") || strings.Contains(msg, "bind message supplies")
}

func isUnnamedPreparedStatementMissing(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "26000") || strings.Contains(msg, "unnamed prepared statement")
}

// execContextRetry retries exactly once when the server dropped the
// unnamed prepared statement mid-transaction, which shows up behind
// poolers in transaction mode.
func execContextRetry(ctx context.Context, tx *sqlx.Tx, query string, args ...any) error {
	_, err := tx.ExecContext(ctx, query, args...)
	if err == nil {
		return nil
	}
	if !isUnnamedPreparedStatementMissing(err) && !isBindParameterMismatch(err) {
		return err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func nullableInt64(value int64) *int64 {
	if value <= 0 {
		return nil
	}
	v := value
	return &v
}

func nullableString(value string) *string {
	if value == "" {
		return nil
	}
	v := value
	return &v
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func nullStringToString(value sql.NullString) string {
	if !value.Valid {
		return ""
	}
	return value.String
}

func nullTimeToTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}

func nullStringToInt64(value sql.NullString) int64 {
	if !value.Valid {
		return 0
	}
	parsed, err := strconv.ParseInt(strings.TrimSpace(value.String), 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
