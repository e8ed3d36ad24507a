package gameweek

import "context"

type Repository interface {
	GetResult(ctx context.Context, gameweekID int) (Result, error)
	UpsertResult(ctx context.Context, result Result) error
}
