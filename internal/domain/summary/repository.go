package summary

import "context"

type Repository interface {
	ListAll(ctx context.Context) ([]Record, error)
	GetByPlayer(ctx context.Context, playerID int64) (Record, bool, error)
	ReplaceAll(ctx context.Context, records []Record) error
}
