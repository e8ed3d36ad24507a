package explain

import "context"

type Repository interface {
	ListByGameweek(ctx context.Context, gameweekID int) ([]Record, error)
	BatchUpsert(ctx context.Context, records []Record) error
}
