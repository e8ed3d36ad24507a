package jobaudit

import "context"

type Repository interface {
	UpsertEvent(ctx context.Context, event AttemptEvent) error
	ListRecent(ctx context.Context, limit int) ([]AttemptEvent, error)
}
