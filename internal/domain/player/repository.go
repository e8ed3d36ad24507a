package player

import "context"

// Repository describes player metadata persistence needs from use cases.
type Repository interface {
	ListAll(ctx context.Context) ([]Player, error)
	Upsert(ctx context.Context, players []Player) error
}
