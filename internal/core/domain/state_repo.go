package domain

import "context"

type StateRepository interface {
	// Get returns nil if the basket has not been instantiated yet.
	Get(ctx context.Context) (*State, error)
	Upsert(ctx context.Context, state State) error
	Close()
}
