package badgerdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/amalgam-labs/amalgamd/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const stateKey = "state"

type stateRepository struct {
	store *badgerhold.Store
}

func NewStateRepository(config ...interface{}) (domain.StateRepository, error) {
	store, err := storeFromConfig(config...)
	if err != nil {
		return nil, fmt.Errorf("cannot open state repository: %s", err)
	}
	return &stateRepository{store}, nil
}

func (r *stateRepository) Get(ctx context.Context) (*domain.State, error) {
	var state domain.State
	err := get(ctx, r.store, stateKey, &state)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state: %w", err)
	}
	return &state, nil
}

func (r *stateRepository) Upsert(ctx context.Context, state domain.State) error {
	if err := upsert(ctx, r.store, stateKey, &state); err != nil {
		return fmt.Errorf("failed to upsert state: %w", err)
	}
	return nil
}

// Close is a no-op, the shared store is closed by the repo manager.
func (r *stateRepository) Close() {}

func storeFromConfig(config ...interface{}) (*badgerhold.Store, error) {
	if len(config) != 1 {
		return nil, fmt.Errorf("invalid config: expected 1 argument, got %d", len(config))
	}
	store, ok := config[0].(*badgerhold.Store)
	if !ok {
		return nil, fmt.Errorf("expected *badgerhold.Store but got %T", config[0])
	}
	return store, nil
}
