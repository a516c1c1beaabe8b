package domain

import "context"

type ComponentRepository interface {
	// Add fails with ErrComponentExists if the key is already registered.
	Add(ctx context.Context, component Component) error
	// Get returns nil if no component is registered under the given key.
	Get(ctx context.Context, key string) (*Component, error)
	// List returns all components in ascending key order.
	List(ctx context.Context) ([]Component, error)
	Close()
}
