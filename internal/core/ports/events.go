package ports

import (
	"context"

	"github.com/amalgam-labs/amalgamd/internal/core/domain"
)

type EventPublisher interface {
	Publish(ctx context.Context, event domain.BasketEvent) error
	Subscribe(ctx context.Context) (<-chan domain.BasketEvent, error)
	Close()
}
