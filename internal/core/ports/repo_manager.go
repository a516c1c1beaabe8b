package ports

import (
	"context"

	"github.com/amalgam-labs/amalgamd/internal/core/domain"
)

type RepoManager interface {
	State() domain.StateRepository
	Components() domain.ComponentRepository
	Taxes() domain.TaxRepository
	// RunInTx runs fn in a single store transaction. The repositories join the
	// transaction when called with the context passed to fn. Any error returned
	// by fn discards every write made inside it.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	Close()
}
