package domain

import (
	"context"

	"github.com/amalgam-labs/amalgamd/pkg/fixedpoint"
)

type TaxRepository interface {
	// Get returns nil if nothing has been accrued for the asset.
	Get(ctx context.Context, asset Asset) (*TaxAccrual, error)
	Upsert(ctx context.Context, asset Asset, amount fixedpoint.Amount) error
	Remove(ctx context.Context, asset Asset) error
	// List returns all accruals in ascending asset key order.
	List(ctx context.Context) ([]TaxAccrual, error)
	Close()
}
