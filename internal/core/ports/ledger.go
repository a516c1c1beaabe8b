package ports

import (
	"context"

	"github.com/amalgam-labs/amalgamd/internal/core/domain"
	"github.com/amalgam-labs/amalgamd/pkg/fixedpoint"
)

// Transfer moves funds into the contract before an operation runs, ie. the
// native funds attached to a request or the cw20 tokens sent along a receive hook.
type Transfer struct {
	Asset  domain.Asset
	From   string
	To     string
	Amount fixedpoint.Amount
}

type LedgerTx struct {
	// Contract is the address executing the instructions.
	Contract     string
	Transfers    []Transfer
	Instructions []domain.Instruction
}

// Ledger is the host chain. Apply executes the whole tx atomically: either
// every transfer and instruction takes effect or none does.
type Ledger interface {
	Apply(ctx context.Context, tx LedgerTx) error
	DenomMetadata(ctx context.Context, denom string) (*domain.DenomMetadata, error)
	Balance(ctx context.Context, asset domain.Asset, address string) (fixedpoint.Amount, error)
	Supply(ctx context.Context, denom string) (fixedpoint.Amount, error)
	// Fund credits an account from outside the ledger, ie. genesis balances
	// or a faucet.
	Fund(ctx context.Context, asset domain.Asset, address string, amount fixedpoint.Amount) error
	Close()
}
