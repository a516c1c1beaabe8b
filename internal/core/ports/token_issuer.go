package ports

import (
	"github.com/amalgam-labs/amalgamd/internal/core/domain"
	"github.com/amalgam-labs/amalgamd/pkg/fixedpoint"
)

// TokenIssuer builds the instructions that manage the basket token on the
// underlying ledger. Implementations are chain specific.
type TokenIssuer interface {
	Denom() string
	Create() ([]domain.Instruction, error)
	SetMetadata(metadata domain.DenomMetadata) ([]domain.Instruction, error)
	Mint(amount fixedpoint.Amount, recipient string) ([]domain.Instruction, error)
	Burn(amount fixedpoint.Amount, from string) ([]domain.Instruction, error)
}
