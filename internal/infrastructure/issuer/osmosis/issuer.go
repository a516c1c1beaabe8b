package osmosisissuer

import (
	"fmt"
	"strings"

	"github.com/amalgam-labs/amalgamd/internal/core/domain"
	"github.com/amalgam-labs/amalgamd/internal/core/ports"
	"github.com/amalgam-labs/amalgamd/pkg/fixedpoint"
)

const DefaultSubdenom = "amalgam"

type tokenIssuer struct {
	owner    string
	subdenom string
}

// NewTokenIssuer returns an issuer for the tokenfactory denom
// factory/<owner>/<subdenom>, where owner is the basket contract address.
func NewTokenIssuer(owner, subdenom string) (ports.TokenIssuer, error) {
	if owner == "" {
		return nil, fmt.Errorf("missing token owner")
	}
	if subdenom == "" {
		subdenom = DefaultSubdenom
	}
	if strings.Contains(subdenom, "/") {
		return nil, fmt.Errorf("invalid subdenom %s", subdenom)
	}
	return &tokenIssuer{owner, subdenom}, nil
}

func (i *tokenIssuer) Denom() string {
	return fmt.Sprintf("factory/%s/%s", i.owner, i.subdenom)
}

func (i *tokenIssuer) Create() ([]domain.Instruction, error) {
	msg := MsgCreateDenom{Sender: i.owner, Subdenom: i.subdenom}
	return []domain.Instruction{
		domain.Stargate{TypeUrl: TypeUrlMsgCreateDenom, Value: msg.Marshal()},
	}, nil
}

func (i *tokenIssuer) SetMetadata(metadata domain.DenomMetadata) ([]domain.Instruction, error) {
	msg := MsgSetDenomMetadata{Sender: i.owner, Metadata: metadata}
	return []domain.Instruction{
		domain.Stargate{TypeUrl: TypeUrlMsgSetDenomMetadata, Value: msg.Marshal()},
	}, nil
}

func (i *tokenIssuer) Mint(
	amount fixedpoint.Amount, recipient string,
) ([]domain.Instruction, error) {
	if recipient == "" {
		return nil, fmt.Errorf("missing mint recipient")
	}
	msg := MsgMint{
		Sender:        i.owner,
		Amount:        domain.Coin{Denom: i.Denom(), Amount: amount},
		MintToAddress: recipient,
	}
	return []domain.Instruction{
		domain.Stargate{TypeUrl: TypeUrlMsgMint, Value: msg.Marshal()},
	}, nil
}

func (i *tokenIssuer) Burn(amount fixedpoint.Amount, from string) ([]domain.Instruction, error) {
	if from == "" {
		return nil, fmt.Errorf("missing burn address")
	}
	msg := MsgBurn{
		Sender:          i.owner,
		Amount:          domain.Coin{Denom: i.Denom(), Amount: amount},
		BurnFromAddress: from,
	}
	return []domain.Instruction{
		domain.Stargate{TypeUrl: TypeUrlMsgBurn, Value: msg.Marshal()},
	}, nil
}
