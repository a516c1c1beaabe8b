package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/amalgam-labs/amalgamd/internal/core/domain"
	"github.com/amalgam-labs/amalgamd/internal/core/ports"
	osmosisissuer "github.com/amalgam-labs/amalgamd/internal/infrastructure/issuer/osmosis"
	"github.com/amalgam-labs/amalgamd/pkg/fixedpoint"
)

var (
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrUnauthorized           = errors.New("sender is not the denom admin")
	ErrDenomExists            = errors.New("denom already exists")
	ErrDenomNotFound          = errors.New("denom not found")
	ErrUnsupportedInstruction = errors.New("unsupported instruction")
)

// Denom is a tokenfactory denom created on the ledger.
type Denom struct {
	Admin    string                `json:"admin"`
	Metadata *domain.DenomMetadata `json:"metadata,omitempty"`
}

type BalanceKey struct {
	// Asset is the asset key, ie. native:<denom> or cw20:<contract>.
	Asset   string
	Address string
}

// View reads the committed state of a ledger.
type View interface {
	Balance(ctx context.Context, key BalanceKey) (fixedpoint.Amount, error)
	Supply(ctx context.Context, denom string) (fixedpoint.Amount, error)
	// Denom returns nil if the denom does not exist.
	Denom(ctx context.Context, denom string) (*Denom, error)
}

// Changeset stages the writes of a ledger tx on top of a View. Backends commit
// it only if every transfer and instruction succeeded.
type Changeset struct {
	view View

	Balances map[BalanceKey]fixedpoint.Amount
	Supplies map[string]fixedpoint.Amount
	Denoms   map[string]Denom
}

func NewChangeset(view View) *Changeset {
	return &Changeset{
		view:     view,
		Balances: make(map[BalanceKey]fixedpoint.Amount),
		Supplies: make(map[string]fixedpoint.Amount),
		Denoms:   make(map[string]Denom),
	}
}

// Execute stages every transfer of the tx, then every instruction in order.
func Execute(ctx context.Context, view View, tx ports.LedgerTx) (*Changeset, error) {
	cs := NewChangeset(view)
	for _, transfer := range tx.Transfers {
		if err := cs.Transfer(
			ctx, transfer.Asset.Key(), transfer.From, transfer.To, transfer.Amount,
		); err != nil {
			return nil, fmt.Errorf(
				"failed to transfer %s %s from %s: %w",
				transfer.Amount, transfer.Asset, transfer.From, err,
			)
		}
	}
	for i, ix := range tx.Instructions {
		if err := cs.execute(ctx, tx.Contract, ix); err != nil {
			return nil, fmt.Errorf("instruction %d (%s) failed: %w", i, ix.Type(), err)
		}
	}
	return cs, nil
}

func (c *Changeset) Credit(
	ctx context.Context, asset, address string, amount fixedpoint.Amount,
) error {
	key := BalanceKey{asset, address}
	balance, err := c.balance(ctx, key)
	if err != nil {
		return err
	}
	balance, err = balance.Add(amount)
	if err != nil {
		return err
	}
	c.Balances[key] = balance
	return nil
}

func (c *Changeset) Debit(
	ctx context.Context, asset, address string, amount fixedpoint.Amount,
) error {
	key := BalanceKey{asset, address}
	balance, err := c.balance(ctx, key)
	if err != nil {
		return err
	}
	remaining, err := balance.Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: %s has %s %s", ErrInsufficientFunds, address, balance, asset)
	}
	c.Balances[key] = remaining
	return nil
}

func (c *Changeset) Transfer(
	ctx context.Context, asset, from, to string, amount fixedpoint.Amount,
) error {
	if err := c.Debit(ctx, asset, from, amount); err != nil {
		return err
	}
	return c.Credit(ctx, asset, to, amount)
}

func (c *Changeset) execute(ctx context.Context, contract string, ix domain.Instruction) error {
	switch msg := ix.(type) {
	case domain.BankSend:
		for _, coin := range msg.Amount {
			asset := domain.NativeAsset(coin.Denom).Key()
			if err := c.Transfer(ctx, asset, contract, msg.ToAddress, coin.Amount); err != nil {
				return err
			}
		}
		return nil
	case domain.WasmExecute:
		return c.executeCw20(ctx, contract, msg)
	case domain.Stargate:
		decoded, err := osmosisissuer.Decode(msg)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrUnsupportedInstruction, err)
		}
		return c.executeTokenFactory(ctx, contract, decoded)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedInstruction, ix)
	}
}

func (c *Changeset) executeCw20(
	ctx context.Context, contract string, msg domain.WasmExecute,
) error {
	if len(msg.Funds) > 0 {
		return fmt.Errorf("%w: funds attached to cw20 execute", ErrUnsupportedInstruction)
	}
	var exec domain.Cw20ExecuteMsg
	if err := json.Unmarshal(msg.Msg, &exec); err != nil {
		return fmt.Errorf("invalid cw20 execute msg: %w", err)
	}
	if exec.Transfer == nil {
		return fmt.Errorf("%w: cw20 message %s", ErrUnsupportedInstruction, string(msg.Msg))
	}
	asset := domain.Cw20Asset(msg.ContractAddr).Key()
	return c.Transfer(ctx, asset, contract, exec.Transfer.Recipient, exec.Transfer.Amount)
}

func (c *Changeset) executeTokenFactory(ctx context.Context, contract string, msg any) error {
	switch m := msg.(type) {
	case osmosisissuer.MsgCreateDenom:
		if m.Sender != contract {
			return ErrUnauthorized
		}
		if m.Subdenom == "" || strings.Contains(m.Subdenom, "/") {
			return fmt.Errorf("invalid subdenom %q", m.Subdenom)
		}
		denom := fmt.Sprintf("factory/%s/%s", m.Sender, m.Subdenom)
		existing, err := c.denom(ctx, denom)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: %s", ErrDenomExists, denom)
		}
		c.Denoms[denom] = Denom{Admin: m.Sender}
		return nil

	case osmosisissuer.MsgSetDenomMetadata:
		d, err := c.adminDenom(ctx, contract, m.Sender, m.Metadata.Base)
		if err != nil {
			return err
		}
		md := m.Metadata.Apply(domain.MetadataUpdate{})
		d.Metadata = &md
		c.Denoms[m.Metadata.Base] = *d
		return nil

	case osmosisissuer.MsgMint:
		if _, err := c.adminDenom(ctx, contract, m.Sender, m.Amount.Denom); err != nil {
			return err
		}
		recipient := m.MintToAddress
		if recipient == "" {
			recipient = m.Sender
		}
		supply, err := c.supply(ctx, m.Amount.Denom)
		if err != nil {
			return err
		}
		if supply, err = supply.Add(m.Amount.Amount); err != nil {
			return err
		}
		c.Supplies[m.Amount.Denom] = supply
		asset := domain.NativeAsset(m.Amount.Denom).Key()
		return c.Credit(ctx, asset, recipient, m.Amount.Amount)

	case osmosisissuer.MsgBurn:
		if _, err := c.adminDenom(ctx, contract, m.Sender, m.Amount.Denom); err != nil {
			return err
		}
		from := m.BurnFromAddress
		if from == "" {
			from = m.Sender
		}
		asset := domain.NativeAsset(m.Amount.Denom).Key()
		if err := c.Debit(ctx, asset, from, m.Amount.Amount); err != nil {
			return err
		}
		supply, err := c.supply(ctx, m.Amount.Denom)
		if err != nil {
			return err
		}
		if supply, err = supply.Sub(m.Amount.Amount); err != nil {
			return err
		}
		c.Supplies[m.Amount.Denom] = supply
		return nil

	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedInstruction, msg)
	}
}

func (c *Changeset) adminDenom(
	ctx context.Context, contract, sender, denom string,
) (*Denom, error) {
	if sender != contract {
		return nil, ErrUnauthorized
	}
	d, err := c.denom(ctx, denom)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: %s", ErrDenomNotFound, denom)
	}
	if d.Admin != sender {
		return nil, ErrUnauthorized
	}
	return d, nil
}

func (c *Changeset) balance(ctx context.Context, key BalanceKey) (fixedpoint.Amount, error) {
	if balance, ok := c.Balances[key]; ok {
		return balance, nil
	}
	return c.view.Balance(ctx, key)
}

func (c *Changeset) supply(ctx context.Context, denom string) (fixedpoint.Amount, error) {
	if supply, ok := c.Supplies[denom]; ok {
		return supply, nil
	}
	return c.view.Supply(ctx, denom)
}

func (c *Changeset) denom(ctx context.Context, denom string) (*Denom, error) {
	if d, ok := c.Denoms[denom]; ok {
		return &d, nil
	}
	return c.view.Denom(ctx, denom)
}
