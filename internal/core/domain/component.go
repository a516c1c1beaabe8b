package domain

import (
	"errors"
	"fmt"

	"github.com/amalgam-labs/amalgamd/pkg/fixedpoint"
)

// MaxWithdrawalTaxBps is 100% expressed in basis points.
const MaxWithdrawalTaxBps = 10_000

var (
	ErrInvalidWithdrawalFee = errors.New("invalid fee must be between 0 and 10000")
	ErrInvalidWeight        = errors.New("weight must be greater than zero")
	ErrComponentExists      = errors.New("component already registered")
)

// Component is a registered basket constituent. Weight is the number of basket
// tokens minted per unit of the component deposited.
type Component struct {
	Token            Asset              `json:"token"`
	Weight           fixedpoint.Decimal `json:"weight"`
	WithdrawalTaxBps uint32             `json:"withdrawal_tax"`
}

func (c Component) Key() string {
	return c.Token.Key()
}

// Validate checks the invariants required before a component can be stored.
func (c Component) Validate() error {
	if err := c.Token.Validate(); err != nil {
		return err
	}
	if c.WithdrawalTaxBps > MaxWithdrawalTaxBps {
		return ErrInvalidWithdrawalFee
	}
	if c.Weight.IsZero() {
		return ErrInvalidWeight
	}
	return nil
}

func (c Component) TaxRate() fixedpoint.Decimal {
	return fixedpoint.DecimalFromBps(c.WithdrawalTaxBps)
}

// MintAmount returns floor(deposit * weight).
func (c Component) MintAmount(deposit fixedpoint.Amount) (fixedpoint.Amount, error) {
	return c.Weight.MulFloor(deposit)
}

// Redemption is the breakdown of a withdrawal of basket tokens into one component.
type Redemption struct {
	Burned fixedpoint.Amount
	Gross  fixedpoint.Amount
	Tax    fixedpoint.Amount
	Net    fixedpoint.Amount
}

// Redeem converts basket tokens back into the component. The payout is
// floor(amount / weight) minus the withdrawal tax minus one unit reserved
// against rounding loss.
func (c Component) Redeem(amount fixedpoint.Amount) (*Redemption, error) {
	inv, err := c.Weight.Inv()
	if err != nil {
		return nil, fmt.Errorf("failed to invert weight: %w", err)
	}
	gross, err := inv.MulFloor(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to compute redeemed amount: %w", err)
	}
	tax, err := c.TaxRate().MulFloor(gross)
	if err != nil {
		return nil, fmt.Errorf("failed to compute withdrawal tax: %w", err)
	}
	net, err := gross.Sub(tax)
	if err != nil {
		return nil, fmt.Errorf("failed to apply withdrawal tax: %w", err)
	}
	net, err = net.Sub(fixedpoint.NewAmount(1))
	if err != nil {
		return nil, fmt.Errorf("redeemed amount too small: %w", err)
	}
	return &Redemption{
		Burned: amount,
		Gross:  gross,
		Tax:    tax,
		Net:    net,
	}, nil
}

// TaxAccrual is the withdrawal tax collected so far for an asset.
type TaxAccrual struct {
	Asset  Asset             `json:"asset"`
	Amount fixedpoint.Amount `json:"amount"`
}
