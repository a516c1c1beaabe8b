package application

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/amalgam-labs/amalgamd/internal/core/domain"
	"github.com/amalgam-labs/amalgamd/pkg/errors"
	"github.com/amalgam-labs/amalgamd/pkg/fixedpoint"
)

const (
	ContractName    = "amalgam"
	ContractVersion = "0.1.0"
)

type Service interface {
	Start() error
	Stop()
	Instantiate(ctx context.Context, info MessageInfo, msg InstantiateMsg) (*Response, errors.Error)
	// Execute routes msg to the matching operation.
	Execute(ctx context.Context, info MessageInfo, msg ExecuteMsg) (*Response, errors.Error)
	AddComponent(
		ctx context.Context, info MessageInfo, component domain.Component,
	) (*Response, errors.Error)
	Deposit(ctx context.Context, info MessageInfo) (*Response, errors.Error)
	Receive(ctx context.Context, info MessageInfo, msg Cw20ReceiveMsg) (*Response, errors.Error)
	Withdraw(ctx context.Context, info MessageInfo, asset domain.Asset) (*Response, errors.Error)
	CollectTaxes(ctx context.Context, info MessageInfo, asset domain.Asset) (*Response, errors.Error)
	UpdateMetadata(
		ctx context.Context, info MessageInfo, update domain.MetadataUpdate,
	) (*Response, errors.Error)
	UpdateAdmin(ctx context.Context, info MessageInfo, admin string) (*Response, errors.Error)
	// Query routes msg to the matching read-only query.
	Query(ctx context.Context, msg QueryMsg) (any, errors.Error)
	Components(ctx context.Context) (*ComponentsResponse, errors.Error)
	Taxes(ctx context.Context) (*TaxesResponse, errors.Error)
	Info(ctx context.Context) (*InfoResponse, errors.Error)
	Reserves(ctx context.Context) (*ReservesResponse, errors.Error)
	Fund(
		ctx context.Context, asset domain.Asset, address string, amount fixedpoint.Amount,
	) errors.Error
	GetEventsChannel(ctx context.Context) (<-chan domain.BasketEvent, errors.Error)
}

// MessageInfo is the authenticated envelope of a request: who sent it and the
// native funds attached to it.
type MessageInfo struct {
	Sender string        `json:"sender"`
	Funds  []domain.Coin `json:"funds"`
}

type InstantiateMsg struct {
	// Admin defaults to the sender when empty.
	Admin    string               `json:"admin,omitempty"`
	Metadata domain.DenomMetadata `json:"metadata"`
}

// ExecuteMsg is a tagged union, exactly one field must be set.
type ExecuteMsg struct {
	AddComponent   *domain.Component      `json:"add_component,omitempty"`
	Deposit        *DepositMsg            `json:"deposit,omitempty"`
	Withdraw       *WithdrawMsg           `json:"withdraw,omitempty"`
	Receive        *Cw20ReceiveMsg        `json:"receive,omitempty"`
	CollectTaxes   *CollectTaxesMsg       `json:"collect_taxes,omitempty"`
	UpdateMetadata *domain.MetadataUpdate `json:"update_metadata,omitempty"`
	UpdateAdmin    *UpdateAdminMsg        `json:"update_admin,omitempty"`
}

func (m ExecuteMsg) variant() (string, error) {
	set := make([]string, 0, 1)
	if m.AddComponent != nil {
		set = append(set, "add_component")
	}
	if m.Deposit != nil {
		set = append(set, "deposit")
	}
	if m.Withdraw != nil {
		set = append(set, "withdraw")
	}
	if m.Receive != nil {
		set = append(set, "receive")
	}
	if m.CollectTaxes != nil {
		set = append(set, "collect_taxes")
	}
	if m.UpdateMetadata != nil {
		set = append(set, "update_metadata")
	}
	if m.UpdateAdmin != nil {
		set = append(set, "update_admin")
	}
	if len(set) != 1 {
		return "", fmt.Errorf("expected exactly one execute variant, got %v", set)
	}
	return set[0], nil
}

type DepositMsg struct{}

type WithdrawMsg struct {
	Asset domain.Asset `json:"asset"`
}

type CollectTaxesMsg struct {
	Asset domain.Asset `json:"asset"`
}

type UpdateAdminMsg struct {
	Admin string `json:"admin"`
}

// Cw20ReceiveMsg is the hook a cw20 contract calls after tokens were sent to
// the basket. Sender is the original owner of the tokens, Msg the JSON payload.
type Cw20ReceiveMsg struct {
	Sender string            `json:"sender"`
	Amount fixedpoint.Amount `json:"amount"`
	Msg    []byte            `json:"msg"`
}

// Cw20HookMsg is the payload accepted by Receive.
type Cw20HookMsg struct {
	Deposit *DepositMsg `json:"deposit,omitempty"`
}

func parseCw20HookMsg(buf []byte) (*Cw20HookMsg, error) {
	var msg Cw20HookMsg
	if err := json.Unmarshal(buf, &msg); err != nil {
		return nil, err
	}
	if msg.Deposit == nil {
		return nil, fmt.Errorf("unknown hook message")
	}
	return &msg, nil
}

type QueryMsg struct {
	Components *struct{} `json:"components,omitempty"`
	Taxes      *struct{} `json:"taxes,omitempty"`
	Info       *struct{} `json:"info,omitempty"`
	Reserves   *struct{} `json:"reserves,omitempty"`
}

type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Response lists the instructions the ledger executed on behalf of the
// operation, along with the attributes describing it.
type Response struct {
	Messages   []domain.Instruction `json:"messages"`
	Attributes []Attribute          `json:"attributes"`
}

func (r Response) Attribute(key string) (string, bool) {
	for _, attr := range r.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

type ComponentsResponse struct {
	Components []domain.Component `json:"components"`
}

type TaxesResponse struct {
	Taxes []domain.TaxAccrual `json:"taxes"`
}

type InfoResponse struct {
	Admin           string `json:"admin"`
	Denom           string `json:"denom"`
	Contract        string `json:"contract"`
	ContractName    string `json:"contract_name"`
	ContractVersion string `json:"contract_version"`
}

type Reserve struct {
	Asset domain.Asset `json:"asset"`
	// Balance is what the contract holds, accrued taxes included.
	Balance fixedpoint.Amount `json:"balance"`
	Taxes   fixedpoint.Amount `json:"taxes"`
}

type ReservesResponse struct {
	Supply   fixedpoint.Amount `json:"supply"`
	Reserves []Reserve         `json:"reserves"`
}
