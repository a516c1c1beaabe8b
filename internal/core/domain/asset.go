package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/amalgam-labs/amalgamd/pkg/fixedpoint"
)

type AssetType string

const (
	AssetTypeNative AssetType = "native"
	AssetTypeCw20   AssetType = "cw20"
)

// Asset identifies a component token: a native ledger denom or a cw20 contract.
type Asset struct {
	Type AssetType
	// Id is the denom for native assets and the contract address for cw20 ones.
	Id string
}

func NativeAsset(denom string) Asset {
	return Asset{Type: AssetTypeNative, Id: denom}
}

func Cw20Asset(contract string) Asset {
	return Asset{Type: AssetTypeCw20, Id: contract}
}

// Key returns the canonical storage key, ie. native:<denom> or cw20:<contract>.
func (a Asset) Key() string {
	return fmt.Sprintf("%s:%s", a.Type, a.Id)
}

func (a Asset) String() string {
	return a.Key()
}

func (a Asset) Validate() error {
	switch a.Type {
	case AssetTypeNative, AssetTypeCw20:
	default:
		return fmt.Errorf("unknown asset type %q", a.Type)
	}
	if strings.TrimSpace(a.Id) == "" {
		return fmt.Errorf("missing %s asset id", a.Type)
	}
	return nil
}

// ParseAssetKey is the inverse of Key.
func ParseAssetKey(key string) (Asset, error) {
	kind, id, ok := strings.Cut(key, ":")
	if !ok {
		return Asset{}, fmt.Errorf("invalid asset key %q", key)
	}
	asset := Asset{Type: AssetType(kind), Id: id}
	if err := asset.Validate(); err != nil {
		return Asset{}, fmt.Errorf("invalid asset key %q: %w", key, err)
	}
	return asset, nil
}

// Send builds the instruction transferring amount of the asset to recipient.
func (a Asset) Send(amount fixedpoint.Amount, recipient string) (Instruction, error) {
	switch a.Type {
	case AssetTypeNative:
		return BankSend{
			ToAddress: recipient,
			Amount:    []Coin{{Denom: a.Id, Amount: amount}},
		}, nil
	case AssetTypeCw20:
		msg, err := json.Marshal(Cw20ExecuteMsg{
			Transfer: &Cw20Transfer{Recipient: recipient, Amount: amount},
		})
		if err != nil {
			return nil, err
		}
		return WasmExecute{ContractAddr: a.Id, Msg: msg}, nil
	default:
		return nil, fmt.Errorf("unknown asset type %q", a.Type)
	}
}

// MarshalJSON renders the asset as {"native":"<denom>"} or {"cw20":"<contract>"}.
func (a Asset) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[AssetType]string{a.Type: a.Id})
}

func (a *Asset) UnmarshalJSON(buf []byte) error {
	var raw map[AssetType]string
	if err := json.Unmarshal(buf, &raw); err != nil {
		return fmt.Errorf("invalid asset: %w", err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("invalid asset: expected exactly one of native or cw20")
	}
	for kind, id := range raw {
		asset := Asset{Type: kind, Id: id}
		if err := asset.Validate(); err != nil {
			return err
		}
		*a = asset
	}
	return nil
}

// Cw20ExecuteMsg is the subset of the cw20 execute interface used by the basket.
type Cw20ExecuteMsg struct {
	Transfer *Cw20Transfer `json:"transfer,omitempty"`
}

type Cw20Transfer struct {
	Recipient string            `json:"recipient"`
	Amount    fixedpoint.Amount `json:"amount"`
}
