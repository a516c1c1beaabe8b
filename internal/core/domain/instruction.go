package domain

import (
	"fmt"
	"strings"

	"github.com/amalgam-labs/amalgamd/pkg/fixedpoint"
)

type InstructionType string

const (
	InstructionTypeStargate    InstructionType = "stargate"
	InstructionTypeBankSend    InstructionType = "bank_send"
	InstructionTypeWasmExecute InstructionType = "wasm_execute"
)

// Instruction is a side effect emitted by an operation and executed by the host
// ledger together with the state mutation.
type Instruction interface {
	Type() InstructionType
}

// Stargate carries a protobuf-encoded message identified by its type url.
type Stargate struct {
	TypeUrl string `json:"type_url"`
	Value   []byte `json:"value"`
}

func (Stargate) Type() InstructionType { return InstructionTypeStargate }

type BankSend struct {
	ToAddress string `json:"to_address"`
	Amount    []Coin `json:"amount"`
}

func (BankSend) Type() InstructionType { return InstructionTypeBankSend }

type WasmExecute struct {
	ContractAddr string `json:"contract_addr"`
	Msg          []byte `json:"msg"`
	Funds        []Coin `json:"funds"`
}

func (WasmExecute) Type() InstructionType { return InstructionTypeWasmExecute }

type Coin struct {
	Denom  string            `json:"denom"`
	Amount fixedpoint.Amount `json:"amount"`
}

func NewCoin(amount uint64, denom string) Coin {
	return Coin{Denom: denom, Amount: fixedpoint.NewAmount(amount)}
}

func (c Coin) String() string {
	return fmt.Sprintf("%s%s", c.Amount, c.Denom)
}

type Coins []Coin

func (c Coins) String() string {
	return strings.Join(c.Strings(), ",")
}

func (c Coins) Strings() []string {
	strs := make([]string, 0, len(c))
	for _, coin := range c {
		strs = append(strs, coin.String())
	}
	return strs
}
