package osmosisissuer

import (
	"fmt"

	"github.com/amalgam-labs/amalgamd/internal/core/domain"
	"github.com/amalgam-labs/amalgamd/pkg/fixedpoint"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	TypeUrlMsgCreateDenom      = "/osmosis.tokenfactory.v1beta1.MsgCreateDenom"
	TypeUrlMsgSetDenomMetadata = "/osmosis.tokenfactory.v1beta1.MsgSetDenomMetadata"
	TypeUrlMsgMint             = "/osmosis.tokenfactory.v1beta1.MsgMint"
	TypeUrlMsgBurn             = "/osmosis.tokenfactory.v1beta1.MsgBurn"
)

type MsgCreateDenom struct {
	Sender   string
	Subdenom string
}

type MsgSetDenomMetadata struct {
	Sender   string
	Metadata domain.DenomMetadata
}

type MsgMint struct {
	Sender        string
	Amount        domain.Coin
	MintToAddress string
}

type MsgBurn struct {
	Sender          string
	Amount          domain.Coin
	BurnFromAddress string
}

func (m MsgCreateDenom) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.Sender)
	b = appendString(b, 2, m.Subdenom)
	return b
}

func (m MsgSetDenomMetadata) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.Sender)
	b = appendMessage(b, 2, marshalMetadata(m.Metadata))
	return b
}

func (m MsgMint) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.Sender)
	b = appendMessage(b, 2, marshalCoin(m.Amount))
	b = appendString(b, 3, m.MintToAddress)
	return b
}

func (m MsgBurn) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.Sender)
	b = appendMessage(b, 2, marshalCoin(m.Amount))
	b = appendString(b, 3, m.BurnFromAddress)
	return b
}

// Decode parses a stargate instruction into one of the tokenfactory messages.
func Decode(ix domain.Stargate) (any, error) {
	switch ix.TypeUrl {
	case TypeUrlMsgCreateDenom:
		msg := MsgCreateDenom{}
		err := walkFields(ix.Value, func(num protowire.Number, f field) error {
			switch num {
			case 1:
				msg.Sender = f.str()
			case 2:
				msg.Subdenom = f.str()
			}
			return nil
		})
		return msg, err
	case TypeUrlMsgSetDenomMetadata:
		msg := MsgSetDenomMetadata{}
		err := walkFields(ix.Value, func(num protowire.Number, f field) error {
			switch num {
			case 1:
				msg.Sender = f.str()
			case 2:
				md, err := unmarshalMetadata(f.bytes)
				if err != nil {
					return err
				}
				msg.Metadata = *md
			}
			return nil
		})
		return msg, err
	case TypeUrlMsgMint:
		msg := MsgMint{}
		err := walkFields(ix.Value, func(num protowire.Number, f field) error {
			switch num {
			case 1:
				msg.Sender = f.str()
			case 2:
				coin, err := unmarshalCoin(f.bytes)
				if err != nil {
					return err
				}
				msg.Amount = *coin
			case 3:
				msg.MintToAddress = f.str()
			}
			return nil
		})
		return msg, err
	case TypeUrlMsgBurn:
		msg := MsgBurn{}
		err := walkFields(ix.Value, func(num protowire.Number, f field) error {
			switch num {
			case 1:
				msg.Sender = f.str()
			case 2:
				coin, err := unmarshalCoin(f.bytes)
				if err != nil {
					return err
				}
				msg.Amount = *coin
			case 3:
				msg.BurnFromAddress = f.str()
			}
			return nil
		})
		return msg, err
	default:
		return nil, fmt.Errorf("unsupported message type %s", ix.TypeUrl)
	}
}

func marshalCoin(c domain.Coin) []byte {
	var b []byte
	b = appendString(b, 1, c.Denom)
	b = appendString(b, 2, c.Amount.String())
	return b
}

func unmarshalCoin(buf []byte) (*domain.Coin, error) {
	coin := &domain.Coin{}
	err := walkFields(buf, func(num protowire.Number, f field) error {
		switch num {
		case 1:
			coin.Denom = f.str()
		case 2:
			amount, err := fixedpoint.ParseAmount(f.str())
			if err != nil {
				return err
			}
			coin.Amount = amount
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid coin: %w", err)
	}
	return coin, nil
}

func marshalMetadata(md domain.DenomMetadata) []byte {
	var b []byte
	b = appendString(b, 1, md.Description)
	for _, unit := range md.DenomUnits {
		b = appendMessage(b, 2, marshalDenomUnit(unit))
	}
	b = appendString(b, 3, md.Base)
	b = appendString(b, 4, md.Display)
	b = appendString(b, 5, md.Name)
	b = appendString(b, 6, md.Symbol)
	b = appendString(b, 7, md.Uri)
	b = appendString(b, 8, md.UriHash)
	return b
}

func unmarshalMetadata(buf []byte) (*domain.DenomMetadata, error) {
	md := &domain.DenomMetadata{}
	err := walkFields(buf, func(num protowire.Number, f field) error {
		switch num {
		case 1:
			md.Description = f.str()
		case 2:
			unit, err := unmarshalDenomUnit(f.bytes)
			if err != nil {
				return err
			}
			md.DenomUnits = append(md.DenomUnits, *unit)
		case 3:
			md.Base = f.str()
		case 4:
			md.Display = f.str()
		case 5:
			md.Name = f.str()
		case 6:
			md.Symbol = f.str()
		case 7:
			md.Uri = f.str()
		case 8:
			md.UriHash = f.str()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid metadata: %w", err)
	}
	return md, nil
}

func marshalDenomUnit(unit domain.DenomUnit) []byte {
	var b []byte
	b = appendString(b, 1, unit.Denom)
	if unit.Exponent != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(unit.Exponent))
	}
	for _, alias := range unit.Aliases {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, alias)
	}
	return b
}

func unmarshalDenomUnit(buf []byte) (*domain.DenomUnit, error) {
	unit := &domain.DenomUnit{}
	err := walkFields(buf, func(num protowire.Number, f field) error {
		switch num {
		case 1:
			unit.Denom = f.str()
		case 2:
			unit.Exponent = uint32(f.varint)
		case 3:
			unit.Aliases = append(unit.Aliases, f.str())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid denom unit: %w", err)
	}
	return unit, nil
}

// appendString skips empty values, as proto3 does for scalar defaults.
func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendMessage(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

type field struct {
	bytes  []byte
	varint uint64
}

func (f field) str() string {
	return string(f.bytes)
}

func walkFields(buf []byte, fn func(num protowire.Number, f field) error) error {
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return protowire.ParseError(n)
		}
		buf = buf[n:]

		var f field
		switch typ {
		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(buf)
			if m < 0 {
				return protowire.ParseError(m)
			}
			f.bytes = v
			n = m
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(buf)
			if m < 0 {
				return protowire.ParseError(m)
			}
			f.varint = v
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return protowire.ParseError(n)
			}
			buf = buf[n:]
			continue
		}
		buf = buf[n:]

		if err := fn(num, f); err != nil {
			return err
		}
	}
	return nil
}
