package handlers

import (
	"testing"

	"github.com/amalgam-labs/amalgamd/internal/core/application"
	"github.com/amalgam-labs/amalgamd/internal/core/domain"
	"github.com/amalgam-labs/amalgamd/pkg/fixedpoint"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func newStruct(t *testing.T, v map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(v)
	require.NoError(t, err)
	return s
}

func TestParseRequest(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		req := newStruct(t, map[string]any{
			"sender": "osmo1alice",
			"funds": []any{
				map[string]any{"denom": "uosmo", "amount": "100"},
			},
			"msg": map[string]any{
				"withdraw": map[string]any{
					"asset": map[string]any{"native": "uosmo"},
				},
			},
		})

		var msg application.ExecuteMsg
		r, err := parseRequest(req, &msg)
		require.Nil(t, err)
		require.Equal(t, "osmo1alice", r.info().Sender)
		require.Equal(t, []domain.Coin{domain.NewCoin(100, "uosmo")}, r.info().Funds)
		require.NotNil(t, msg.Withdraw)
		require.Equal(t, domain.NativeAsset("uosmo"), msg.Withdraw.Asset)
	})

	t.Run("invalid", func(t *testing.T) {
		fixtures := []struct {
			name string
			req  *structpb.Struct
		}{
			{"nil request", nil},
			{"missing sender", newStruct(t, map[string]any{"msg": map[string]any{}})},
			{"missing msg", newStruct(t, map[string]any{"sender": "osmo1alice"})},
			{"invalid funds", newStruct(t, map[string]any{
				"sender": "osmo1alice",
				"funds":  "100uosmo",
				"msg":    map[string]any{},
			})},
			{"invalid asset", newStruct(t, map[string]any{
				"sender": "osmo1alice",
				"msg": map[string]any{
					"withdraw": map[string]any{"asset": map[string]any{"erc20": "0x"}},
				},
			})},
		}
		for _, f := range fixtures {
			t.Run(f.name, func(t *testing.T) {
				var msg application.ExecuteMsg
				r, err := parseRequest(f.req, &msg)
				require.NotNil(t, err)
				require.Nil(t, r)
				require.Equal(t, "INVALID_REQUEST", err.CodeName())
			})
		}
	})
}

func TestParseFundRequest(t *testing.T) {
	req, err := parseFundRequest(newStruct(t, map[string]any{
		"asset":   map[string]any{"cw20": "osmo1token"},
		"address": "osmo1alice",
		"amount":  "42",
	}))
	require.Nil(t, err)
	require.Equal(t, domain.Cw20Asset("osmo1token"), req.Asset)
	require.Equal(t, "osmo1alice", req.Address)
	require.Equal(t, fixedpoint.NewAmount(42), req.Amount)

	_, err = parseFundRequest(newStruct(t, map[string]any{
		"asset":   map[string]any{"cw20": "osmo1token"},
		"address": "osmo1alice",
		"amount":  "0",
	}))
	require.NotNil(t, err)

	_, err = parseFundRequest(newStruct(t, map[string]any{
		"asset":  map[string]any{"cw20": "osmo1token"},
		"amount": "1",
	}))
	require.NotNil(t, err)
}

func TestParseEventTypes(t *testing.T) {
	types, err := parseEventTypes(nil)
	require.Nil(t, err)
	require.Empty(t, types)

	types, err = parseEventTypes(newStruct(t, map[string]any{
		"types": []any{"deposit", "withdraw"},
	}))
	require.Nil(t, err)
	require.Equal(t, []string{"deposit", "withdraw"}, types)
}

func TestEncodeResponse(t *testing.T) {
	resp := &application.Response{
		Messages: []domain.Instruction{
			domain.BankSend{
				ToAddress: "osmo1alice",
				Amount:    []domain.Coin{domain.NewCoin(89, "uosmo")},
			},
		},
		Attributes: []application.Attribute{{Key: "action", Value: "withdraw"}},
	}

	s, err := encode(toResponse(resp))
	require.NoError(t, err)

	out := s.AsMap()
	messages := out["messages"].([]any)
	require.Len(t, messages, 1)
	send := messages[0].(map[string]any)["bank_send"].(map[string]any)
	require.Equal(t, "osmo1alice", send["to_address"])
	require.Equal(t, []any{map[string]any{"denom": "uosmo", "amount": "89"}}, send["amount"])

	attributes := out["attributes"].([]any)
	require.Equal(t, map[string]any{"key": "action", "value": "withdraw"}, attributes[0])

	s, err = encode(toResponse(&application.Response{}))
	require.NoError(t, err)
	require.Empty(t, s.AsMap()["messages"])
	require.Empty(t, s.AsMap()["attributes"])
}
