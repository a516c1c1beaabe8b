package ledger_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/amalgam-labs/amalgamd/internal/core/domain"
	"github.com/amalgam-labs/amalgamd/internal/core/ports"
	osmosisissuer "github.com/amalgam-labs/amalgamd/internal/infrastructure/issuer/osmosis"
	"github.com/amalgam-labs/amalgamd/internal/infrastructure/ledger"
	inmemoryledger "github.com/amalgam-labs/amalgamd/internal/infrastructure/ledger/inmemory"
	redisledger "github.com/amalgam-labs/amalgamd/internal/infrastructure/ledger/redis"
	"github.com/amalgam-labs/amalgamd/pkg/fixedpoint"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const redisURL = "redis://localhost:6379/15"

func TestLedgerImplementations(t *testing.T) {
	ledgers := []struct {
		name   string
		ledger ports.Ledger
	}{
		{"inmemory", inmemoryledger.NewLedger()},
	}

	redisOpts, err := redis.ParseURL(redisURL)
	require.NoError(t, err)
	rdb := redis.NewClient(redisOpts)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err == nil {
		ledgers = append(ledgers, struct {
			name   string
			ledger ports.Ledger
		}{"redis", redisledger.NewLedger(rdb, 5)})
	} else {
		t.Logf("skipping redis ledger: %s", err)
	}

	for _, tt := range ledgers {
		t.Run(tt.name, func(t *testing.T) {
			runLedgerTests(t, tt.ledger)
		})
	}
}

func runLedgerTests(t *testing.T, l ports.Ledger) {
	t.Run("bank", func(t *testing.T) {
		ctx := t.Context()
		contract, user, other := newAddress(), newAddress(), newAddress()
		atom := domain.NativeAsset("uatom")

		require.NoError(t, l.Fund(ctx, atom, user, fixedpoint.NewAmount(100)))

		send, err := atom.Send(fixedpoint.NewAmount(40), other)
		require.NoError(t, err)
		err = l.Apply(ctx, ports.LedgerTx{
			Contract: contract,
			Transfers: []ports.Transfer{
				{Asset: atom, From: user, To: contract, Amount: fixedpoint.NewAmount(100)},
			},
			Instructions: []domain.Instruction{send},
		})
		require.NoError(t, err)

		requireBalance(t, l, atom, user, "0")
		requireBalance(t, l, atom, contract, "60")
		requireBalance(t, l, atom, other, "40")
	})

	t.Run("atomicity", func(t *testing.T) {
		ctx := t.Context()
		contract, user := newAddress(), newAddress()
		atom := domain.NativeAsset("uatom")

		require.NoError(t, l.Fund(ctx, atom, user, fixedpoint.NewAmount(10)))

		send, err := atom.Send(fixedpoint.NewAmount(11), user)
		require.NoError(t, err)
		err = l.Apply(ctx, ports.LedgerTx{
			Contract: contract,
			Transfers: []ports.Transfer{
				{Asset: atom, From: user, To: contract, Amount: fixedpoint.NewAmount(10)},
			},
			Instructions: []domain.Instruction{send},
		})
		require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

		requireBalance(t, l, atom, user, "10")
		requireBalance(t, l, atom, contract, "0")

		err = l.Apply(ctx, ports.LedgerTx{
			Contract: contract,
			Transfers: []ports.Transfer{
				{Asset: atom, From: user, To: contract, Amount: fixedpoint.NewAmount(11)},
			},
		})
		require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
		requireBalance(t, l, atom, user, "10")
	})

	t.Run("cw20", func(t *testing.T) {
		ctx := t.Context()
		contract, user := newAddress(), newAddress()
		token := domain.Cw20Asset(newAddress())

		require.NoError(t, l.Fund(ctx, token, contract, fixedpoint.NewAmount(10)))

		send, err := token.Send(fixedpoint.NewAmount(7), user)
		require.NoError(t, err)
		require.NoError(t, l.Apply(ctx, ports.LedgerTx{
			Contract:     contract,
			Instructions: []domain.Instruction{send},
		}))

		requireBalance(t, l, token, contract, "3")
		requireBalance(t, l, token, user, "7")

		err = l.Apply(ctx, ports.LedgerTx{
			Contract: contract,
			Instructions: []domain.Instruction{domain.WasmExecute{
				ContractAddr: token.Id,
				Msg:          []byte(`{"burn":{"amount":"1"}}`),
			}},
		})
		require.ErrorIs(t, err, ledger.ErrUnsupportedInstruction)
	})

	t.Run("tokenfactory", func(t *testing.T) {
		ctx := t.Context()
		contract, user := newAddress(), newAddress()

		issuer, err := osmosisissuer.NewTokenIssuer(contract, "")
		require.NoError(t, err)
		denom := issuer.Denom()
		basket := domain.NativeAsset(denom)

		_, err = l.DenomMetadata(ctx, denom)
		require.ErrorIs(t, err, ledger.ErrDenomNotFound)

		metadata := domain.DenomMetadata{
			Description: "basket",
			DenomUnits:  []domain.DenomUnit{{Denom: denom}, {Denom: "amg", Exponent: 6}},
			Base:        denom,
			Display:     "amg",
			Name:        "Amalgam",
			Symbol:      "AMG",
		}

		ixs := make([]domain.Instruction, 0)
		for _, build := range []func() ([]domain.Instruction, error){
			issuer.Create,
			func() ([]domain.Instruction, error) { return issuer.SetMetadata(metadata) },
			func() ([]domain.Instruction, error) {
				return issuer.Mint(fixedpoint.NewAmount(50), user)
			},
		} {
			ix, err := build()
			require.NoError(t, err)
			ixs = append(ixs, ix...)
		}
		require.NoError(t, l.Apply(ctx, ports.LedgerTx{Contract: contract, Instructions: ixs}))

		md, err := l.DenomMetadata(ctx, denom)
		require.NoError(t, err)
		require.Equal(t, metadata, *md)
		requireBalance(t, l, basket, user, "50")
		requireSupply(t, l, denom, "50")

		create, err := issuer.Create()
		require.NoError(t, err)
		err = l.Apply(ctx, ports.LedgerTx{Contract: contract, Instructions: create})
		require.ErrorIs(t, err, ledger.ErrDenomExists)

		mint, err := issuer.Mint(fixedpoint.NewAmount(1), user)
		require.NoError(t, err)
		err = l.Apply(ctx, ports.LedgerTx{Contract: newAddress(), Instructions: mint})
		require.ErrorIs(t, err, ledger.ErrUnauthorized)

		burn, err := issuer.Burn(fixedpoint.NewAmount(20), user)
		require.NoError(t, err)
		require.NoError(t, l.Apply(ctx, ports.LedgerTx{Contract: contract, Instructions: burn}))
		requireBalance(t, l, basket, user, "30")
		requireSupply(t, l, denom, "30")

		burn, err = issuer.Burn(fixedpoint.NewAmount(31), user)
		require.NoError(t, err)
		err = l.Apply(ctx, ports.LedgerTx{Contract: contract, Instructions: burn})
		require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
		requireSupply(t, l, denom, "30")
	})
}

func requireBalance(t *testing.T, l ports.Ledger, asset domain.Asset, address, expected string) {
	t.Helper()
	balance, err := l.Balance(t.Context(), asset, address)
	require.NoError(t, err)
	require.Equal(t, expected, balance.String())
}

func requireSupply(t *testing.T, l ports.Ledger, denom, expected string) {
	t.Helper()
	supply, err := l.Supply(t.Context(), denom)
	require.NoError(t, err)
	require.Equal(t, expected, supply.String())
}

func newAddress() string {
	return fmt.Sprintf("osmo1%s", uuid.New().String()[:8])
}
