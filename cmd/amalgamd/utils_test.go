package main

import (
	"encoding/hex"
	"flag"
	"testing"
	"time"

	"github.com/amalgam-labs/amalgamd/internal/core/domain"
	"github.com/amalgam-labs/amalgamd/pkg/auth"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestParseCoins(t *testing.T) {
	coins, err := parseCoins("")
	require.NoError(t, err)
	require.Empty(t, coins)

	coins, err = parseCoins("10uatom, 5factory/osmo1basket/amalgam")
	require.NoError(t, err)
	require.Equal(t, []domain.Coin{
		domain.NewCoin(10, "uatom"),
		domain.NewCoin(5, "factory/osmo1basket/amalgam"),
	}, coins)

	for _, invalid := range []string{"uatom", "10", "10uatom,", "-1uatom"} {
		_, err := parseCoins(invalid)
		require.Error(t, err, invalid)
	}
}

func TestSigner(t *testing.T) {
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	address, err := auth.Address(defaultPrefix, key.PubKey())
	require.NoError(t, err)

	newContext := func(args ...string) *cli.Context {
		set := flag.NewFlagSet("test", flag.ContinueOnError)
		for _, f := range []cli.Flag{keyFlag, prefixFlag, senderFlag} {
			require.NoError(t, f.Apply(set))
		}
		require.NoError(t, set.Parse(args))
		return cli.NewContext(cli.NewApp(), set, nil)
	}

	t.Run("valid", func(t *testing.T) {
		s, err := getSigner(newContext("--key", hex.EncodeToString(key.Serialize())))
		require.NoError(t, err)
		require.Equal(t, address, s.sender)

		funds, err := parseCoins("10uatom")
		require.NoError(t, err)
		doc, headers, err := s.sign("Execute", map[string]any{
			"sender": s.sender,
			"funds":  funds,
			"msg":    map[string]any{"deposit": map[string]any{}},
		})
		require.NoError(t, err)

		creds, err := auth.ParseCredentials(
			headers[auth.PubkeyHeader], headers[auth.SignatureHeader], headers[auth.TimestampHeader],
		)
		require.NoError(t, err)
		signer, err := auth.NewVerifier(defaultPrefix, time.Minute).Verify("Execute", *creds, doc)
		require.NoError(t, err)
		require.Equal(t, address, signer)
	})

	t.Run("invalid", func(t *testing.T) {
		fixtures := []struct {
			name string
			args []string
		}{
			{"invalid key", []string{"--key", "00ff"}},
			{"sender of another key", []string{
				"--key", hex.EncodeToString(key.Serialize()), "--sender", "osmo1attacker",
			}},
		}
		for _, f := range fixtures {
			t.Run(f.name, func(t *testing.T) {
				_, err := getSigner(newContext(f.args...))
				require.Error(t, err)
			})
		}
	})
}
