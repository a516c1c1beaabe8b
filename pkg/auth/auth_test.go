package auth_test

import (
	"context"
	"encoding/hex"
	"strconv"
	"testing"
	"time"

	"github.com/amalgam-labs/amalgamd/pkg/auth"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/stretchr/testify/require"
)

const prefix = "osmo"

func TestAddress(t *testing.T) {
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	address, err := auth.Address(prefix, key.PubKey())
	require.NoError(t, err)

	hrp, data, err := bech32.Decode(address)
	require.NoError(t, err)
	require.Equal(t, prefix, hrp)
	decoded, err := bech32.ConvertBits(data, 5, 8, false)
	require.NoError(t, err)
	require.Equal(t, btcutil.Hash160(key.PubKey().SerializeCompressed()), decoded)

	got, err := auth.AddressPrefix(address)
	require.NoError(t, err)
	require.Equal(t, prefix, got)

	got, err = auth.AddressPrefix("osmo1basket")
	require.NoError(t, err)
	require.Equal(t, prefix, got)

	_, err = auth.AddressPrefix("basket")
	require.Error(t, err)
}

func TestParsePrivateKey(t *testing.T) {
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	parsed, err := auth.ParsePrivateKey(" " + hexKey(key) + "\n")
	require.NoError(t, err)
	require.True(t, key.PubKey().IsEqual(parsed.PubKey()))

	for _, invalid := range []string{"", "zz", "00ff"} {
		_, err := auth.ParsePrivateKey(invalid)
		require.Error(t, err, invalid)
	}
}

func TestVerify(t *testing.T) {
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	other, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	address, err := auth.Address(prefix, key.PubKey())
	require.NoError(t, err)

	body, err := auth.Normalize(map[string]any{
		"sender": address,
		"funds":  []map[string]any{{"denom": "uatom", "amount": "10"}},
		"msg":    map[string]any{"deposit": map[string]any{}},
	})
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		verifier := auth.NewVerifier(prefix, time.Minute)
		creds, err := auth.Sign(key, "Execute", body, time.Now())
		require.NoError(t, err)

		signer, err := verifier.Verify("Execute", *creds, body)
		require.NoError(t, err)
		require.Equal(t, address, signer)

		// The same signed request can't be processed twice.
		_, err = verifier.Verify("Execute", *creds, body)
		require.ErrorIs(t, err, auth.ErrReplayedRequest)
	})

	t.Run("invalid", func(t *testing.T) {
		verifier := auth.NewVerifier(prefix, time.Minute)
		creds, err := auth.Sign(key, "Execute", body, time.Now())
		require.NoError(t, err)
		otherCreds, err := auth.Sign(other, "Execute", body, time.Now())
		require.NoError(t, err)

		tampered, err := auth.Normalize(map[string]any{
			"sender": address,
			"funds":  []map[string]any{{"denom": "uatom", "amount": "1000"}},
			"msg":    map[string]any{"deposit": map[string]any{}},
		})
		require.NoError(t, err)

		fixtures := []struct {
			name   string
			method string
			creds  auth.Credentials
			body   map[string]any
		}{
			{"tampered body", "Execute", *creds, tampered},
			{"other method", "Instantiate", *creds, body},
			{"other timestamp", "Execute", auth.Credentials{
				Pubkey: creds.Pubkey, Signature: creds.Signature, Timestamp: creds.Timestamp + 1,
			}, body},
			{"other pubkey", "Execute", auth.Credentials{
				Pubkey: otherCreds.Pubkey, Signature: creds.Signature, Timestamp: creds.Timestamp,
			}, body},
			{"invalid pubkey", "Execute", auth.Credentials{
				Pubkey: "00", Signature: creds.Signature, Timestamp: creds.Timestamp,
			}, body},
			{"invalid signature", "Execute", auth.Credentials{
				Pubkey: creds.Pubkey, Signature: "3006", Timestamp: creds.Timestamp,
			}, body},
		}
		for _, f := range fixtures {
			t.Run(f.name, func(t *testing.T) {
				_, err := verifier.Verify(f.method, f.creds, f.body)
				require.ErrorIs(t, err, auth.ErrInvalidSignature)
			})
		}
	})

	t.Run("expired", func(t *testing.T) {
		verifier := auth.NewVerifier(prefix, time.Minute)
		creds, err := auth.Sign(key, "Execute", body, time.Now().Add(-2*time.Minute))
		require.NoError(t, err)
		_, err = verifier.Verify("Execute", *creds, body)
		require.ErrorIs(t, err, auth.ErrExpiredSignature)

		creds, err = auth.Sign(key, "Execute", body, time.Now().Add(2*time.Minute))
		require.NoError(t, err)
		_, err = verifier.Verify("Execute", *creds, body)
		require.ErrorIs(t, err, auth.ErrExpiredSignature)
	})
}

func TestParseCredentials(t *testing.T) {
	_, err := auth.ParseCredentials("", "", "")
	require.ErrorIs(t, err, auth.ErrMissingCredentials)

	_, err = auth.ParseCredentials("02aa", "", "1")
	require.ErrorIs(t, err, auth.ErrInvalidSignature)

	_, err = auth.ParseCredentials("02aa", "3006", "yesterday")
	require.ErrorIs(t, err, auth.ErrInvalidSignature)

	now := time.Now().UnixMilli()
	creds, err := auth.ParseCredentials("02aa", "3006", strconv.FormatInt(now, 10))
	require.NoError(t, err)
	require.Equal(t, auth.Credentials{Pubkey: "02aa", Signature: "3006", Timestamp: now}, *creds)
	require.Equal(t, strconv.FormatInt(now, 10), creds.Headers()[auth.TimestampHeader])
}

func TestSignerFromContext(t *testing.T) {
	_, ok := auth.SignerFromContext(context.Background())
	require.False(t, ok)

	signer, ok := auth.SignerFromContext(auth.WithSigner(context.Background(), "osmo1signer"))
	require.True(t, ok)
	require.Equal(t, "osmo1signer", signer)
}

func hexKey(key *btcec.PrivateKey) string {
	return hex.EncodeToString(key.Serialize())
}
