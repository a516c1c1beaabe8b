package interceptors

import (
	"context"
	"testing"
	"time"

	"github.com/amalgam-labs/amalgamd/pkg/auth"
	"github.com/amalgam-labs/amalgamd/pkg/errors"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestSignatureAuthHandler(t *testing.T) {
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	address, err := auth.Address("osmo", key.PubKey())
	require.NoError(t, err)

	req, err := structpb.NewStruct(map[string]any{
		"sender": address,
		"msg":    map[string]any{"deposit": map[string]any{}},
	})
	require.NoError(t, err)

	signedCtx := func(method string) context.Context {
		creds, err := auth.Sign(key, method, req.AsMap(), time.Now())
		require.NoError(t, err)
		return metadata.NewIncomingContext(context.Background(), metadata.New(creds.Headers()))
	}

	call := func(ctx context.Context, fullMethod string) (string, error) {
		interceptor := unarySignatureAuthHandler(auth.NewVerifier("osmo", time.Minute))
		resp, err := interceptor(
			ctx, req, &grpc.UnaryServerInfo{FullMethod: fullMethod},
			func(ctx context.Context, _ any) (any, error) {
				signer, _ := auth.SignerFromContext(ctx)
				return signer, nil
			},
		)
		if err != nil {
			return "", err
		}
		return resp.(string), nil
	}

	t.Run("valid", func(t *testing.T) {
		signer, err := call(signedCtx("Execute"), executeMethod)
		require.NoError(t, err)
		require.Equal(t, address, signer)
	})

	t.Run("unsigned methods", func(t *testing.T) {
		for _, method := range []string{"Query", "Fund"} {
			signer, err := call(context.Background(), amalgamServiceMethodPrefix+method)
			require.NoError(t, err)
			require.Empty(t, signer)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		fixtures := []struct {
			name string
			ctx  context.Context
		}{
			{"missing credentials", context.Background()},
			{"signed for another method", signedCtx("Instantiate")},
			{"partial credentials", metadata.NewIncomingContext(
				context.Background(), metadata.Pairs(auth.PubkeyHeader, "02aa"),
			)},
		}
		for _, f := range fixtures {
			t.Run(f.name, func(t *testing.T) {
				_, err := call(f.ctx, executeMethod)
				var structuredErr errors.Error
				require.ErrorAs(t, err, &structuredErr)
				require.Equal(t, "UNAUTHENTICATED", structuredErr.CodeName())
			})
		}
	})

	t.Run("no verifier", func(t *testing.T) {
		ctx, err := checkSignature(context.Background(), executeMethod, req, nil)
		require.NoError(t, err)
		_, ok := auth.SignerFromContext(ctx)
		require.False(t, ok)
	})
}
