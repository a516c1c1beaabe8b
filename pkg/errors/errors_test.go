package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// generateErrorFixtures creates test fixtures with sample metadata for each error type
func generateErrorFixtures() []Error {
	return []Error{
		INTERNAL_ERROR.New("failed to open store").
			WithMetadata(map[string]any{
				"component": "database",
				"operation": "upsert",
			}),

		UNAUTHORIZED.New("sender is not the admin").
			WithMetadata(SenderMetadata{Sender: "osmo1notadmin"}),

		INVALID_FUNDS.New("expected exactly one fund, got %d", 2).
			WithMetadata(FundsMetadata{Funds: []string{"10uatom", "5uosmo"}}),

		DUPLICATE_COMPONENT.New("component already registered").
			WithMetadata(AssetMetadata{Asset: "native:uatom"}),

		UNKNOWN_ASSET.New("asset not registered").
			WithMetadata(AssetMetadata{Asset: "cw20:osmo1contract"}),

		INVALID_WITHDRAWAL_FEE.New("Invalid fee must be between 0 and 10000").
			WithMetadata(WithdrawalFeeMetadata{Fee: 10001, MaxFee: 10000}),

		NO_TAXES.New("no taxes to collect").
			WithMetadata(AssetMetadata{Asset: "native:uatom"}),

		INVALID_WEIGHT.New("weight must be greater than zero").
			WithMetadata(WeightMetadata{Asset: "native:uatom", Weight: "0"}),

		ARITHMETIC_ERROR.New("overflow").
			WithMetadata(ArithmeticMetadata{Operation: "mul"}),

		INVALID_PAYLOAD.New("unknown receive payload").
			WithMetadata(PayloadMetadata{Payload: `{"swap":{}}`}),

		ALREADY_INSTANTIATED.New("basket already instantiated"),
		NOT_INSTANTIATED.New("basket not instantiated"),
		INVALID_REQUEST.New("missing sender"),
	}
}

func TestErrorGRPCStatus(t *testing.T) {
	fixtures := generateErrorFixtures()

	for _, err := range fixtures {
		require.NotNil(t, err)
		require.NotEmpty(t, err.Error())

		st := status.Convert(err)
		require.NotNil(t, st)
		require.Equal(t, err.GrpcCode(), st.Code())

		details := st.Details()
		require.Len(t, details, 1)

		detail, ok := details[0].(*errdetails.ErrorInfo)
		require.True(t, ok)
		require.Equal(t, err.CodeName(), detail.Reason)
		require.Equal(t, errorDomain, detail.Domain)
		require.Equal(t, fmt.Sprintf("%d", err.Code()), detail.Metadata["code"])
	}
}

func TestErrorMetadata(t *testing.T) {
	t.Run("struct metadata", func(t *testing.T) {
		err := INVALID_WITHDRAWAL_FEE.New("bad fee").
			WithMetadata(WithdrawalFeeMetadata{Fee: 10001, MaxFee: 10000})

		md := err.Metadata()
		require.Equal(t, "10001", md["fee"])
		require.Equal(t, "10000", md["max_fee"])
	})

	t.Run("no metadata", func(t *testing.T) {
		err := ALREADY_INSTANTIATED.New("again")
		require.Empty(t, err.Metadata())
	})
}

func TestErrorWrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := INTERNAL_ERROR.Wrap(cause)

	require.ErrorIs(t, err, cause)
	require.Equal(t, uint16(0), err.Code())
	require.Equal(t, grpccodes.Internal, err.GrpcCode())
	require.Equal(t, "INTERNAL_ERROR (0): disk full", err.Error())
}
