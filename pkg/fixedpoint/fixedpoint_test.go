package fixedpoint_test

import (
	"encoding/json"
	"testing"

	"github.com/amalgam-labs/amalgamd/pkg/fixedpoint"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

const maxUint256 = "115792089237316195423570985008687907853269984665640564039457584007913129639935"

func TestParseDecimal(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		fixtures := []struct {
			input    string
			atomics  string
			expected string
		}{
			{"0.01", "10000000000000000", "0.01"},
			{"1", "1000000000000000000", "1"},
			{"1.500", "1500000000000000000", "1.5"},
			{"0", "0", "0"},
			{"0.000000000000000001", "1", "0.000000000000000001"},
			{"123456.789", "123456789000000000000000", "123456.789"},
		}
		for _, f := range fixtures {
			t.Run(f.input, func(t *testing.T) {
				d, err := fixedpoint.ParseDecimal(f.input)
				require.NoError(t, err)
				require.Equal(t, f.atomics, d.Atomics().Dec())
				require.Equal(t, f.expected, d.String())
			})
		}
	})

	t.Run("invalid", func(t *testing.T) {
		fixtures := []string{
			"",
			"abc",
			"-1",
			"0.0000000000000000001",
			maxUint256,
		}
		for _, f := range fixtures {
			t.Run(f, func(t *testing.T) {
				_, err := fixedpoint.ParseDecimal(f)
				require.Error(t, err)
			})
		}
	})
}

func TestDecimalInv(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		fixtures := []struct {
			input    string
			expected string
		}{
			{"0.01", "100"},
			{"1", "1"},
			{"4", "0.25"},
			{"3", "0.333333333333333333"},
			{"0.5", "2"},
		}
		for _, f := range fixtures {
			t.Run(f.input, func(t *testing.T) {
				inv, err := fixedpoint.MustParseDecimal(f.input).Inv()
				require.NoError(t, err)
				require.Equal(t, f.expected, inv.String())
			})
		}
	})

	t.Run("zero", func(t *testing.T) {
		_, err := fixedpoint.Zero().Inv()
		require.ErrorIs(t, err, fixedpoint.ErrDivideByZero)
	})
}

func TestDecimalMulFloor(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		fixtures := []struct {
			decimal  string
			amount   uint64
			expected string
		}{
			{"0.01", 100, "1"},
			{"0.01", 199, "1"},
			{"0.01", 99, "0"},
			{"100", 1, "100"},
			{"0.1", 100, "10"},
			{"1.5", 3, "4"},
		}
		for _, f := range fixtures {
			t.Run(f.decimal, func(t *testing.T) {
				d := fixedpoint.MustParseDecimal(f.decimal)
				got, err := d.MulFloor(fixedpoint.NewAmount(f.amount))
				require.NoError(t, err)
				require.Equal(t, f.expected, got.String())
			})
		}
	})

	t.Run("overflow", func(t *testing.T) {
		d := fixedpoint.MustParseDecimal("2")
		_, err := d.MulFloor(fixedpoint.MustParseAmount(maxUint256))
		require.ErrorIs(t, err, fixedpoint.ErrOverflow)
	})
}

func TestDecimalFromBps(t *testing.T) {
	require.Equal(t, "0.1", fixedpoint.DecimalFromBps(1000).String())
	require.Equal(t, "1", fixedpoint.DecimalFromBps(10000).String())
	require.Equal(t, "0", fixedpoint.DecimalFromBps(0).String())
	require.Equal(t, "0.0001", fixedpoint.DecimalFromBps(1).String())
}

func TestDecimalFromRatio(t *testing.T) {
	d, err := fixedpoint.DecimalFromRatio(1, 4)
	require.NoError(t, err)
	require.Equal(t, "0.25", d.String())

	_, err = fixedpoint.DecimalFromRatio(1, 0)
	require.ErrorIs(t, err, fixedpoint.ErrDivideByZero)
}

func TestAmount(t *testing.T) {
	t.Run("add", func(t *testing.T) {
		sum, err := fixedpoint.NewAmount(10).Add(fixedpoint.NewAmount(5))
		require.NoError(t, err)
		require.Equal(t, "15", sum.String())

		_, err = fixedpoint.MustParseAmount(maxUint256).Add(fixedpoint.NewAmount(1))
		require.ErrorIs(t, err, fixedpoint.ErrOverflow)
	})

	t.Run("sub", func(t *testing.T) {
		diff, err := fixedpoint.NewAmount(10).Sub(fixedpoint.NewAmount(5))
		require.NoError(t, err)
		require.Equal(t, "5", diff.String())

		_, err = fixedpoint.NewAmount(5).Sub(fixedpoint.NewAmount(10))
		require.ErrorIs(t, err, fixedpoint.ErrUnderflow)
	})

	t.Run("parse", func(t *testing.T) {
		a, err := fixedpoint.ParseAmount("1000000000000000000000")
		require.NoError(t, err)
		require.Equal(t, 0, a.Cmp(fixedpoint.AmountFromUint256(uint256.MustFromDecimal("1000000000000000000000"))))

		_, err = fixedpoint.ParseAmount("-1")
		require.Error(t, err)
		_, err = fixedpoint.ParseAmount("1.5")
		require.Error(t, err)
	})

	t.Run("json", func(t *testing.T) {
		buf, err := json.Marshal(fixedpoint.NewAmount(42))
		require.NoError(t, err)
		require.Equal(t, `"42"`, string(buf))

		var a fixedpoint.Amount
		require.NoError(t, json.Unmarshal([]byte(`"42"`), &a))
		require.True(t, a.Equal(fixedpoint.NewAmount(42)))
		require.Error(t, json.Unmarshal([]byte(`42`), &a))
	})
}
