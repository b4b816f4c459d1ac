package money

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "integer", in: "50", want: "50.00"},
		{name: "one digit", in: "0.5", want: "0.50"},
		{name: "two digits", in: "12.34", want: "12.34"},
		{name: "trailing zeros beyond scale", in: "1.2300", want: "1.23"},
		{name: "surrounding space", in: " 7.00 ", want: "7.00"},
		{name: "three digits", in: "1.234", wantErr: true},
		{name: "empty", in: "", wantErr: true},
		{name: "not a number", in: "ten", wantErr: true},
		{name: "nan", in: "NaN", wantErr: true},
		{name: "infinity", in: "Inf", wantErr: true},
		{name: "exponent within range", in: "1.5e2", want: "150.00"},
		{name: "exponent above max", in: "1e9", wantErr: true},
		{name: "zero with large exponent", in: "0e100", wantErr: true},
		{name: "too long", in: "1." + strings.Repeat("0", 70), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, Format(got))
		})
	}
}

func TestValidatePositive(t *testing.T) {
	assert.NoError(t, ValidatePositive(decimal.RequireFromString("0.01")))
	assert.NoError(t, ValidatePositive(Max))

	assert.ErrorIs(t, ValidatePositive(decimal.Zero), ErrInvalidAmount)
	assert.ErrorIs(t, ValidatePositive(decimal.RequireFromString("-1")), ErrInvalidAmount)
	assert.ErrorIs(t, ValidatePositive(decimal.RequireFromString("0.001")), ErrInvalidAmount)
	assert.ErrorIs(t, ValidatePositive(Max.Add(decimal.RequireFromString("0.01"))), ErrInvalidAmount)
}

func TestValidateNonNegative(t *testing.T) {
	assert.NoError(t, ValidateNonNegative(decimal.Zero))
	assert.NoError(t, ValidateNonNegative(decimal.RequireFromString("10.10")))
	assert.ErrorIs(t, ValidateNonNegative(decimal.RequireFromString("-0.01")), ErrInvalidAmount)
}

func TestDecimalArithmeticIsExact(t *testing.T) {
	// 0.1 + 0.2 drifts in binary floating point.
	sum := decimal.RequireFromString("0.10").Add(decimal.RequireFromString("0.20"))
	assert.Equal(t, "0.30", Format(sum))
	assert.True(t, sum.Equal(decimal.RequireFromString("0.3")))
}

func TestHugeExponentsRejectedQuickly(t *testing.T) {
	for _, in := range []string{"1e10000000", "-1e10000000", "1e-10000000", "0e-10000000", "9e2147483647"} {
		t.Run(in, func(t *testing.T) {
			start := time.Now()
			d, err := Parse(in)
			require.ErrorIs(t, err, ErrInvalidAmount)
			assert.Less(t, len(err.Error()), 200)
			assert.True(t, d.Equal(decimal.Zero))
			assert.Less(t, time.Since(start), time.Second)
		})
	}
}

func TestValidateRejectsHugeValuesQuickly(t *testing.T) {
	huge := decimal.New(1, 10000000)
	tiny := decimal.New(1, -10000000)

	start := time.Now()
	err := ValidatePositive(huge)
	require.ErrorIs(t, err, ErrInvalidAmount)
	assert.Less(t, len(err.Error()), 200)
	assert.ErrorIs(t, ValidateNonNegative(tiny), ErrInvalidAmount)
	assert.ErrorIs(t, ValidatePositive(huge.Neg()), ErrInvalidAmount)
	assert.Less(t, time.Since(start), time.Second)
}
