// Package money holds the fixed-point representation used for balances and
// operation amounts. Every value carries exactly two fraction digits.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fraction digits kept for monetary values.
const Scale = 2

// ErrInvalidAmount reports a negative, zero, non-finite, over-precise or
// out-of-range monetary amount.
var ErrInvalidAmount = errors.New("invalid amount")

// Max is the largest balance the wallets table can hold (NUMERIC(10,2)).
var Max = decimal.RequireFromString("99999999.99")

// Zero is a zero balance.
var Zero = decimal.Zero

const (
	// maxLiteralLength bounds the text accepted by Parse, which keeps the
	// coefficient of any parsed value small.
	maxLiteralLength = 64
	// maxIntegerDigits is the number of digits left of the point in Max.
	maxIntegerDigits = 8
	// minExponent is the smallest exponent a value within maxLiteralLength
	// digits can carry and still have at most Scale fraction digits.
	minExponent = -(maxLiteralLength + Scale)
)

// Parse reads a decimal literal such as "50", "50.5" or "50.00".
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: empty value", ErrInvalidAmount)
	}
	if len(s) > maxLiteralLength {
		return decimal.Decimal{}, fmt.Errorf("%w: value longer than %d characters", ErrInvalidAmount, maxLiteralLength)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q is not a decimal", ErrInvalidAmount, s)
	}
	if err := checkMagnitude(d); err != nil {
		return decimal.Decimal{}, err
	}
	if err := checkScale(d); err != nil {
		return decimal.Decimal{}, err
	}
	return d, nil
}

// ValidatePositive accepts amounts strictly greater than zero that fit the
// monetary representation.
func ValidatePositive(d decimal.Decimal) error {
	if !d.IsPositive() {
		return fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}
	return validateRange(d)
}

// ValidateNonNegative accepts zero and positive amounts that fit the monetary
// representation.
func ValidateNonNegative(d decimal.Decimal) error {
	if d.IsNegative() {
		return fmt.Errorf("%w: must not be negative", ErrInvalidAmount)
	}
	return validateRange(d)
}

// Format renders d with exactly two fraction digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}

func validateRange(d decimal.Decimal) error {
	if err := checkMagnitude(d); err != nil {
		return err
	}
	if err := checkScale(d); err != nil {
		return err
	}
	if d.GreaterThan(Max) {
		return fmt.Errorf("%w: exceeds %s", ErrInvalidAmount, Format(Max))
	}
	return nil
}

// checkMagnitude rejects values whose exponent or digit count already puts
// them outside the representable range. It only inspects the exponent and the
// coefficient, so it never rescales.
func checkMagnitude(d decimal.Decimal) error {
	exp := d.Exponent()
	if exp > maxIntegerDigits || (d.Sign() != 0 && int64(d.NumDigits())+int64(exp) > maxIntegerDigits) {
		return fmt.Errorf("%w: exceeds %s", ErrInvalidAmount, Format(Max))
	}
	if exp < minExponent {
		return fmt.Errorf("%w: more than %d fraction digits", ErrInvalidAmount, Scale)
	}
	return nil
}

func checkScale(d decimal.Decimal) error {
	if !d.Equal(d.Truncate(Scale)) {
		return fmt.Errorf("%w: more than %d fraction digits", ErrInvalidAmount, Scale)
	}
	return nil
}
