package util

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ToDecimal renders a fixed point integer with the given number of decimals.
func ToDecimal(b *uint256.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(b.ToBig(), -decimals)
}

// ToFloat64 is lossy and only meant for metrics.
func ToFloat64(b *uint256.Int, decimals int32) float64 {
	f, _ := ToDecimal(b, decimals).Float64()
	return f
}

// ParseAmount reads a human readable amount ("1.5") into a fixed point
// integer with the given number of decimals. Digits past the precision
// are truncated.
func ParseAmount(s string, decimals int32) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, errors.Wrapf(err, "Util: PARSE_AMOUNT %q", s)
	}
	if d.IsNegative() {
		return nil, errors.Errorf("Util: NEGATIVE_AMOUNT %q", s)
	}
	bi := d.Shift(decimals).Truncate(0).BigInt()
	result, overflow := uint256.FromBig(bi)
	if overflow {
		return nil, errors.Errorf("Util: AMOUNT_OVERFLOW %q", s)
	}
	return result, nil
}
