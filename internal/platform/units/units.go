// Package units converts ledger amounts to and from human denominations.
package units

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"kittycore/pkg/domain"
)

type denomination struct {
	suffix   string
	exponent int32
}

// Checked in order; gwei must precede wei.
var denominations = []denomination{
	{"finney", 15},
	{"szabo", 12},
	{"ether", 18},
	{"gwei", 9},
	{"eth", 18},
	{"wei", 0},
}

var maxAmount = fromAmount(domain.Amount(^uint64(0)))

func fromAmount(a domain.Amount) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(a)), 0)
}

// ParseAmount reads a quantity such as "1500", "2finney" or "0.25 ether".
// A bare number is taken to be wei.
func ParseAmount(raw string) (domain.Amount, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0, fmt.Errorf("parse amount: empty value")
	}
	var exp int32
	for _, d := range denominations {
		if strings.HasSuffix(s, d.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, d.suffix))
			exp = d.exponent
			break
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	wei := d.Shift(exp)
	switch {
	case wei.IsNegative():
		return 0, fmt.Errorf("parse amount %q: negative", raw)
	case !wei.Equal(wei.Truncate(0)):
		return 0, fmt.Errorf("parse amount %q: fractional wei", raw)
	case wei.GreaterThan(maxAmount):
		return 0, fmt.Errorf("parse amount %q: overflows 64 bits", raw)
	}
	return domain.Amount(wei.BigInt().Uint64()), nil
}

// Ether renders a in ether without trailing zeros.
func Ether(a domain.Amount) string {
	return fromAmount(a).Shift(-18).String()
}

// Finney renders a in finney without trailing zeros.
func Finney(a domain.Amount) string {
	return fromAmount(a).Shift(-15).String()
}
