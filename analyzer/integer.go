package analyzer

import (
	"math/big"

	"github.com/cockroachdb/apd/v3"
)

func integerRange(minValue, maxValue *apd.Decimal) *big.Int {
	r := new(big.Int).Sub(decimalToBig(maxValue), decimalToBig(minValue))
	return r.Add(r, big.NewInt(1))
}

// bitInfoForInteger picks the smallest storage width covering the
// value range.
func bitInfoForInteger(minValue, maxValue *apd.Decimal) int {
	r := integerRange(minValue, maxValue)

	switch {
	case r.Cmp(new(big.Int).Lsh(big.NewInt(1), 32)) > 0:
		return 64
	case r.Cmp(new(big.Int).Lsh(big.NewInt(1), 16)) > 0:
		return 32
	case r.Cmp(new(big.Int).Lsh(big.NewInt(1), 8)) > 0:
		return 16
	default:
		return 8
	}
}

// isRestrictedIntRange reports whether the range is small enough for
// range-shifted n-bit EXI coding (4096 or fewer values).
func isRestrictedIntRange(minValue, maxValue *apd.Decimal) bool {
	return integerRange(minValue, maxValue).Cmp(big.NewInt(4096)) <= 0
}
