package lmsr_test

import (
	"math/big"

	"github.com/streamvault/streamvault/internal/fxmath"
)

func bigTen() *big.Int { return big.NewInt(10) }

func absDiff(a, b fxmath.Fixed) *big.Int {
	d := new(big.Int).Sub(a.Raw(), b.Raw())
	return d.Abs(d)
}
