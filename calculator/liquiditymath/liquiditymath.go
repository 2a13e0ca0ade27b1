// Package liquiditymath applies signed deltas to unsigned liquidity values
// while enforcing the uint128 range the liquidity representation requires.
package liquiditymath

import (
	"errors"
	"math/big"
)

var (
	// maxUint128 is the largest value liquidity may hold (2^128 - 1).
	maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

	ErrLiquidityOverflow  = errors.New("liquidity overflow")
	ErrLiquidityUnderflow = errors.New("liquidity underflow")
)

// AddDelta writes x + y into dest, where x is unsigned liquidity and y a
// signed delta. Fails if the result leaves the uint128 range.
func AddDelta(dest *big.Int, x *big.Int, y *big.Int) error {
	dest.Add(x, y)

	if dest.Sign() < 0 {
		return ErrLiquidityUnderflow
	}
	if dest.Cmp(maxUint128) > 0 {
		return ErrLiquidityOverflow
	}

	return nil
}

// MaxLiquidity returns a copy of the uint128 ceiling.
func MaxLiquidity() *big.Int {
	return new(big.Int).Set(maxUint128)
}
