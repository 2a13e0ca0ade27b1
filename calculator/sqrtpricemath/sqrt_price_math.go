// Package sqrtpricemath computes token amount deltas for a liquidity amount
// held across a sqrt-price interval. amount0 is the token0 owed between two
// prices, amount1 the token1 owed; the signed variants carry the direction of
// a liquidity change (positive toward the pool, negative toward the caller).
package sqrtpricemath

import (
	"errors"
	"math/big"
	"sync"
)

var (
	// Q96 is the UQ64.96 fixed-point representation of 1.
	Q96 = new(big.Int).Lsh(big.NewInt(1), 96)
	// Resolution is the number of fractional bits in the Q96 format.
	Resolution = uint(96)

	ErrSqrtPriceZero = errors.New("sqrt price must be greater than zero")

	one = big.NewInt(1)
)

// amountMath holds reusable intermediates for the delta computations.
// Instances are managed by a sync.Pool for safe concurrent use.
type amountMath struct {
	product    *big.Int
	numerator1 *big.Int
	numerator2 *big.Int
	term       *big.Int
	rem        *big.Int
	absL       *big.Int
}

var pool = sync.Pool{
	New: func() any {
		return &amountMath{
			product:    new(big.Int),
			numerator1: new(big.Int),
			numerator2: new(big.Int),
			term:       new(big.Int),
			rem:        new(big.Int),
			absL:       new(big.Int),
		}
	},
}

// mulDiv writes (a * b) / c into dest.
func (m *amountMath) mulDiv(dest, a, b, c *big.Int) {
	m.product.Mul(a, b)
	dest.Div(m.product, c)
}

// mulDivRoundingUp writes ceil((a * b) / c) into dest.
func (m *amountMath) mulDivRoundingUp(dest, a, b, c *big.Int) {
	m.product.Mul(a, b)
	dest.Div(m.product, c)
	if m.rem.Rem(m.product, c).Sign() > 0 {
		dest.Add(dest, one)
	}
}

// divRoundingUp writes ceil(a / b) into dest.
func (m *amountMath) divRoundingUp(dest, a, b *big.Int) {
	dest.Div(a, b)
	if m.rem.Rem(a, b).Sign() > 0 {
		dest.Add(dest, one)
	}
}

// GetAmount0Delta writes the token0 amount covering liquidity between the two
// sqrt prices into dest. roundUp selects the rounding direction.
func GetAmount0Delta(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity *big.Int, roundUp bool) error {
	m := pool.Get().(*amountMath)
	defer pool.Put(m)
	return m.getAmount0Delta(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity, roundUp)
}

// GetAmount1Delta writes the token1 amount covering liquidity between the two
// sqrt prices into dest. roundUp selects the rounding direction.
func GetAmount1Delta(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity *big.Int, roundUp bool) {
	m := pool.Get().(*amountMath)
	defer pool.Put(m)
	m.getAmount1Delta(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity, roundUp)
}

// GetAmount0DeltaSigned writes a signed token0 delta into dest. A positive
// liquidity delta rounds up (owed to the pool); a negative one rounds down
// and the result carries the negative sign (owed to the caller).
func GetAmount0DeltaSigned(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity *big.Int) error {
	m := pool.Get().(*amountMath)
	defer pool.Put(m)
	if liquidity.Sign() < 0 {
		m.absL.Neg(liquidity)
		if err := m.getAmount0Delta(dest, sqrtRatioAX96, sqrtRatioBX96, m.absL, false); err != nil {
			return err
		}
		dest.Neg(dest)
		return nil
	}
	return m.getAmount0Delta(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity, true)
}

// GetAmount1DeltaSigned writes a signed token1 delta into dest, with the same
// sign and rounding conventions as GetAmount0DeltaSigned.
func GetAmount1DeltaSigned(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity *big.Int) {
	m := pool.Get().(*amountMath)
	defer pool.Put(m)
	if liquidity.Sign() < 0 {
		m.absL.Neg(liquidity)
		m.getAmount1Delta(dest, sqrtRatioAX96, sqrtRatioBX96, m.absL, false)
		dest.Neg(dest)
		return
	}
	m.getAmount1Delta(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity, true)
}

// amount0 = liquidity * 2^96 * (sqrtB - sqrtA) / sqrtB / sqrtA
func (m *amountMath) getAmount0Delta(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity *big.Int, roundUp bool) error {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	if sqrtRatioAX96.Sign() <= 0 {
		return ErrSqrtPriceZero
	}

	m.numerator1.Lsh(liquidity, Resolution)
	m.numerator2.Sub(sqrtRatioBX96, sqrtRatioAX96)

	if roundUp {
		m.mulDivRoundingUp(m.term, m.numerator1, m.numerator2, sqrtRatioBX96)
		m.divRoundingUp(dest, m.term, sqrtRatioAX96)
	} else {
		m.mulDiv(m.term, m.numerator1, m.numerator2, sqrtRatioBX96)
		dest.Div(m.term, sqrtRatioAX96)
	}
	return nil
}

// amount1 = liquidity * (sqrtB - sqrtA) / 2^96
func (m *amountMath) getAmount1Delta(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity *big.Int, roundUp bool) {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}

	m.numerator1.Sub(sqrtRatioBX96, sqrtRatioAX96)
	if roundUp {
		m.mulDivRoundingUp(dest, liquidity, m.numerator1, Q96)
	} else {
		m.mulDiv(dest, liquidity, m.numerator1, Q96)
	}
}
