package sqrtpricemath

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRandInt generates a random big.Int up to a given number of bits.
func newRandInt(bits int) *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		panic(err)
	}
	return n
}

func TestGetAmount0Delta(t *testing.T) {
	t.Run("zero liquidity yields zero", func(t *testing.T) {
		dest := new(big.Int)
		err := GetAmount0Delta(dest, big.NewInt(1000), big.NewInt(2000), new(big.Int), true)
		require.NoError(t, err)
		assert.Zero(t, dest.Sign())
	})

	t.Run("equal prices yield zero", func(t *testing.T) {
		dest := new(big.Int)
		err := GetAmount0Delta(dest, Q96, Q96, big.NewInt(1_000_000), true)
		require.NoError(t, err)
		assert.Zero(t, dest.Sign())
	})

	t.Run("rejects zero price", func(t *testing.T) {
		dest := new(big.Int)
		err := GetAmount0Delta(dest, new(big.Int), Q96, big.NewInt(1), true)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSqrtPriceZero)
	})

	t.Run("order of prices does not matter", func(t *testing.T) {
		a := new(big.Int).Mul(Q96, big.NewInt(2))
		b := new(big.Int).Mul(Q96, big.NewInt(3))
		liquidity := big.NewInt(123456789)

		d1, d2 := new(big.Int), new(big.Int)
		require.NoError(t, GetAmount0Delta(d1, a, b, liquidity, true))
		require.NoError(t, GetAmount0Delta(d2, b, a, liquidity, true))
		assert.Zero(t, d1.Cmp(d2))
	})
}

func TestGetAmount1Delta(t *testing.T) {
	t.Run("doubling the price range owes the liquidity", func(t *testing.T) {
		// amount1 = L * (sqrtB - sqrtA) / Q96; with sqrtB - sqrtA == Q96 the
		// amount equals the liquidity itself.
		a := Q96
		b := new(big.Int).Mul(Q96, big.NewInt(2))
		liquidity := big.NewInt(777)

		dest := new(big.Int)
		GetAmount1Delta(dest, a, b, liquidity, false)
		assert.Zero(t, dest.Cmp(big.NewInt(777)))
	})

	t.Run("rounding up never loses a wei", func(t *testing.T) {
		a := new(big.Int).Add(Q96, big.NewInt(1))
		b := new(big.Int).Add(Q96, big.NewInt(2))
		liquidity := big.NewInt(3)

		down, up := new(big.Int), new(big.Int)
		GetAmount1Delta(down, a, b, liquidity, false)
		GetAmount1Delta(up, a, b, liquidity, true)
		assert.True(t, down.Cmp(up) <= 0)
	})
}

func TestRoundingInvariants(t *testing.T) {
	for i := 0; i < 1000; i++ {
		sqrtP := newRandInt(160)
		sqrtQ := newRandInt(160)
		liquidity := newRandInt(128)

		if sqrtP.Sign() == 0 {
			sqrtP.SetInt64(1)
		}
		if sqrtQ.Sign() == 0 {
			sqrtQ.SetInt64(1)
		}

		amount0Down := new(big.Int)
		require.NoError(t, GetAmount0Delta(amount0Down, sqrtP, sqrtQ, liquidity, false))
		amount0Up := new(big.Int)
		require.NoError(t, GetAmount0Delta(amount0Up, sqrtP, sqrtQ, liquidity, true))

		assert.True(t, amount0Down.Cmp(amount0Up) <= 0)
		diff := new(big.Int).Sub(amount0Up, amount0Down)
		assert.True(t, diff.Cmp(big.NewInt(2)) < 0)

		amount1Down := new(big.Int)
		GetAmount1Delta(amount1Down, sqrtP, sqrtQ, liquidity, false)
		amount1Up := new(big.Int)
		GetAmount1Delta(amount1Up, sqrtP, sqrtQ, liquidity, true)

		assert.True(t, amount1Down.Cmp(amount1Up) <= 0)
		diff.Sub(amount1Up, amount1Down)
		assert.True(t, diff.Cmp(big.NewInt(2)) < 0)
	}
}

func TestSignedDeltas(t *testing.T) {
	a := new(big.Int).Mul(Q96, big.NewInt(2))
	b := new(big.Int).Mul(Q96, big.NewInt(3))

	t.Run("positive liquidity rounds against the caller", func(t *testing.T) {
		liquidity := big.NewInt(1_000_003)
		signed := new(big.Int)
		require.NoError(t, GetAmount0DeltaSigned(signed, a, b, liquidity))

		up := new(big.Int)
		require.NoError(t, GetAmount0Delta(up, a, b, liquidity, true))
		assert.Zero(t, signed.Cmp(up))
	})

	t.Run("negative liquidity rounds in the pool's favor", func(t *testing.T) {
		liquidity := big.NewInt(-1_000_003)
		signed := new(big.Int)
		require.NoError(t, GetAmount0DeltaSigned(signed, a, b, liquidity))
		assert.True(t, signed.Sign() < 0)

		down := new(big.Int)
		require.NoError(t, GetAmount0Delta(down, a, b, big.NewInt(1_000_003), false))
		assert.Zero(t, signed.Neg(signed).Cmp(down))
	})

	t.Run("amount1 mirror", func(t *testing.T) {
		pos, neg := new(big.Int), new(big.Int)
		GetAmount1DeltaSigned(pos, a, b, big.NewInt(500))
		GetAmount1DeltaSigned(neg, a, b, big.NewInt(-500))
		assert.True(t, pos.Sign() > 0)
		assert.True(t, neg.Sign() < 0)
		// The magnitudes differ by at most one unit of rounding.
		diff := new(big.Int).Add(pos, neg)
		assert.True(t, diff.CmpAbs(big.NewInt(1)) <= 0)
	})
}
