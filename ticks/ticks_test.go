package ticks

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poolstate/clpool-go/calculator/liquiditymath"
)

func TestMaxLiquidityPerTick(t *testing.T) {
	// Bounds are aligned to the spacing grid with floor division, so the
	// tick counts below are fixed by the global range [-887272, 887272].
	cases := []struct {
		spacing  int64
		numTicks int64
	}{
		{spacing: 1, numTicks: 1774545},
		{spacing: 10, numTicks: 177456},
		{spacing: 60, numTicks: 29576},
		{spacing: 200, numTicks: 8874},
	}
	for _, tc := range cases {
		expected := new(big.Int).Div(liquiditymath.MaxLiquidity(), big.NewInt(tc.numTicks))
		assert.Zero(t, expected.Cmp(MaxLiquidityPerTick(tc.spacing)), "spacing %d", tc.spacing)
	}

	t.Run("known value for spacing 60", func(t *testing.T) {
		expected, ok := new(big.Int).SetString("11505354575363080317263139282924270", 10)
		require.True(t, ok)
		assert.Zero(t, expected.Cmp(MaxLiquidityPerTick(60)))
	})
}

func TestUpdateFlipAndNet(t *testing.T) {
	maxLiquidity := MaxLiquidityPerTick(60)

	t.Run("first liquidity flips the tick on", func(t *testing.T) {
		s := NewStore()
		flipped, err := s.Update(-60, 0, big.NewInt(1000), false, maxLiquidity)
		require.NoError(t, err)
		assert.True(t, flipped)

		rec, ok := s.Get(-60)
		require.True(t, ok)
		assert.True(t, rec.Initialized)
		assert.Zero(t, rec.LiquidityGross.Cmp(big.NewInt(1000)))
		assert.Zero(t, rec.LiquidityNet.Cmp(big.NewInt(1000)))
	})

	t.Run("upper boundary subtracts from net", func(t *testing.T) {
		s := NewStore()
		flipped, err := s.Update(60, 0, big.NewInt(1000), true, maxLiquidity)
		require.NoError(t, err)
		assert.True(t, flipped)

		rec, _ := s.Get(60)
		assert.Zero(t, rec.LiquidityGross.Cmp(big.NewInt(1000)))
		assert.Zero(t, rec.LiquidityNet.Cmp(big.NewInt(-1000)))
	})

	t.Run("second add does not flip", func(t *testing.T) {
		s := NewStore()
		_, err := s.Update(0, 0, big.NewInt(500), false, maxLiquidity)
		require.NoError(t, err)
		flipped, err := s.Update(0, 0, big.NewInt(500), false, maxLiquidity)
		require.NoError(t, err)
		assert.False(t, flipped)
	})

	t.Run("removal back to zero flips off", func(t *testing.T) {
		s := NewStore()
		_, err := s.Update(0, 0, big.NewInt(500), false, maxLiquidity)
		require.NoError(t, err)
		flipped, err := s.Update(0, 0, big.NewInt(-500), false, maxLiquidity)
		require.NoError(t, err)
		assert.True(t, flipped)
	})

	t.Run("same tick as lower and upper boundary nets out", func(t *testing.T) {
		s := NewStore()
		_, err := s.Update(0, 0, big.NewInt(700), false, maxLiquidity)
		require.NoError(t, err)
		_, err = s.Update(0, 0, big.NewInt(700), true, maxLiquidity)
		require.NoError(t, err)

		rec, _ := s.Get(0)
		assert.Zero(t, rec.LiquidityNet.Sign())
		assert.Zero(t, rec.LiquidityGross.Cmp(big.NewInt(1400)))
	})
}

func TestUpdateCeiling(t *testing.T) {
	s := NewStore()
	ceiling := big.NewInt(1000)

	_, err := s.Update(0, 0, big.NewInt(600), false, ceiling)
	require.NoError(t, err)

	// The call that crosses the ceiling fails and commits nothing.
	_, err = s.Update(0, 0, big.NewInt(401), false, ceiling)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLiquidityCeiling)

	rec, _ := s.Get(0)
	assert.Zero(t, rec.LiquidityGross.Cmp(big.NewInt(600)))
	assert.Zero(t, rec.LiquidityNet.Cmp(big.NewInt(600)))

	// Filling exactly to the ceiling is allowed.
	_, err = s.Update(0, 0, big.NewInt(400), false, ceiling)
	require.NoError(t, err)
}

func TestUpdateUnderflow(t *testing.T) {
	s := NewStore()
	_, err := s.Update(0, 0, big.NewInt(-1), false, big.NewInt(1000))
	require.Error(t, err)
	assert.ErrorIs(t, err, liquiditymath.ErrLiquidityUnderflow)

	_, stored := s.Get(0)
	assert.False(t, stored)
}

func TestClear(t *testing.T) {
	s := NewStore()
	_, err := s.Update(120, 0, big.NewInt(9), false, big.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, 1, s.Count())

	s.Clear(120)
	assert.Zero(t, s.Count())

	rec, stored := s.Get(120)
	assert.False(t, stored)
	assert.False(t, rec.Initialized)
	assert.Zero(t, rec.LiquidityGross.Sign())
	assert.Zero(t, rec.LiquidityNet.Sign())
}

func TestGetReturnsCopies(t *testing.T) {
	s := NewStore()
	_, err := s.Update(0, 0, big.NewInt(10), false, big.NewInt(1000))
	require.NoError(t, err)

	rec, _ := s.Get(0)
	rec.LiquidityGross.SetInt64(999999)

	again, _ := s.Get(0)
	assert.Zero(t, again.LiquidityGross.Cmp(big.NewInt(10)))
}

func TestPutRestoresRecords(t *testing.T) {
	s := NewStore()
	_, err := s.Update(0, 0, big.NewInt(10), false, big.NewInt(1000))
	require.NoError(t, err)
	saved, _ := s.Get(0)

	_, err = s.Update(0, 0, big.NewInt(5), false, big.NewInt(1000))
	require.NoError(t, err)

	s.Put(0, saved)
	rec, _ := s.Get(0)
	assert.Zero(t, rec.LiquidityGross.Cmp(big.NewInt(10)))
}
