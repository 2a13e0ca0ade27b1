package snapshot

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	t.Run("identical states produce an empty diff", func(t *testing.T) {
		d, err := Diff(sampleState(), sampleState())
		require.NoError(t, err)
		assert.True(t, d.IsEmpty())
	})

	t.Run("different pools are rejected", func(t *testing.T) {
		other := sampleState()
		other.Fee = 500
		_, err := Diff(sampleState(), other)
		require.Error(t, err)
	})

	t.Run("captures every kind of change", func(t *testing.T) {
		before := sampleState()
		after := sampleState()

		after.Slot0.Tick = 42
		after.Liquidity = big.NewInt(7777)
		// tick 60 updated, tick -60 removed, tick 120 added
		after.Ticks[0].LiquidityGross = big.NewInt(2000)
		after.Ticks = append(after.Ticks[:1], Tick{
			Index: 120, LiquidityGross: big.NewInt(5), LiquidityNet: big.NewInt(-5), Initialized: true,
		})
		// position of a2 removed
		after.Positions = after.Positions[1:]

		d, err := Diff(before, after)
		require.NoError(t, err)
		require.False(t, d.IsEmpty())

		require.NotNil(t, d.Slot0)
		assert.Equal(t, int64(42), d.Slot0.Tick)
		require.NotNil(t, d.Liquidity)
		assert.Zero(t, d.Liquidity.Cmp(big.NewInt(7777)))

		require.Len(t, d.Ticks.Additions, 1)
		assert.Equal(t, int64(120), d.Ticks.Additions[0].Index)
		require.Len(t, d.Ticks.Updates, 1)
		assert.Equal(t, int64(60), d.Ticks.Updates[0].Index)
		assert.ElementsMatch(t, []int64{-60}, d.Ticks.Deletions)

		require.Len(t, d.Positions.Deletions, 1)
		assert.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000000a2"), d.Positions.Deletions[0].Owner)
		assert.Empty(t, d.Positions.Additions)
		assert.Empty(t, d.Positions.Updates)
	})

	t.Run("shares no pointers with its inputs", func(t *testing.T) {
		before := sampleState()
		after := sampleState()
		after.Liquidity = big.NewInt(7777)
		after.Ticks[0].LiquidityGross = big.NewInt(2000)
		after.Positions[0].TokensOwed0 = big.NewInt(9)

		d, err := Diff(before, after)
		require.NoError(t, err)
		require.NotNil(t, d.Liquidity)
		require.Len(t, d.Ticks.Updates, 1)
		require.Len(t, d.Positions.Updates, 1)

		d.Liquidity.SetInt64(-1)
		d.Ticks.Updates[0].LiquidityGross.SetInt64(-1)
		d.Positions.Updates[0].TokensOwed0.SetInt64(-1)

		assert.Zero(t, after.Liquidity.Cmp(big.NewInt(7777)))
		assert.Zero(t, after.Ticks[0].LiquidityGross.Cmp(big.NewInt(2000)))
		assert.Zero(t, after.Positions[0].TokensOwed0.Cmp(big.NewInt(9)))
	})
}

func TestPatch(t *testing.T) {
	t.Run("diff then patch reproduces the target", func(t *testing.T) {
		before := sampleState()
		after := sampleState()
		after.Slot0.Tick = 42
		after.Liquidity = big.NewInt(7777)
		after.Ticks[0].LiquidityNet = big.NewInt(999)
		after.Positions = append(after.Positions, Position{
			Owner:       common.HexToAddress("0x00000000000000000000000000000000000000a3"),
			TickLower:   -120,
			TickUpper:   120,
			Liquidity:   big.NewInt(50),
			TokensOwed0: big.NewInt(0),
			TokensOwed1: big.NewInt(0),
		})
		after.Normalize()

		d, err := Diff(before, after)
		require.NoError(t, err)

		got, err := Patch(before, d)
		require.NoError(t, err)
		assert.Equal(t, after, got)
	})

	t.Run("does not mutate the old state", func(t *testing.T) {
		before := sampleState()
		before.Normalize()
		pristine := sampleState()
		pristine.Normalize()

		after := sampleState()
		after.Ticks = after.Ticks[:1]
		d, err := Diff(before, after)
		require.NoError(t, err)

		_, err = Patch(before, d)
		require.NoError(t, err)
		assert.Equal(t, pristine, before)
	})

	t.Run("result is detached from its inputs", func(t *testing.T) {
		before := sampleState()
		got, err := Patch(before, &StateDiff{})
		require.NoError(t, err)

		before.Liquidity.SetInt64(-1)
		before.Slot0.SqrtPriceX96.SetInt64(-1)
		before.Ticks[0].LiquidityGross.SetInt64(-1)
		before.Positions[1].TokensOwed0.SetInt64(-1)

		want := sampleState()
		want.Normalize()
		assert.Equal(t, want, got)
	})

	t.Run("rejects inconsistent diffs", func(t *testing.T) {
		before := sampleState()

		_, err := Patch(before, &StateDiff{Ticks: TickDiff{Deletions: []int64{777}}})
		require.Error(t, err)

		_, err = Patch(before, &StateDiff{Ticks: TickDiff{Updates: []Tick{{
			Index: 777, LiquidityGross: big.NewInt(1), LiquidityNet: big.NewInt(1),
		}}}})
		require.Error(t, err)

		_, err = Patch(before, &StateDiff{Ticks: TickDiff{Additions: []Tick{{
			Index: 60, LiquidityGross: big.NewInt(1), LiquidityNet: big.NewInt(1),
		}}}})
		require.Error(t, err)
	})
}
