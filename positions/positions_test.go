package positions

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var owner = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func TestGetOrCreate(t *testing.T) {
	s := NewStore()

	pos := s.GetOrCreate(owner, -60, 60)
	require.NotNil(t, pos)
	assert.Zero(t, pos.Liquidity.Sign())
	assert.Equal(t, 1, s.Count())

	// Same key returns the same live record.
	again := s.GetOrCreate(owner, -60, 60)
	assert.Same(t, pos, again)

	// A different range is a different position.
	other := s.GetOrCreate(owner, -120, 60)
	assert.NotSame(t, pos, other)
	assert.Equal(t, 2, s.Count())
}

func TestApplyDelta(t *testing.T) {
	s := NewStore()
	pos := s.GetOrCreate(owner, -60, 60)

	require.NoError(t, pos.ApplyDelta(big.NewInt(1000), new(big.Int), new(big.Int)))
	assert.Zero(t, pos.Liquidity.Cmp(big.NewInt(1000)))

	require.NoError(t, pos.ApplyDelta(big.NewInt(-400), new(big.Int), new(big.Int)))
	assert.Zero(t, pos.Liquidity.Cmp(big.NewInt(600)))

	err := pos.ApplyDelta(big.NewInt(-601), new(big.Int), new(big.Int))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNegativeLiquidity)
	// Failed delta leaves the record untouched.
	assert.Zero(t, pos.Liquidity.Cmp(big.NewInt(600)))
}

func TestGetReturnsCopies(t *testing.T) {
	s := NewStore()
	pos := s.GetOrCreate(owner, -60, 60)
	require.NoError(t, pos.ApplyDelta(big.NewInt(10), new(big.Int), new(big.Int)))

	snap, ok := s.Get(owner, -60, 60)
	require.True(t, ok)
	snap.Liquidity.SetInt64(42)

	live, _ := s.Find(owner, -60, 60)
	assert.Zero(t, live.Liquidity.Cmp(big.NewInt(10)))
}

func TestPutAndDelete(t *testing.T) {
	s := NewStore()
	pos := s.GetOrCreate(owner, -60, 60)
	require.NoError(t, pos.ApplyDelta(big.NewInt(10), new(big.Int), new(big.Int)))
	saved, _ := s.Get(owner, -60, 60)

	require.NoError(t, pos.ApplyDelta(big.NewInt(5), new(big.Int), new(big.Int)))
	s.Put(owner, -60, 60, saved)

	restored, _ := s.Get(owner, -60, 60)
	assert.Zero(t, restored.Liquidity.Cmp(big.NewInt(10)))

	s.Delete(owner, -60, 60)
	_, ok := s.Find(owner, -60, 60)
	assert.False(t, ok)
	assert.Zero(t, s.Count())
}
