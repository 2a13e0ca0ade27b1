package ticks

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitmapSetUnset(t *testing.T) {
	b := NewBitmap()

	for _, tick := range []int64{0, 63, 64, -1, -64, -65, 887272, -887272} {
		assert.False(t, b.IsSet(tick))
		b.Set(tick)
		assert.True(t, b.IsSet(tick))
	}

	b.Unset(63)
	assert.False(t, b.IsSet(63))
	assert.True(t, b.IsSet(0))
	assert.True(t, b.IsSet(64))
	assert.True(t, b.IsSet(-1))
}

func TestBitmapNextInitialized(t *testing.T) {
	b := NewBitmap()
	for _, tick := range []int64{-887220, -120, -60, 60, 180, 887220} {
		b.Set(tick)
	}

	cases := []struct {
		name  string
		from  int64
		lte   bool
		want  int64
		found bool
	}{
		{"lte exact hit", 60, true, 60, true},
		{"lte within word", 59, true, -60, true},
		{"lte across words", -121, true, -887220, true},
		{"lte below everything", -887221, true, 0, false},
		{"gt skips empty words", 60, false, 180, true},
		{"gt is strict", 180, false, 887220, true},
		{"gt across words", -887220, false, -120, true},
		{"gt above everything", 887220, false, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, found := b.NextInitialized(tc.from, tc.lte)
			require.Equal(t, tc.found, found)
			if found {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestStoreNextInitialized(t *testing.T) {
	s := NewStore()
	max := MaxLiquidityPerTick(60)

	_, err := s.Update(-60, 0, big.NewInt(1000), false, max)
	require.NoError(t, err)
	_, err = s.Update(60, 0, big.NewInt(1000), true, max)
	require.NoError(t, err)

	next, found := s.NextInitialized(0, true)
	require.True(t, found)
	assert.Equal(t, int64(-60), next)

	next, found = s.NextInitialized(0, false)
	require.True(t, found)
	assert.Equal(t, int64(60), next)

	t.Run("removal clears the bit", func(t *testing.T) {
		flipped, err := s.Update(60, 0, big.NewInt(-1000), true, max)
		require.NoError(t, err)
		require.True(t, flipped)
		s.Clear(60)

		_, found := s.NextInitialized(0, false)
		assert.False(t, found)
	})
}
