// Package ticks tracks per-tick liquidity for a concentrated-liquidity pool.
// A tick record exists only while some position references the tick as a
// range boundary; records are created lazily on the first liquidity change
// and erased once their gross liquidity returns to zero.
package ticks

import (
	"errors"
	"math/big"

	"github.com/poolstate/clpool-go/calculator/liquiditymath"
	"github.com/poolstate/clpool-go/calculator/tickmath"
)

var (
	ErrLiquidityCeiling     = errors.New("liquidity exceeds per-tick ceiling")
	ErrLiquidityNetOverflow = errors.New("net liquidity out of int128 range")

	maxInt128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minInt128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// Info is the per-tick liquidity record.
// Initialized mirrors LiquidityGross != 0; it is stored rather than derived so
// readers of a copied record need no extra comparison.
type Info struct {
	LiquidityGross *big.Int `json:"liquidityGross"`
	LiquidityNet   *big.Int `json:"liquidityNet"`
	// Reserved for fee accrual; never populated by this package.
	FeeGrowthOutside0X128 *big.Int `json:"feeGrowthOutside0X128"`
	FeeGrowthOutside1X128 *big.Int `json:"feeGrowthOutside1X128"`
	Initialized           bool     `json:"initialized"`
}

func newInfo() *Info {
	return &Info{
		LiquidityGross:        new(big.Int),
		LiquidityNet:          new(big.Int),
		FeeGrowthOutside0X128: new(big.Int),
		FeeGrowthOutside1X128: new(big.Int),
	}
}

// copyInfo returns a deep copy so callers can never alias stored big.Ints.
func copyInfo(in *Info) Info {
	return Info{
		LiquidityGross:        new(big.Int).Set(in.LiquidityGross),
		LiquidityNet:          new(big.Int).Set(in.LiquidityNet),
		FeeGrowthOutside0X128: new(big.Int).Set(in.FeeGrowthOutside0X128),
		FeeGrowthOutside1X128: new(big.Int).Set(in.FeeGrowthOutside1X128),
		Initialized:           in.Initialized,
	}
}

// Store is the tick-indexed liquidity ledger. It is not safe for concurrent
// mutation; the owning pool serializes writes behind its guard.
type Store struct {
	m      map[int64]*Info
	bitmap *Bitmap
}

func NewStore() *Store {
	return &Store{m: make(map[int64]*Info), bitmap: NewBitmap()}
}

// MaxLiquidityPerTick derives the pool-wide per-tick gross liquidity ceiling
// for a tick spacing. The bounds are aligned to the spacing grid with floor
// division, so even with every valid tick saturated the uint128 liquidity
// representation cannot overflow.
func MaxLiquidityPerTick(tickSpacing int64) *big.Int {
	minTick := floorDiv(tickmath.MinTick, tickSpacing) * tickSpacing
	maxTick := floorDiv(tickmath.MaxTick, tickSpacing) * tickSpacing
	numTicks := (maxTick-minTick)/tickSpacing + 1
	return new(big.Int).Div(liquiditymath.MaxLiquidity(), big.NewInt(numTicks))
}

// floorDiv rounds the quotient toward negative infinity.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Get returns a copy of the record at tick, and whether one is stored.
// Absent ticks read as the zero record.
func (s *Store) Get(tick int64) (Info, bool) {
	if rec, ok := s.m[tick]; ok {
		return copyInfo(rec), true
	}
	return copyInfo(newInfo()), false
}

// Update applies a signed liquidity delta to a tick that serves as one
// boundary of the range being modified. upper selects which boundary: the
// delta is added to the net liquidity at the lower boundary and subtracted at
// the upper one, so crossing the range upward first gains and then sheds the
// position's liquidity. The returned flag reports whether the tick flipped
// between zero and nonzero gross liquidity.
//
// currentTick is accepted for the future fee-growth-outside seeding and is
// unused while those fields stay reserved.
//
// On error nothing is committed.
func (s *Store) Update(tick, currentTick int64, liquidityDelta *big.Int, upper bool, maxLiquidity *big.Int) (bool, error) {
	rec, exists := s.m[tick]
	if !exists {
		rec = newInfo()
	}

	grossAfter := new(big.Int)
	if err := liquiditymath.AddDelta(grossAfter, rec.LiquidityGross, liquidityDelta); err != nil {
		return false, err
	}
	if grossAfter.Cmp(maxLiquidity) > 0 {
		return false, ErrLiquidityCeiling
	}

	netAfter := new(big.Int)
	if upper {
		netAfter.Sub(rec.LiquidityNet, liquidityDelta)
	} else {
		netAfter.Add(rec.LiquidityNet, liquidityDelta)
	}
	if netAfter.Cmp(maxInt128) > 0 || netAfter.Cmp(minInt128) < 0 {
		return false, ErrLiquidityNetOverflow
	}

	flipped := (grossAfter.Sign() == 0) != (rec.LiquidityGross.Sign() == 0)

	if rec.LiquidityGross.Sign() == 0 {
		rec.Initialized = true
	}
	rec.LiquidityGross = grossAfter
	rec.LiquidityNet = netAfter
	if !exists {
		s.m[tick] = rec
	}
	if flipped {
		if grossAfter.Sign() != 0 {
			s.bitmap.Set(tick)
		} else {
			s.bitmap.Unset(tick)
		}
	}
	return flipped, nil
}

// Clear erases the record at tick. The caller invokes this only after an
// Update drove the gross liquidity to zero and reported a flip.
func (s *Store) Clear(tick int64) {
	delete(s.m, tick)
	s.bitmap.Unset(tick)
}

// Put installs a record verbatim, replacing whatever is stored. Used by the
// pool's journal to restore a snapshot after a failed operation.
func (s *Store) Put(tick int64, rec Info) {
	stored := copyInfo(&rec)
	s.m[tick] = &stored
	if stored.LiquidityGross.Sign() != 0 {
		s.bitmap.Set(tick)
	} else {
		s.bitmap.Unset(tick)
	}
}

// Count reports how many ticks currently hold a record.
func (s *Store) Count() int {
	return len(s.m)
}

// Indexes returns the stored tick indexes in unspecified order.
func (s *Store) Indexes() []int64 {
	out := make([]int64, 0, len(s.m))
	for idx := range s.m {
		out = append(out, idx)
	}
	return out
}

// NextInitialized finds the nearest tick holding liquidity: the largest at or
// below the starting tick when lte, the smallest strictly above it otherwise.
func (s *Store) NextInitialized(tick int64, lte bool) (int64, bool) {
	return s.bitmap.NextInitialized(tick, lte)
}
