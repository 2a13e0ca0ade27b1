// Package positions tracks per-owner liquidity over price ranges. A position
// is keyed by its owner and the two boundary ticks of its range; it is created
// with zero liquidity on first access and holds the owner's withdrawable token
// credits accrued by liquidity removals.
package positions

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var ErrNegativeLiquidity = errors.New("position liquidity cannot go negative")

// Key identifies one position.
type Key struct {
	Owner     common.Address `json:"owner"`
	TickLower int64          `json:"tickLower"`
	TickUpper int64          `json:"tickUpper"`
}

// Info is the stored position record.
type Info struct {
	Liquidity *big.Int `json:"liquidity"`
	// Fee checkpoints, carried for the accrual bookkeeping; inert while fee
	// growth stays out of scope.
	FeeGrowthInside0LastX128 *big.Int `json:"feeGrowthInside0LastX128"`
	FeeGrowthInside1LastX128 *big.Int `json:"feeGrowthInside1LastX128"`
	TokensOwed0              *big.Int `json:"tokensOwed0"`
	TokensOwed1              *big.Int `json:"tokensOwed1"`
}

func newInfo() *Info {
	return &Info{
		Liquidity:                new(big.Int),
		FeeGrowthInside0LastX128: new(big.Int),
		FeeGrowthInside1LastX128: new(big.Int),
		TokensOwed0:              new(big.Int),
		TokensOwed1:              new(big.Int),
	}
}

func copyInfo(in *Info) Info {
	return Info{
		Liquidity:                new(big.Int).Set(in.Liquidity),
		FeeGrowthInside0LastX128: new(big.Int).Set(in.FeeGrowthInside0LastX128),
		FeeGrowthInside1LastX128: new(big.Int).Set(in.FeeGrowthInside1LastX128),
		TokensOwed0:              new(big.Int).Set(in.TokensOwed0),
		TokensOwed1:              new(big.Int).Set(in.TokensOwed1),
	}
}

// ApplyDelta adjusts the position's liquidity by a signed delta and checkpoints
// the fee growth inside the range. Fails without mutating if the liquidity
// would go negative.
func (i *Info) ApplyDelta(liquidityDelta, feeGrowthInside0X128, feeGrowthInside1X128 *big.Int) error {
	next := new(big.Int).Add(i.Liquidity, liquidityDelta)
	if next.Sign() < 0 {
		return ErrNegativeLiquidity
	}
	i.Liquidity = next
	i.FeeGrowthInside0LastX128.Set(feeGrowthInside0X128)
	i.FeeGrowthInside1LastX128.Set(feeGrowthInside1X128)
	return nil
}

// Store is the position ledger. Like the tick store, it relies on the owning
// pool to serialize mutation.
type Store struct {
	m map[Key]*Info
}

func NewStore() *Store {
	return &Store{m: make(map[Key]*Info)}
}

// GetOrCreate returns the live record for the position, creating a
// zero-liquidity one on first access.
func (s *Store) GetOrCreate(owner common.Address, tickLower, tickUpper int64) *Info {
	k := Key{Owner: owner, TickLower: tickLower, TickUpper: tickUpper}
	if rec, ok := s.m[k]; ok {
		return rec
	}
	rec := newInfo()
	s.m[k] = rec
	return rec
}

// Find returns the live record for the position without creating one.
func (s *Store) Find(owner common.Address, tickLower, tickUpper int64) (*Info, bool) {
	rec, ok := s.m[Key{Owner: owner, TickLower: tickLower, TickUpper: tickUpper}]
	return rec, ok
}

// Get returns a copy of the position record, and whether one is stored.
func (s *Store) Get(owner common.Address, tickLower, tickUpper int64) (Info, bool) {
	if rec, ok := s.m[Key{Owner: owner, TickLower: tickLower, TickUpper: tickUpper}]; ok {
		return copyInfo(rec), true
	}
	return copyInfo(newInfo()), false
}

// Put installs a record verbatim, replacing whatever is stored. Used by the
// pool's journal to restore a snapshot after a failed operation.
func (s *Store) Put(owner common.Address, tickLower, tickUpper int64, rec Info) {
	stored := copyInfo(&rec)
	s.m[Key{Owner: owner, TickLower: tickLower, TickUpper: tickUpper}] = &stored
}

// Delete removes the record for the position.
func (s *Store) Delete(owner common.Address, tickLower, tickUpper int64) {
	delete(s.m, Key{Owner: owner, TickLower: tickLower, TickUpper: tickUpper})
}

// Count reports how many positions currently hold a record.
func (s *Store) Count() int {
	return len(s.m)
}

// Keys returns the stored position keys in unspecified order.
func (s *Store) Keys() []Key {
	out := make([]Key, 0, len(s.m))
	for k := range s.m {
		out = append(out, k)
	}
	return out
}
