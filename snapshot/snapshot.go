// Package snapshot defines a serializable view of a pool's full state and
// persistence backends for it. Snapshots serve two purposes: operator tooling
// (save/inspect/restore a pool) and deterministic test fixtures.
package snapshot

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// Slot0 is the price, tick and guard view.
type Slot0 struct {
	SqrtPriceX96 *big.Int `json:"sqrtPriceX96"`
	Tick         int64    `json:"tick"`
	Unlocked     bool     `json:"unlocked"`
}

// Tick is one tick record together with its index.
type Tick struct {
	Index          int64    `json:"index"`
	LiquidityGross *big.Int `json:"liquidityGross"`
	LiquidityNet   *big.Int `json:"liquidityNet"`
	Initialized    bool     `json:"initialized"`
}

// Position is one position record together with its key.
type Position struct {
	Owner       common.Address `json:"owner"`
	TickLower   int64          `json:"tickLower"`
	TickUpper   int64          `json:"tickUpper"`
	Liquidity   *big.Int       `json:"liquidity"`
	TokensOwed0 *big.Int       `json:"tokensOwed0"`
	TokensOwed1 *big.Int       `json:"tokensOwed1"`
}

// State is the complete serializable pool state.
type State struct {
	Token0              common.Address `json:"token0"`
	Token1              common.Address `json:"token1"`
	Fee                 uint64         `json:"fee"`
	TickSpacing         int64          `json:"tickSpacing"`
	MaxLiquidityPerTick *big.Int       `json:"maxLiquidityPerTick"`
	Slot0               Slot0          `json:"slot0"`
	Liquidity           *big.Int       `json:"liquidity"`
	Ticks               []Tick         `json:"ticks"`
	Positions           []Position     `json:"positions"`
}

// Normalize sorts ticks and positions so equal states serialize identically.
func (s *State) Normalize() {
	sort.Slice(s.Ticks, func(i, j int) bool { return s.Ticks[i].Index < s.Ticks[j].Index })
	sort.Slice(s.Positions, func(i, j int) bool {
		a, b := s.Positions[i], s.Positions[j]
		if a.Owner != b.Owner {
			return a.Owner.Cmp(b.Owner) < 0
		}
		if a.TickLower != b.TickLower {
			return a.TickLower < b.TickLower
		}
		return a.TickUpper < b.TickUpper
	})
}
