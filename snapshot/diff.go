package snapshot

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PositionKey identifies a position inside a diff's deletion list.
type PositionKey struct {
	Owner     common.Address `json:"owner"`
	TickLower int64          `json:"tickLower"`
	TickUpper int64          `json:"tickUpper"`
}

// TickDiff lists tick records that appeared, changed, or vanished between two
// snapshots of the same pool.
type TickDiff struct {
	Additions []Tick  `json:"additions,omitempty"`
	Updates   []Tick  `json:"updates,omitempty"`
	Deletions []int64 `json:"deletions,omitempty"`
}

// PositionDiff lists position records that appeared, changed, or vanished.
type PositionDiff struct {
	Additions []Position    `json:"additions,omitempty"`
	Updates   []Position    `json:"updates,omitempty"`
	Deletions []PositionKey `json:"deletions,omitempty"`
}

// StateDiff is the change set between two snapshots of one pool. Fields that
// did not change stay nil or empty, so an empty diff marshals to almost
// nothing.
type StateDiff struct {
	Slot0     *Slot0       `json:"slot0,omitempty"`
	Liquidity *big.Int     `json:"liquidity,omitempty"`
	Ticks     TickDiff     `json:"ticks"`
	Positions PositionDiff `json:"positions"`
}

// IsEmpty returns true if the diff contains no changes.
func (d *StateDiff) IsEmpty() bool {
	return d.Slot0 == nil && d.Liquidity == nil &&
		len(d.Ticks.Additions) == 0 && len(d.Ticks.Updates) == 0 && len(d.Ticks.Deletions) == 0 &&
		len(d.Positions.Additions) == 0 && len(d.Positions.Updates) == 0 && len(d.Positions.Deletions) == 0
}

func samePool(a, b *State) bool {
	return a.Token0 == b.Token0 && a.Token1 == b.Token1 &&
		a.Fee == b.Fee && a.TickSpacing == b.TickSpacing
}

// Records hold big.Int pointers, so carrying them over by assignment would
// alias the input snapshots. Diff and Patch copy instead.

func copyBig(x *big.Int) *big.Int {
	return new(big.Int).Set(x)
}

func copySlot0(s Slot0) Slot0 {
	s.SqrtPriceX96 = copyBig(s.SqrtPriceX96)
	return s
}

func copyTick(t Tick) Tick {
	t.LiquidityGross = copyBig(t.LiquidityGross)
	t.LiquidityNet = copyBig(t.LiquidityNet)
	return t
}

func copyPosition(p Position) Position {
	p.Liquidity = copyBig(p.Liquidity)
	p.TokensOwed0 = copyBig(p.TokensOwed0)
	p.TokensOwed1 = copyBig(p.TokensOwed1)
	return p
}

func tickChanged(old, new Tick) bool {
	if old.Initialized != new.Initialized {
		return true
	}
	if old.LiquidityGross.Cmp(new.LiquidityGross) != 0 {
		return true
	}
	return old.LiquidityNet.Cmp(new.LiquidityNet) != 0
}

func positionChanged(old, new Position) bool {
	if old.Liquidity.Cmp(new.Liquidity) != 0 {
		return true
	}
	if old.TokensOwed0.Cmp(new.TokensOwed0) != 0 {
		return true
	}
	return old.TokensOwed1.Cmp(new.TokensOwed1) != 0
}

// Diff computes the change set that turns the old snapshot into the new one.
// Both must come from the same pool configuration. The returned diff shares
// no big.Int pointers with either input.
func Diff(old, new *State) (*StateDiff, error) {
	if !samePool(old, new) {
		return nil, fmt.Errorf("diff: snapshots come from different pools")
	}

	d := &StateDiff{}

	if old.Slot0.Tick != new.Slot0.Tick ||
		old.Slot0.Unlocked != new.Slot0.Unlocked ||
		old.Slot0.SqrtPriceX96.Cmp(new.Slot0.SqrtPriceX96) != 0 {
		slot0 := copySlot0(new.Slot0)
		d.Slot0 = &slot0
	}
	if old.Liquidity.Cmp(new.Liquidity) != 0 {
		d.Liquidity = copyBig(new.Liquidity)
	}

	oldTicks := make(map[int64]Tick, len(old.Ticks))
	for _, t := range old.Ticks {
		oldTicks[t.Index] = t
	}
	newTicks := make(map[int64]Tick, len(new.Ticks))
	for _, t := range new.Ticks {
		newTicks[t.Index] = t
	}

	for idx, nt := range newTicks {
		ot, exists := oldTicks[idx]
		if !exists {
			d.Ticks.Additions = append(d.Ticks.Additions, copyTick(nt))
		} else if tickChanged(ot, nt) {
			d.Ticks.Updates = append(d.Ticks.Updates, copyTick(nt))
		}
	}
	for idx := range oldTicks {
		if _, exists := newTicks[idx]; !exists {
			d.Ticks.Deletions = append(d.Ticks.Deletions, idx)
		}
	}

	oldPositions := make(map[PositionKey]Position, len(old.Positions))
	for _, p := range old.Positions {
		oldPositions[PositionKey{p.Owner, p.TickLower, p.TickUpper}] = p
	}
	newPositions := make(map[PositionKey]Position, len(new.Positions))
	for _, p := range new.Positions {
		newPositions[PositionKey{p.Owner, p.TickLower, p.TickUpper}] = p
	}

	for key, np := range newPositions {
		op, exists := oldPositions[key]
		if !exists {
			d.Positions.Additions = append(d.Positions.Additions, copyPosition(np))
		} else if positionChanged(op, np) {
			d.Positions.Updates = append(d.Positions.Updates, copyPosition(np))
		}
	}
	for key := range oldPositions {
		if _, exists := newPositions[key]; !exists {
			d.Positions.Deletions = append(d.Positions.Deletions, key)
		}
	}

	return d, nil
}

// Patch produces the snapshot that results from applying the diff to the old
// one. The old snapshot is not mutated; unchanged records are carried over,
// and the result shares no big.Int pointers with the old snapshot or the diff.
func Patch(old *State, d *StateDiff) (*State, error) {
	next := &State{
		Token0:              old.Token0,
		Token1:              old.Token1,
		Fee:                 old.Fee,
		TickSpacing:         old.TickSpacing,
		MaxLiquidityPerTick: copyBig(old.MaxLiquidityPerTick),
		Slot0:               copySlot0(old.Slot0),
		Liquidity:           copyBig(old.Liquidity),
	}
	if d.Slot0 != nil {
		next.Slot0 = copySlot0(*d.Slot0)
	}
	if d.Liquidity != nil {
		next.Liquidity = copyBig(d.Liquidity)
	}

	ticks := make(map[int64]Tick, len(old.Ticks))
	for _, t := range old.Ticks {
		ticks[t.Index] = copyTick(t)
	}
	for _, idx := range d.Ticks.Deletions {
		if _, exists := ticks[idx]; !exists {
			return nil, fmt.Errorf("patch: deletion of unknown tick %d", idx)
		}
		delete(ticks, idx)
	}
	for _, t := range d.Ticks.Updates {
		if _, exists := ticks[t.Index]; !exists {
			return nil, fmt.Errorf("patch: update of unknown tick %d", t.Index)
		}
		ticks[t.Index] = copyTick(t)
	}
	for _, t := range d.Ticks.Additions {
		if _, exists := ticks[t.Index]; exists {
			return nil, fmt.Errorf("patch: addition of existing tick %d", t.Index)
		}
		ticks[t.Index] = copyTick(t)
	}
	for _, t := range ticks {
		next.Ticks = append(next.Ticks, t)
	}

	positions := make(map[PositionKey]Position, len(old.Positions))
	for _, p := range old.Positions {
		positions[PositionKey{p.Owner, p.TickLower, p.TickUpper}] = copyPosition(p)
	}
	for _, key := range d.Positions.Deletions {
		if _, exists := positions[key]; !exists {
			return nil, fmt.Errorf("patch: deletion of unknown position %s [%d, %d)", key.Owner, key.TickLower, key.TickUpper)
		}
		delete(positions, key)
	}
	for _, p := range d.Positions.Updates {
		key := PositionKey{p.Owner, p.TickLower, p.TickUpper}
		if _, exists := positions[key]; !exists {
			return nil, fmt.Errorf("patch: update of unknown position %s [%d, %d)", key.Owner, key.TickLower, key.TickUpper)
		}
		positions[key] = copyPosition(p)
	}
	for _, p := range d.Positions.Additions {
		key := PositionKey{p.Owner, p.TickLower, p.TickUpper}
		if _, exists := positions[key]; exists {
			return nil, fmt.Errorf("patch: addition of existing position %s [%d, %d)", key.Owner, key.TickLower, key.TickUpper)
		}
		positions[key] = copyPosition(p)
	}
	for _, p := range positions {
		next.Positions = append(next.Positions, p)
	}

	next.Normalize()
	return next, nil
}
