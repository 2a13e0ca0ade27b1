// Package pool implements the liquidity-accounting core of a
// concentrated-liquidity pool: one token pair at one fee tier and tick
// spacing, tracking per-tick and per-position liquidity under a per-tick
// ceiling, with a single mutual-exclusion guard over all mutating entry
// points. Every mutating call either commits completely or restores every
// record it touched.
package pool

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/poolstate/clpool-go/calculator/liquiditymath"
	"github.com/poolstate/clpool-go/calculator/sqrtpricemath"
	"github.com/poolstate/clpool-go/calculator/tickmath"
	"github.com/poolstate/clpool-go/positions"
	"github.com/poolstate/clpool-go/snapshot"
	"github.com/poolstate/clpool-go/ticks"
	"github.com/poolstate/clpool-go/transfer"
)

var zero = new(big.Int)

// Config carries everything a pool needs at construction. All fields are
// required; the pool is immutable with respect to them afterwards.
type Config struct {
	Token0      common.Address
	Token1      common.Address
	Fee         uint64
	TickSpacing int64

	Transfer transfer.Puller
	Logger   Logger
	Registry prometheus.Registerer
}

func (c *Config) validate() error {
	if c.Token0 == c.Token1 {
		return fmt.Errorf("config: Token0 and Token1 must differ")
	}
	if c.TickSpacing <= 0 {
		return fmt.Errorf("config: TickSpacing must be positive")
	}
	if c.Transfer == nil {
		return fmt.Errorf("config: Transfer cannot be nil")
	}
	if c.Logger == nil {
		return fmt.Errorf("config: Logger cannot be nil")
	}
	if c.Registry == nil {
		return fmt.Errorf("config: Registry cannot be nil")
	}
	return nil
}

// Pool is one exclusive pool instance. It is the only writer of its tick and
// position stores. Not safe for concurrent use; the guard protects against
// reentrancy, not against parallel goroutines.
type Pool struct {
	token0      common.Address
	token1      common.Address
	fee         uint64
	tickSpacing int64

	maxLiquidityPerTick *big.Int

	// slot0: current price, its tick, and the reentrancy guard. unlocked
	// stays false until Initialize, so no other mutating call can run first.
	sqrtPriceX96 *big.Int
	tick         int64
	unlocked     bool

	// liquidity in range at the current tick
	liquidity *big.Int

	ticks     *ticks.Store
	positions *positions.Store

	transfer transfer.Puller
	log      Logger
	metrics  *Metrics
}

func New(cfg *Config) (*Pool, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Pool{
		token0:              cfg.Token0,
		token1:              cfg.Token1,
		fee:                 cfg.Fee,
		tickSpacing:         cfg.TickSpacing,
		maxLiquidityPerTick: ticks.MaxLiquidityPerTick(cfg.TickSpacing),
		sqrtPriceX96:        new(big.Int),
		liquidity:           new(big.Int),
		ticks:               ticks.NewStore(),
		positions:           positions.NewStore(),
		transfer:            cfg.Transfer,
		log:                 cfg.Logger,
		metrics:             NewMetrics(cfg.Registry),
	}, nil
}

// Initialize sets the pool's starting price exactly once and opens the guard.
// It does not take the guard itself; it is what arms it.
func (p *Pool) Initialize(sqrtPriceX96 *big.Int) error {
	if p.sqrtPriceX96.Sign() != 0 {
		p.metrics.observe("initialize", ErrAlreadyInitialized)
		return ErrAlreadyInitialized
	}
	tick, err := tickmath.GetTickAtSqrtRatio(sqrtPriceX96)
	if err != nil {
		p.metrics.observe("initialize", err)
		return fmt.Errorf("initialize: %w", err)
	}

	p.sqrtPriceX96.Set(sqrtPriceX96)
	p.tick = tick
	p.unlocked = true

	p.metrics.observe("initialize", nil)
	p.log.Info("pool initialized", "sqrtPriceX96", sqrtPriceX96.String(), "tick", tick)
	return nil
}

// lock acquires the guard or fails if a mutating call is already in progress.
func (p *Pool) lock() error {
	if !p.unlocked {
		return ErrLocked
	}
	p.unlocked = false
	return nil
}

func (p *Pool) unlock() {
	p.unlocked = true
}

func (p *Pool) checkTicks(tickLower, tickUpper int64) error {
	if tickLower >= tickUpper {
		return ErrInvalidTickRange
	}
	if tickLower < tickmath.MinTick {
		return ErrTickLowerOutOfBounds
	}
	if tickUpper > tickmath.MaxTick {
		return ErrTickUpperOutOfBounds
	}
	return nil
}

// Mint adds liquidity to the recipient's position over [tickLower, tickUpper)
// and pulls the owed token amounts from the recipient. Returns the amounts
// pulled.
func (p *Pool) Mint(ctx context.Context, recipient common.Address, tickLower, tickUpper int64, amount *big.Int) (*big.Int, *big.Int, error) {
	timer := prometheus.NewTimer(p.metrics.opDuration.WithLabelValues("mint"))
	defer timer.ObserveDuration()

	if amount == nil || amount.Sign() <= 0 {
		p.metrics.observe("mint", ErrZeroAmount)
		return nil, nil, ErrZeroAmount
	}
	if err := ctx.Err(); err != nil {
		p.metrics.observe("mint", err)
		return nil, nil, err
	}
	if err := p.lock(); err != nil {
		p.metrics.observe("mint", err)
		return nil, nil, err
	}
	defer p.unlock()

	j := p.capture(recipient, tickLower, tickUpper)
	_, amount0, amount1, err := p.modifyPosition(recipient, tickLower, tickUpper, amount)
	if err != nil {
		j.restore(p)
		p.metrics.observe("mint", err)
		return nil, nil, err
	}

	if amount0.Sign() > 0 {
		if err := p.transfer.Pull(ctx, p.token0, recipient, amount0); err != nil {
			j.restore(p)
			p.metrics.observe("mint", err)
			return nil, nil, fmt.Errorf("pull token0: %w", err)
		}
	}
	if amount1.Sign() > 0 {
		if err := p.transfer.Pull(ctx, p.token1, recipient, amount1); err != nil {
			// The token0 pull is external and cannot be journaled; pay it back.
			if amount0.Sign() > 0 {
				if payErr := p.transfer.Pay(ctx, p.token0, recipient, amount0); payErr != nil {
					p.log.Error("refund of token0 pull failed", "recipient", recipient, "amount0", amount0.String(), "err", payErr)
				}
			}
			j.restore(p)
			p.metrics.observe("mint", err)
			return nil, nil, fmt.Errorf("pull token1: %w", err)
		}
	}

	p.metrics.observe("mint", nil)
	p.metrics.tickCount.Set(float64(p.ticks.Count()))
	p.log.Debug("minted liquidity",
		"recipient", recipient, "tickLower", tickLower, "tickUpper", tickUpper,
		"amount", amount.String(), "amount0", amount0.String(), "amount1", amount1.String())
	return amount0, amount1, nil
}

// Burn removes liquidity from the owner's position. The token amounts freed
// are not paid out directly; they are credited on the position for a later
// Collect. Returns the credited amounts.
func (p *Pool) Burn(ctx context.Context, owner common.Address, tickLower, tickUpper int64, amount *big.Int) (*big.Int, *big.Int, error) {
	timer := prometheus.NewTimer(p.metrics.opDuration.WithLabelValues("burn"))
	defer timer.ObserveDuration()

	if amount == nil || amount.Sign() <= 0 {
		p.metrics.observe("burn", ErrZeroAmount)
		return nil, nil, ErrZeroAmount
	}
	if err := ctx.Err(); err != nil {
		p.metrics.observe("burn", err)
		return nil, nil, err
	}
	if err := p.lock(); err != nil {
		p.metrics.observe("burn", err)
		return nil, nil, err
	}
	defer p.unlock()

	j := p.capture(owner, tickLower, tickUpper)
	pos, amount0, amount1, err := p.modifyPosition(owner, tickLower, tickUpper, new(big.Int).Neg(amount))
	if err != nil {
		j.restore(p)
		p.metrics.observe("burn", err)
		return nil, nil, err
	}

	// Negative amounts mean the pool owes the caller; record them as credits.
	owed0 := new(big.Int).Neg(amount0)
	owed1 := new(big.Int).Neg(amount1)
	if owed0.Sign() > 0 {
		pos.TokensOwed0.Add(pos.TokensOwed0, owed0)
	}
	if owed1.Sign() > 0 {
		pos.TokensOwed1.Add(pos.TokensOwed1, owed1)
	}

	p.metrics.observe("burn", nil)
	p.metrics.tickCount.Set(float64(p.ticks.Count()))
	p.log.Debug("burned liquidity",
		"owner", owner, "tickLower", tickLower, "tickUpper", tickUpper,
		"amount", amount.String(), "owed0", owed0.String(), "owed1", owed1.String())
	return owed0, owed1, nil
}

// Collect pays out token credits accrued on a position by earlier burns, up
// to the requested caps. A nil cap collects everything owed in that token.
func (p *Pool) Collect(ctx context.Context, owner common.Address, tickLower, tickUpper int64, max0, max1 *big.Int) (*big.Int, *big.Int, error) {
	timer := prometheus.NewTimer(p.metrics.opDuration.WithLabelValues("collect"))
	defer timer.ObserveDuration()

	if err := p.lock(); err != nil {
		p.metrics.observe("collect", err)
		return nil, nil, err
	}
	defer p.unlock()

	pos, ok := p.positions.Find(owner, tickLower, tickUpper)
	if !ok {
		p.metrics.observe("collect", ErrPositionNotFound)
		return nil, nil, ErrPositionNotFound
	}

	j := p.capture(owner, tickLower, tickUpper)
	amount0 := capAmount(pos.TokensOwed0, max0)
	amount1 := capAmount(pos.TokensOwed1, max1)

	if amount0.Sign() > 0 {
		pos.TokensOwed0.Sub(pos.TokensOwed0, amount0)
		if err := p.transfer.Pay(ctx, p.token0, owner, amount0); err != nil {
			j.restore(p)
			p.metrics.observe("collect", err)
			return nil, nil, fmt.Errorf("pay token0: %w", err)
		}
	}
	if amount1.Sign() > 0 {
		pos.TokensOwed1.Sub(pos.TokensOwed1, amount1)
		if err := p.transfer.Pay(ctx, p.token1, owner, amount1); err != nil {
			if amount0.Sign() > 0 {
				if pullErr := p.transfer.Pull(ctx, p.token0, owner, amount0); pullErr != nil {
					p.log.Error("clawback of token0 payout failed", "owner", owner, "amount0", amount0.String(), "err", pullErr)
				}
			}
			j.restore(p)
			p.metrics.observe("collect", err)
			return nil, nil, fmt.Errorf("pay token1: %w", err)
		}
	}

	p.metrics.observe("collect", nil)
	p.log.Debug("collected credits",
		"owner", owner, "tickLower", tickLower, "tickUpper", tickUpper,
		"amount0", amount0.String(), "amount1", amount1.String())
	return amount0, amount1, nil
}

func capAmount(owed, max *big.Int) *big.Int {
	out := new(big.Int).Set(owed)
	if max != nil && max.Sign() >= 0 && max.Cmp(out) < 0 {
		out.Set(max)
	}
	return out
}

// modifyPosition applies a signed liquidity delta to a position and to its
// two boundary ticks, reclaims ticks a removal flipped back to zero, keeps the
// in-range liquidity current, and computes the signed token amounts the delta
// is worth at the current price. The caller holds the guard and is responsible
// for rolling back on error.
func (p *Pool) modifyPosition(owner common.Address, tickLower, tickUpper int64, liquidityDelta *big.Int) (*positions.Info, *big.Int, *big.Int, error) {
	if err := p.checkTicks(tickLower, tickUpper); err != nil {
		return nil, nil, nil, err
	}

	// One snapshot of the current tick drives both boundary updates and the
	// amount computation; nothing external runs in between.
	currentTick := p.tick

	pos := p.positions.GetOrCreate(owner, tickLower, tickUpper)
	if err := pos.ApplyDelta(liquidityDelta, zero, zero); err != nil {
		return nil, nil, nil, err
	}

	flippedLower, err := p.ticks.Update(tickLower, currentTick, liquidityDelta, false, p.maxLiquidityPerTick)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("update lower tick %d: %w", tickLower, err)
	}
	flippedUpper, err := p.ticks.Update(tickUpper, currentTick, liquidityDelta, true, p.maxLiquidityPerTick)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("update upper tick %d: %w", tickUpper, err)
	}

	if liquidityDelta.Sign() < 0 {
		if flippedLower {
			p.ticks.Clear(tickLower)
		}
		if flippedUpper {
			p.ticks.Clear(tickUpper)
		}
	}

	if currentTick >= tickLower && currentTick < tickUpper {
		next := new(big.Int)
		if err := liquiditymath.AddDelta(next, p.liquidity, liquidityDelta); err != nil {
			return nil, nil, nil, err
		}
		p.liquidity.Set(next)
	}

	amount0, amount1, err := p.amountsForLiquidity(tickLower, tickUpper, liquidityDelta, currentTick)
	if err != nil {
		return nil, nil, nil, err
	}
	return pos, amount0, amount1, nil
}

// amountsForLiquidity prices a liquidity delta over a range against the
// current tick: below the range the delta is all token0, above it all token1,
// inside it a mix split at the current sqrt price.
func (p *Pool) amountsForLiquidity(tickLower, tickUpper int64, liquidityDelta *big.Int, currentTick int64) (*big.Int, *big.Int, error) {
	amount0 := new(big.Int)
	amount1 := new(big.Int)

	sqrtLower := new(big.Int)
	if err := tickmath.GetSqrtRatioAtTick(sqrtLower, tickLower); err != nil {
		return nil, nil, err
	}
	sqrtUpper := new(big.Int)
	if err := tickmath.GetSqrtRatioAtTick(sqrtUpper, tickUpper); err != nil {
		return nil, nil, err
	}

	switch {
	case currentTick < tickLower:
		if err := sqrtpricemath.GetAmount0DeltaSigned(amount0, sqrtLower, sqrtUpper, liquidityDelta); err != nil {
			return nil, nil, err
		}
	case currentTick < tickUpper:
		if err := sqrtpricemath.GetAmount0DeltaSigned(amount0, p.sqrtPriceX96, sqrtUpper, liquidityDelta); err != nil {
			return nil, nil, err
		}
		sqrtpricemath.GetAmount1DeltaSigned(amount1, sqrtLower, p.sqrtPriceX96, liquidityDelta)
	default:
		sqrtpricemath.GetAmount1DeltaSigned(amount1, sqrtLower, sqrtUpper, liquidityDelta)
	}
	return amount0, amount1, nil
}

// --- Read-only accessors ---

func (p *Pool) Token0() common.Address { return p.token0 }
func (p *Pool) Token1() common.Address { return p.token1 }
func (p *Pool) Fee() uint64            { return p.fee }
func (p *Pool) TickSpacing() int64     { return p.tickSpacing }

func (p *Pool) MaxLiquidityPerTick() *big.Int {
	return new(big.Int).Set(p.maxLiquidityPerTick)
}

// Slot0 returns the current price, tick and guard state.
func (p *Pool) Slot0() snapshot.Slot0 {
	return snapshot.Slot0{
		SqrtPriceX96: new(big.Int).Set(p.sqrtPriceX96),
		Tick:         p.tick,
		Unlocked:     p.unlocked,
	}
}

// Liquidity returns the liquidity in range at the current tick.
func (p *Pool) Liquidity() *big.Int {
	return new(big.Int).Set(p.liquidity)
}

// Tick returns a copy of the record at a tick index; absent ticks read as the
// zero record.
func (p *Pool) Tick(index int64) (ticks.Info, bool) {
	return p.ticks.Get(index)
}

// NextInitializedTick finds the nearest tick holding liquidity: the largest
// at or below the starting tick when lte, the smallest strictly above it
// otherwise.
func (p *Pool) NextInitializedTick(from int64, lte bool) (int64, bool) {
	return p.ticks.NextInitialized(from, lte)
}

// Position returns a copy of a position record.
func (p *Pool) Position(owner common.Address, tickLower, tickUpper int64) (positions.Info, bool) {
	return p.positions.Get(owner, tickLower, tickUpper)
}

// Snapshot captures the pool's complete state.
func (p *Pool) Snapshot() *snapshot.State {
	st := &snapshot.State{
		Token0:              p.token0,
		Token1:              p.token1,
		Fee:                 p.fee,
		TickSpacing:         p.tickSpacing,
		MaxLiquidityPerTick: new(big.Int).Set(p.maxLiquidityPerTick),
		Slot0:               p.Slot0(),
		Liquidity:           new(big.Int).Set(p.liquidity),
	}
	for _, idx := range p.ticks.Indexes() {
		rec, _ := p.ticks.Get(idx)
		st.Ticks = append(st.Ticks, snapshot.Tick{
			Index:          idx,
			LiquidityGross: rec.LiquidityGross,
			LiquidityNet:   rec.LiquidityNet,
			Initialized:    rec.Initialized,
		})
	}
	for _, k := range p.positions.Keys() {
		rec, _ := p.positions.Get(k.Owner, k.TickLower, k.TickUpper)
		st.Positions = append(st.Positions, snapshot.Position{
			Owner:       k.Owner,
			TickLower:   k.TickLower,
			TickUpper:   k.TickUpper,
			Liquidity:   rec.Liquidity,
			TokensOwed0: rec.TokensOwed0,
			TokensOwed1: rec.TokensOwed1,
		})
	}
	st.Normalize()
	return st
}

// Restore replaces the pool's state with a snapshot taken from a pool with
// the same configuration. On an initialized pool it takes the guard like any
// other mutating call; on an uninitialized pool it arms it, the way
// Initialize does. The guard ends in whatever state the snapshot recorded.
func (p *Pool) Restore(st *snapshot.State) error {
	if st.Token0 != p.token0 || st.Token1 != p.token1 || st.Fee != p.fee || st.TickSpacing != p.tickSpacing {
		p.metrics.observe("restore", ErrSnapshotMismatch)
		return ErrSnapshotMismatch
	}
	if p.sqrtPriceX96.Sign() != 0 {
		if err := p.lock(); err != nil {
			p.metrics.observe("restore", err)
			return err
		}
	}

	p.ticks = ticks.NewStore()
	for _, t := range st.Ticks {
		p.ticks.Put(t.Index, ticks.Info{
			LiquidityGross:        t.LiquidityGross,
			LiquidityNet:          t.LiquidityNet,
			FeeGrowthOutside0X128: new(big.Int),
			FeeGrowthOutside1X128: new(big.Int),
			Initialized:           t.Initialized,
		})
	}
	p.positions = positions.NewStore()
	for _, pos := range st.Positions {
		p.positions.Put(pos.Owner, pos.TickLower, pos.TickUpper, positions.Info{
			Liquidity:                pos.Liquidity,
			FeeGrowthInside0LastX128: new(big.Int),
			FeeGrowthInside1LastX128: new(big.Int),
			TokensOwed0:              pos.TokensOwed0,
			TokensOwed1:              pos.TokensOwed1,
		})
	}

	p.sqrtPriceX96.Set(st.Slot0.SqrtPriceX96)
	p.tick = st.Slot0.Tick
	p.unlocked = st.Slot0.Unlocked
	p.liquidity.Set(st.Liquidity)

	p.metrics.observe("restore", nil)
	p.metrics.tickCount.Set(float64(p.ticks.Count()))
	p.log.Info("pool state restored", "ticks", len(st.Ticks), "positions", len(st.Positions))
	return nil
}
