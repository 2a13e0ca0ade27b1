// Package transfer defines the token-movement collaborator the pool uses to
// settle liquidity operations, plus an in-memory ledger implementation for
// tests and the console.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNonPositiveAmount   = errors.New("amount must be positive")
)

// Puller moves tokens between the pool and its callers. Pull draws a token
// amount from a holder into the pool's custody; Pay releases pool custody to
// a recipient. A rejected call must leave balances untouched.
type Puller interface {
	Pull(ctx context.Context, token, from common.Address, amount *big.Int) error
	Pay(ctx context.Context, token, to common.Address, amount *big.Int) error
}

// Ledger is an in-memory balance book implementing Puller. The pool's custody
// is tracked under the pool address supplied at construction.
type Ledger struct {
	pool     common.Address
	balances map[common.Address]map[common.Address]*big.Int // token -> holder -> balance
}

func NewLedger(pool common.Address) *Ledger {
	return &Ledger{
		pool:     pool,
		balances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// Credit mints balance to a holder, for seeding test and console scenarios.
func (l *Ledger) Credit(token, holder common.Address, amount *big.Int) {
	bal := l.balanceRef(token, holder)
	bal.Add(bal, amount)
}

// BalanceOf returns a copy of the holder's balance in token.
func (l *Ledger) BalanceOf(token, holder common.Address) *big.Int {
	return new(big.Int).Set(l.balanceRef(token, holder))
}

// Pull implements Puller.
func (l *Ledger) Pull(ctx context.Context, token, from common.Address, amount *big.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.move(token, from, l.pool, amount)
}

// Pay implements Puller.
func (l *Ledger) Pay(ctx context.Context, token, to common.Address, amount *big.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.move(token, l.pool, to, amount)
}

func (l *Ledger) move(token, from, to common.Address, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return ErrNonPositiveAmount
	}
	src := l.balanceRef(token, from)
	if src.Cmp(amount) < 0 {
		return fmt.Errorf("%w: token %s holder %s", ErrInsufficientBalance, token, from)
	}
	src.Sub(src, amount)
	dst := l.balanceRef(token, to)
	dst.Add(dst, amount)
	return nil
}

func (l *Ledger) balanceRef(token, holder common.Address) *big.Int {
	holders, ok := l.balances[token]
	if !ok {
		holders = make(map[common.Address]*big.Int)
		l.balances[token] = holders
	}
	bal, ok := holders[holder]
	if !ok {
		bal = new(big.Int)
		holders[holder] = bal
	}
	return bal
}
