package pool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/poolstate/clpool-go/positions"
	"github.com/poolstate/clpool-go/ticks"
)

// journal snapshots every record one liquidity operation may touch: the two
// boundary tick records, the position record, and the pool's active liquidity.
// Restoring the journal after a failure makes the whole call atomic; nothing
// the operation wrote survives.
type journal struct {
	owner                common.Address
	tickLower, tickUpper int64

	lower       ticks.Info
	lowerStored bool
	upper       ticks.Info
	upperStored bool

	pos       positions.Info
	posStored bool

	liquidity *big.Int
}

func (p *Pool) capture(owner common.Address, tickLower, tickUpper int64) *journal {
	j := &journal{
		owner:     owner,
		tickLower: tickLower,
		tickUpper: tickUpper,
		liquidity: new(big.Int).Set(p.liquidity),
	}
	j.lower, j.lowerStored = p.ticks.Get(tickLower)
	j.upper, j.upperStored = p.ticks.Get(tickUpper)
	j.pos, j.posStored = p.positions.Get(owner, tickLower, tickUpper)
	return j
}

func (j *journal) restore(p *Pool) {
	if j.lowerStored {
		p.ticks.Put(j.tickLower, j.lower)
	} else {
		p.ticks.Clear(j.tickLower)
	}
	if j.upperStored {
		p.ticks.Put(j.tickUpper, j.upper)
	} else {
		p.ticks.Clear(j.tickUpper)
	}
	if j.posStored {
		p.positions.Put(j.owner, j.tickLower, j.tickUpper, j.pos)
	} else {
		p.positions.Delete(j.owner, j.tickLower, j.tickUpper)
	}
	p.liquidity.Set(j.liquidity)
}
