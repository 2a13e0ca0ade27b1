// Package tickmath converts between sqrt prices in Q64.96 fixed point and
// tick indices. The mapping is sqrtRatio(tick) = sqrt(1.0001^tick) * 2^96,
// deterministic and strictly monotonic over the valid tick range.
package tickmath

import (
	"errors"
	"math/big"
	"sync"

	"github.com/holiman/uint256"
)

var (
	// MinTick is the lowest tick index the price domain supports.
	MinTick = int64(-887272)
	// MaxTick is the highest tick index the price domain supports.
	MaxTick = int64(887272)

	// MinSqrtRatio is sqrtRatio(MinTick), the smallest representable sqrt price.
	MinSqrtRatio, _ = new(big.Int).SetString("4295128739", 10)
	// MaxSqrtRatio is sqrtRatio(MaxTick), the upper exclusive bound for sqrt prices.
	MaxSqrtRatio, _ = new(big.Int).SetString("1461446703485210103287273052203988822378723970342", 10)

	ErrTickOutOfBounds      = errors.New("tick out of bounds")
	ErrSqrtPriceOutOfBounds = errors.New("sqrt price out of bounds")

	one        = uint256.NewInt(1)
	maxUint256 = uint256.MustFromBig(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)))

	// Q128.128 factors sqrt(1.0001^(2^i)) for each bit of the tick magnitude,
	// preceded by the seed values for odd/even ticks, followed by the 32-bit
	// rounding mask used in the final downshift to Q64.96.
	ratioFactors = [22]*uint256.Int{
		mustFromHex("0xfffcb933bd6fad37aa2d162d1a594001"),  // bit 0 set
		mustFromHex("0x100000000000000000000000000000000"), // bit 0 clear (identity)
		mustFromHex("0xfff97272373d413259a46990580e213a"),
		mustFromHex("0xfff2e50f5f656932ef12357cf3c7fdcc"),
		mustFromHex("0xffe5caca7e10e4e61c3624eaa0941cd0"),
		mustFromHex("0xffcb9843d60f6159c9db58835c926644"),
		mustFromHex("0xff973b41fa98c081472e6896dfb254c0"),
		mustFromHex("0xff2ea16466c96a3843ec78b326b52861"),
		mustFromHex("0xfe5dee046a99a2a811c461f1969c3053"),
		mustFromHex("0xfcbe86c7900a88aedcffc83b479aa3a4"),
		mustFromHex("0xf987a7253ac413176f2b074cf7815e54"),
		mustFromHex("0xf3392b0822b70005940c7a398e4b70f3"),
		mustFromHex("0xe7159475a2c29b7443b29c7fa6e889d9"),
		mustFromHex("0xd097f3bdfd2022b8845ad8f792aa5825"),
		mustFromHex("0xa9f746462d870fdf8a65dc1f90e061e5"),
		mustFromHex("0x70d869a156d2a1b890bb3df62baf32f7"),
		mustFromHex("0x31be135f97d08fd981231505542fcfa6"),
		mustFromHex("0x9aa508b5b7a84e1c677de54f3e99bc9"),
		mustFromHex("0x5d6af8dedb81196699c329225ee604"),
		mustFromHex("0x2216e584f5fa1ea926041bedfe98"),
		mustFromHex("0x48a170391f7dc42444e8fa2"),
		mustFromHex("0xffffffff"),
	}
)

// scratch holds reusable intermediates so conversions stay allocation-free.
type scratch struct {
	ratio *uint256.Int
	rem   *uint256.Int
	probe *big.Int
}

var scratchPool = sync.Pool{
	New: func() any {
		return &scratch{
			ratio: new(uint256.Int),
			rem:   new(uint256.Int),
			probe: new(big.Int),
		}
	},
}

// GetSqrtRatioAtTick writes sqrt(1.0001^tick) * 2^96 into dest.
func GetSqrtRatioAtTick(dest *big.Int, tick int64) error {
	if tick < MinTick || tick > MaxTick {
		return ErrTickOutOfBounds
	}

	sc := scratchPool.Get().(*scratch)
	defer scratchPool.Put(sc)

	absTick := tick
	if tick < 0 {
		absTick = -tick
	}

	if absTick&0x1 != 0 {
		sc.ratio.Set(ratioFactors[0])
	} else {
		sc.ratio.Set(ratioFactors[1])
	}
	for i := 2; i < 21; i++ {
		if absTick&(1<<(i-1)) != 0 {
			sc.ratio.Mul(sc.ratio, ratioFactors[i]).Rsh(sc.ratio, 128)
		}
	}

	// The factor table walks away from 1; positive ticks need the reciprocal.
	if tick > 0 {
		sc.ratio.Div(maxUint256, sc.ratio)
	}

	// Q128.128 -> Q64.96, rounding any truncated bits up.
	sc.rem.And(sc.ratio, ratioFactors[21])
	sc.ratio.Rsh(sc.ratio, 32)
	if sc.rem.Sign() > 0 {
		sc.ratio.Add(sc.ratio, one)
	}

	sc.ratio.IntoBig(&dest)
	return nil
}

// GetTickAtSqrtRatio returns the greatest tick whose sqrt ratio is at most
// sqrtPriceX96, found by binary search over the valid tick range.
func GetTickAtSqrtRatio(sqrtPriceX96 *big.Int) (int64, error) {
	if sqrtPriceX96.Cmp(MinSqrtRatio) < 0 || sqrtPriceX96.Cmp(MaxSqrtRatio) >= 0 {
		return 0, ErrSqrtPriceOutOfBounds
	}

	sc := scratchPool.Get().(*scratch)
	defer scratchPool.Put(sc)

	low, high := MinTick, MaxTick
	var tick int64
	for low <= high {
		mid := (low + high) / 2
		if err := GetSqrtRatioAtTick(sc.probe, mid); err != nil {
			return 0, err
		}
		if sc.probe.Cmp(sqrtPriceX96) <= 0 {
			tick = mid
			low = mid + 1
		} else {
			high = mid - 1
		}
	}
	return tick, nil
}

func mustFromHex(s string) *uint256.Int {
	n, _ := new(big.Int).SetString(s[2:], 16)
	return uint256.MustFromBig(n)
}
