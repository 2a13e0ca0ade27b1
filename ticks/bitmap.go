package ticks

import (
	"math/bits"
	"sort"
)

const wordSize = 64

// Bitmap tracks which ticks are initialized, one bit per tick packed into
// 64-bit words keyed by word index. Words exist only while at least one of
// their bits is set.
type Bitmap struct {
	words map[int64]uint64
}

func NewBitmap() *Bitmap {
	return &Bitmap{words: make(map[int64]uint64)}
}

func position(tick int64) (word int64, mask uint64) {
	word = floorDiv(tick, wordSize)
	bit := uint(tick - word*wordSize)
	return word, uint64(1) << bit
}

func (b *Bitmap) IsSet(tick int64) bool {
	word, mask := position(tick)
	return b.words[word]&mask != 0
}

func (b *Bitmap) Set(tick int64) {
	word, mask := position(tick)
	b.words[word] |= mask
}

func (b *Bitmap) Unset(tick int64) {
	word, mask := position(tick)
	next := b.words[word] &^ mask
	if next == 0 {
		delete(b.words, word)
	} else {
		b.words[word] = next
	}
}

// NextInitialized finds the nearest initialized tick from a starting tick.
// With lte it returns the largest initialized tick at or below the start;
// otherwise the smallest one strictly above it.
func (b *Bitmap) NextInitialized(tick int64, lte bool) (int64, bool) {
	word, mask := position(tick)

	if lte {
		// Bits at or below the starting bit within the word.
		below := mask | (mask - 1)
		if masked := b.words[word] & below; masked != 0 {
			msb := int64(bits.Len64(masked) - 1)
			return word*wordSize + msb, true
		}
		if prev, ok := b.nearestWord(word, true); ok {
			msb := int64(bits.Len64(b.words[prev]) - 1)
			return prev*wordSize + msb, true
		}
		return 0, false
	}

	// Bits strictly above the starting bit within the word.
	above := ^(mask | (mask - 1))
	if masked := b.words[word] & above; masked != 0 {
		lsb := int64(bits.TrailingZeros64(masked))
		return word*wordSize + lsb, true
	}
	if next, ok := b.nearestWord(word, false); ok {
		lsb := int64(bits.TrailingZeros64(b.words[next]))
		return next*wordSize + lsb, true
	}
	return 0, false
}

// nearestWord returns the closest nonempty word index strictly before (lte)
// or after the given word.
func (b *Bitmap) nearestWord(word int64, lte bool) (int64, bool) {
	keys := make([]int64, 0, len(b.words))
	for k := range b.words {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	if lte {
		idx := sort.Search(len(keys), func(i int) bool { return keys[i] >= word })
		if idx == 0 {
			return 0, false
		}
		return keys[idx-1], true
	}
	idx := sort.Search(len(keys), func(i int) bool { return keys[i] > word })
	if idx == len(keys) {
		return 0, false
	}
	return keys[idx], true
}
