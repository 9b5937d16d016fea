// Package bitview reads and writes bit ranges inside fixed-size word arrays.
//
// Word i of the backing slice holds bits [32i, 32i+32), least significant bit
// first. Every encoder in the compiler builds on these views.
package bitview

import "fmt"

// View is a mutable window over a slice of 32-bit words. The zero offset view
// covers the whole slice; Subset narrows it.
type View struct {
	words  []uint32
	offset int
	bits   int
}

// New returns a view over all bits of words.
func New(words []uint32) View {
	return View{words: words, bits: len(words) * 32}
}

// Bits reports the number of addressable bits.
func (v View) Bits() int {
	return v.bits
}

// Subset returns a view over [lo, hi) relative to v.
func (v View) Subset(lo, hi int) View {
	v.checkRange(lo, hi)
	return View{words: v.words, offset: v.offset + lo, bits: hi - lo}
}

func (v View) checkRange(lo, hi int) {
	if lo < 0 || hi < lo || hi > v.bits {
		panic(fmt.Sprintf("bitview: range [%d, %d) outside %d bits", lo, hi, v.bits))
	}
}

func mask(n int) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(n)) - 1
}

// GetBitRange returns bits [lo, hi) as an unsigned integer. The range may
// span at most 64 bits.
func (v View) GetBitRange(lo, hi int) uint64 {
	v.checkRange(lo, hi)
	if hi-lo > 64 {
		panic(fmt.Sprintf("bitview: range [%d, %d) wider than 64 bits", lo, hi))
	}
	start := v.offset + lo
	end := v.offset + hi
	var out uint64
	shift := 0
	for pos := start; pos < end; {
		word := pos / 32
		bit := pos % 32
		n := min(32-bit, end-pos)
		chunk := (uint64(v.words[word]) >> uint(bit)) & mask(n)
		out |= chunk << uint(shift)
		shift += n
		pos += n
	}
	return out
}

// SetBitRange writes the low hi-lo bits of val into [lo, hi). Bits of val
// above the range are ignored.
func (v View) SetBitRange(lo, hi int, val uint64) {
	v.checkRange(lo, hi)
	if hi-lo > 64 {
		panic(fmt.Sprintf("bitview: range [%d, %d) wider than 64 bits", lo, hi))
	}
	start := v.offset + lo
	end := v.offset + hi
	for pos := start; pos < end; {
		word := pos / 32
		bit := pos % 32
		n := min(32-bit, end-pos)
		m := uint32(mask(n)) << uint(bit)
		chunk := uint32(val&mask(n)) << uint(bit)
		v.words[word] = (v.words[word] &^ m) | chunk
		val >>= uint(n)
		pos += n
	}
}

// SetField writes val into [lo, hi) and panics when val does not fit.
func (v View) SetField(lo, hi int, val uint64) {
	if val&^mask(hi-lo) != 0 {
		panic(fmt.Sprintf("bitview: value %#x does not fit in %d bits", val, hi-lo))
	}
	v.SetBitRange(lo, hi, val)
}

// SetSignedField writes a two's complement value into [lo, hi) and panics
// when it is not representable in hi-lo bits.
func (v View) SetSignedField(lo, hi int, val int64) {
	n := hi - lo
	if n < 64 {
		limit := int64(1) << uint(n-1)
		if val < -limit || val >= limit {
			panic(fmt.Sprintf("bitview: value %d does not fit in %d signed bits", val, n))
		}
	}
	v.SetBitRange(lo, hi, uint64(val)&mask(n))
}

// GetBit reads a single bit.
func (v View) GetBit(bit int) bool {
	return v.GetBitRange(bit, bit+1) != 0
}

// SetBit writes a single bit.
func (v View) SetBit(bit int, val bool) {
	var b uint64
	if val {
		b = 1
	}
	v.SetBitRange(bit, bit+1, b)
}

// SignExtend interprets the low n bits of x as a two's complement number.
func SignExtend(x uint64, n int) int64 {
	shift := uint(64 - n)
	return int64(x<<shift) >> shift
}
