package bitview

import (
	"math/rand"
	"testing"
)

func TestRoundTripPreservesOtherBits(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		words := make([]uint32, 4)
		for j := range words {
			words[j] = rng.Uint32()
		}
		before := append([]uint32(nil), words...)

		lo := rng.Intn(128)
		width := 1 + rng.Intn(min(64, 128-lo))
		hi := lo + width
		val := rng.Uint64() & mask(width)

		v := New(words)
		v.SetField(lo, hi, val)
		if got := v.GetBitRange(lo, hi); got != val {
			t.Fatalf("range [%d,%d): got %#x want %#x", lo, hi, got, val)
		}
		orig := New(before)
		for bit := 0; bit < 128; bit++ {
			if bit >= lo && bit < hi {
				continue
			}
			if v.GetBit(bit) != orig.GetBit(bit) {
				t.Fatalf("bit %d changed when writing [%d,%d)", bit, lo, hi)
			}
		}
	}
}

func TestSubsetIsRelative(t *testing.T) {
	words := make([]uint32, 2)
	v := New(words)
	sub := v.Subset(28, 40)
	sub.SetField(0, 8, 0xab)
	if got := v.GetBitRange(28, 36); got != 0xab {
		t.Fatalf("expected 0xab at bit 28, got %#x", got)
	}
	if words[0] != 0xb0000000 || words[1] != 0xa {
		t.Fatalf("unexpected words %#x %#x", words[0], words[1])
	}
	if sub.Bits() != 12 {
		t.Fatalf("expected 12-bit subset, got %d", sub.Bits())
	}
}

func TestSetFieldOverflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for oversized value")
		}
	}()
	New(make([]uint32, 1)).SetField(0, 3, 8)
}

func TestOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for range past the end")
		}
	}()
	New(make([]uint32, 2)).SetBit(64, true)
}

func TestSignedField(t *testing.T) {
	words := make([]uint32, 4)
	v := New(words)
	v.SetSignedField(34, 82, -24)
	if got := SignExtend(v.GetBitRange(34, 82), 48); got != -24 {
		t.Fatalf("expected -24, got %d", got)
	}
}
