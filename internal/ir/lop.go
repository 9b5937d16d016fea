package ir

import "fmt"

// Source masks of a three-input lookup table.
var lutSrcMasks = [3]uint8{0xf0, 0xcc, 0xaa}

// LogicOp is an 8-bit truth table over up to three sources.
type LogicOp struct {
	LUT uint8
}

// NewLUT builds a table by evaluating f on the source masks.
func NewLUT(f func(x, y, z uint8) uint8) LogicOp {
	return LogicOp{LUT: f(lutSrcMasks[0], lutSrcMasks[1], lutSrcMasks[2])}
}

// LogicConst returns the constant-true or constant-false table.
func LogicConst(v bool) LogicOp {
	if v {
		return LogicOp{LUT: 0xff}
	}
	return LogicOp{LUT: 0}
}

// Eval applies the table bitwise to three values.
func (op LogicOp) Eval(x, y, z uint32) uint32 {
	var out uint32
	for i := 0; i < 8; i++ {
		if op.LUT&(1<<i) == 0 {
			continue
		}
		term := ^uint32(0)
		for s, v := range [3]uint32{x, y, z} {
			if lutSrcMasks[s]&(1<<i) != 0 {
				term &= v
			} else {
				term &= ^v
			}
		}
		out |= term
	}
	return out
}

func checkLUTSrc(i int) uint8 {
	if i < 0 || i >= 3 {
		panic(fmt.Sprintf("logic op source %d out of range", i))
	}
	return lutSrcMasks[i]
}

// FixSrc specializes the table for source i being constantly v.
func (op *LogicOp) FixSrc(i int, v bool) {
	m := checkLUTSrc(i)
	shift := uint(0)
	for s := m; s&1 == 0; s >>= 1 {
		shift++
	}
	if v {
		hi := op.LUT & m
		op.LUT = hi | hi>>shift
	} else {
		lo := op.LUT &^ m
		op.LUT = lo | lo<<shift
	}
}

// InvertSrc rewrites the table as if source i were inverted.
func (op *LogicOp) InvertSrc(i int) {
	m := checkLUTSrc(i)
	shift := uint(0)
	for s := m; s&1 == 0; s >>= 1 {
		shift++
	}
	hi := op.LUT & m
	lo := op.LUT &^ m
	op.LUT = hi>>shift | lo<<shift
}

// SrcUsed reports whether the result depends on source i.
func (op LogicOp) SrcUsed(i int) bool {
	m := checkLUTSrc(i)
	shift := uint(0)
	for s := m; s&1 == 0; s >>= 1 {
		shift++
	}
	return (op.LUT&m)>>shift != op.LUT&^m
}

// IsConst reports whether the table ignores every source.
func (op LogicOp) IsConst() bool { return op.LUT == 0 || op.LUT == 0xff }

func (op LogicOp) String() string { return fmt.Sprintf("lut=%#02x", op.LUT) }

// LogicOp2 is a two-source logic operation.
type LogicOp2 uint8

const (
	LogicAnd LogicOp2 = iota
	LogicOr
	LogicXor
	LogicPassB
)

var LogicOp2Names = []string{"and", "or", "xor", "passb"}

func (o LogicOp2) String() string { return enumName(LogicOp2Names, uint8(o)) }

// LUT returns the equivalent three-source table.
func (o LogicOp2) LUT() LogicOp {
	return NewLUT(func(x, y, _ uint8) uint8 {
		switch o {
		case LogicAnd:
			return x & y
		case LogicOr:
			return x | y
		case LogicXor:
			return x ^ y
		default:
			return y
		}
	})
}
