package liveness

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"nakgo/internal/frontend"
	"nakgo/internal/ir"
)

func parseFn(t *testing.T, src string) *ir.Function {
	t.Helper()
	shader, err := frontend.ParseString("test.nak", src, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return shader.Functions[0]
}

func gpr(idx uint32) ir.SSAValue { return ir.NewSSAValue(ir.FileGPR, idx) }

func TestStraightLine(t *testing.T) {
	fn := parseFn(t, `
func main {
b0:
  mov %r1 = 0x1
  mov %r2 = 0x2
  iadd3 %r3 = %r1, %r2, rZ
  iadd3 %r4 = %r3, %r1, rZ
  exit
}
`)
	bl := Compute(fn).Block(0)
	if diff := cmp.Diff([]int{2, 3}, bl.Uses(gpr(1))); diff != "" {
		t.Fatalf("uses of %%r1:\n%s", diff)
	}
	if !bl.IsLiveAfter(gpr(1), 2) || bl.IsLiveAfter(gpr(1), 3) {
		t.Fatalf("%%r1 dies at instruction 3")
	}
	if bl.IsLiveAfter(gpr(2), 2) {
		t.Fatalf("%%r2 dies at instruction 2")
	}
	if bl.IsLiveAfter(gpr(4), 3) {
		t.Fatalf("unused value must not be live")
	}
	if len(bl.LiveIn()) != 0 || len(bl.LiveOut()) != 0 {
		t.Fatalf("single block function has no live-in or live-out")
	}
}

const diamondFn = `
func main {
b0:
  mov %r1 = 0x1
  mov %r2 = 0x2
  isetp.lt.u32.and %p3 = %r1, %r2, pT
  @%p3 bra b2
b1:
  mov %r4 = %r1
  bra b3
b2:
  mov %r5 = 0x0
  mov %r6 = %r2
b3:
  st.global.b32.a32.weak.cta.off=0 %r2, %r1
  exit
}
`

func TestDiamondPropagation(t *testing.T) {
	fn := parseFn(t, diamondFn)
	l := Compute(fn)
	b0 := l.Block(0)
	if diff := cmp.Diff([]ir.SSAValue{gpr(1), gpr(2)}, b0.LiveOut()); diff != "" {
		t.Fatalf("b0 live-out:\n%s", diff)
	}
	// b1 reads %r1 at its index 0, so b0 records 4+0.
	if got := b0.LastUse(gpr(1)); got != 4 {
		t.Fatalf("folded use of %%r1 = %d, want 4", got)
	}
	// b1 only passes %r2 through to b3 where it is read first at index 0:
	// b1 records 2+0, b0 takes the minimum over b1 (4+2) and b2 (4+1).
	if got := l.Block(1).LastUse(gpr(2)); got != 2 {
		t.Fatalf("b1 pass-through position = %d, want 2", got)
	}
	if got := b0.LastUse(gpr(2)); got != 5 {
		t.Fatalf("b0 folded position of %%r2 = %d, want 5", got)
	}
	if !l.Block(3).IsLiveIn(gpr(1)) || l.Block(3).IsLiveOut(gpr(1)) {
		t.Fatalf("%%r1 is live into b3 and dead after it")
	}
	if b0.IsLiveIn(gpr(1)) || !b0.IsDefined(gpr(1)) {
		t.Fatalf("%%r1 is defined in b0")
	}
}

const loopFn = `
func main {
b0:
  mov %r1 = 0x0
  mov %r9 = 0x10
b1:
  phi_dst.ids=1 %r2 =
  iadd3 %r3 = %r2, 0x1, rZ
  isetp.lt.u32.and %p4 = %r3, %r9, pT
  phi_src.ids=1 %r3
  @%p4 bra b1
b2:
  exit
}
`

func TestLoopReachesFixedPoint(t *testing.T) {
	fn := parseFn(t, loopFn)
	l := Compute(fn)
	b1 := l.Block(1)
	if !b1.IsLiveIn(gpr(9)) || !b1.IsLiveOut(gpr(9)) {
		t.Fatalf("loop bound must be live around the back edge")
	}
	if !b1.IsLiveAfter(gpr(9), 4) {
		t.Fatalf("loop bound is read again in the next iteration")
	}
	if b1.IsLiveAfter(gpr(3), 3) {
		t.Fatalf("%%r3 dies at the phi source")
	}
	if l.Rounds() < 2 {
		t.Fatalf("a loop needs at least one confirming sweep, got %d", l.Rounds())
	}
}

// Every value read in a block is either defined before the read in that
// block or live on entry to it.
func TestUsesAreCovered(t *testing.T) {
	fn := parseFn(t, `
func main {
b0:
  mov %r1 = 0x1
  isetp.eq.u32.and %p2 = %r1, rZ, pT
  @%p2 bra b2
b1:
  iadd3 %r3 = %r1, %r1, rZ
  bra b3
b2:
  iadd3 %r4 = %r1, 0x2, rZ
b3:
  exit
}
`)
	l := Compute(fn)
	for _, b := range fn.Blocks {
		bl := l.Block(b.ID)
		defined := map[ir.SSAValue]bool{}
		for _, instr := range b.Instrs {
			instr.ForEachSSAUse(func(v ir.SSAValue) {
				if !defined[v] && !bl.IsLiveIn(v) {
					t.Fatalf("b%d: %v read without being live-in", b.ID, v)
				}
			})
			instr.ForEachSSADef(func(v ir.SSAValue) { defined[v] = true })
		}
	}
}

// A value read at ip is live after every earlier instruction of the block,
// back to its definition or to the block entry.
func TestLiveBeforeEveryUse(t *testing.T) {
	for name, src := range map[string]string{"diamond": diamondFn, "loop": loopFn} {
		fn := parseFn(t, src)
		l := Compute(fn)
		for _, b := range fn.Blocks {
			bl := l.Block(b.ID)
			defAt := map[ir.SSAValue]int{}
			for ip, instr := range b.Instrs {
				instr.ForEachSSAUse(func(v ir.SSAValue) {
					from := 0
					if d, ok := defAt[v]; ok {
						from = d
					}
					for before := from; before < ip; before++ {
						if !bl.IsLiveAfter(v, before) {
							t.Errorf("%s b%d: %v read at %d but dead after %d", name, b.ID, v, ip, before)
						}
					}
				})
				instr.ForEachSSADef(func(v ir.SSAValue) { defAt[v] = ip })
			}
		}
	}
}
