package encode

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nakgo/internal/bitview"
	"nakgo/internal/frontend"
	"nakgo/internal/ir"
)

func parse(t *testing.T, sm int, body string) *ir.Shader {
	t.Helper()
	src := fmt.Sprintf(".sm %d\nfunc main {\n%s\n}\n", sm, body)
	shader, err := frontend.ParseString("test.nak", src, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return shader
}

type bits struct {
	lo, hi int
	want   uint64
}

func checkBits(t *testing.T, v bitview.View, want []bits) {
	t.Helper()
	for _, b := range want {
		if got := v.GetBitRange(b.lo, b.hi); got != b.want {
			t.Errorf("bits %d..%d = %#x, want %#x", b.lo, b.hi, got, b.want)
		}
	}
}

func encode75(t *testing.T, line string) bitview.View {
	t.Helper()
	shader := parse(t, 75, "b0:\n  "+line+"\n  exit")
	fn := shader.Functions[0]
	w := EncodeSM75(fn.Blocks[0].Instrs[0], 75, 0, BlockOffsets(fn, 75))
	return bitview.New(w[:])
}

func TestSM75IAdd3Forms(t *testing.T) {
	tests := []struct {
		line string
		form uint64
		want []bits
	}{
		{"iadd3 r2 = r0, r1, r3", 1, []bits{{32, 40, 1}, {64, 72, 3}}},
		{"iadd3 r2 = r0, r1, 0x1234", 2, []bits{{32, 64, 0x1234}, {64, 72, 1}}},
		{"iadd3 r2 = r0, r1, c[0x1][0x20]", 3, []bits{{38, 54, 0x20}, {54, 59, 1}, {64, 72, 1}}},
		{"iadd3 r2 = r0, 0x1234, r3", 4, []bits{{32, 64, 0x1234}, {64, 72, 3}}},
		{"iadd3 r2 = r0, c[0x2][0x8], r3", 5, []bits{{38, 54, 0x8}, {54, 59, 2}, {64, 72, 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			v := encode75(t, tt.line)
			checkBits(t, v, []bits{
				{0, 9, 0x010},
				{9, 12, tt.form},
				{16, 24, 2},
				{24, 32, 0},
				// Overflow predicates unused, carry in false.
				{81, 84, 7},
				{84, 87, 7},
				{87, 91, 0xf},
			})
			checkBits(t, v, tt.want)
		})
	}
}

func TestSM75SourceModifiers(t *testing.T) {
	v := encode75(t, "fadd r1 = -r2, |r3|")
	checkBits(t, v, []bits{
		{0, 9, 0x021},
		{9, 12, 1},
		{24, 32, 2},
		{72, 73, 1},
		{73, 74, 0},
		{32, 40, 3},
		{62, 63, 1},
		{63, 64, 0},
	})
}

func TestSM75GuardAndDeps(t *testing.T) {
	v := encode75(t, "@!p1 exit {delay=3 wr=2 rd=4 wait=0x21 reuse=0x5 yield}")
	checkBits(t, v, []bits{
		{0, 12, 0x94d},
		{12, 15, 1},
		{15, 16, 1},
		{105, 109, 3},
		{109, 110, 1},
		{110, 113, 2},
		{113, 116, 4},
		{116, 122, 0x21},
		{122, 126, 0x5},
	})
}

func TestSM75UnsetBarriers(t *testing.T) {
	v := encode75(t, "exit")
	checkBits(t, v, []bits{
		{12, 15, 7},
		{15, 16, 0},
		{105, 109, 15},
		{110, 113, 7},
		{113, 116, 7},
		{116, 122, 0},
	})
}

func TestSM75BranchOffsets(t *testing.T) {
	shader := parse(t, 75, `b0:
  bra b2
b1:
  exit
b2:
  bra b1`)
	code := Encode(shader)
	if len(code) != 3*4 {
		t.Fatalf("got %d words, want 12", len(code))
	}
	rel := func(i int) int64 {
		v := bitview.New(code[i*4 : i*4+4])
		if op := v.GetBitRange(0, 12); op != 0x947 {
			t.Fatalf("instruction %d opcode %#x is not bra", i, op)
		}
		return bitview.SignExtend(v.GetBitRange(34, 82), 48)
	}
	// Offsets count from the end of the branch.
	if got := rel(0); got != 16 {
		t.Fatalf("forward branch offset %d, want 16", got)
	}
	if got := rel(2); got != -32 {
		t.Fatalf("backward branch offset %d, want -32", got)
	}
}

func TestSM75MemAccess(t *testing.T) {
	v := encode75(t, "ld.global.b32.a64.strong.gpu.off=-4 r0 = r2:2")
	checkBits(t, v, []bits{
		{0, 12, 0x980},
		{16, 24, 0},
		{24, 32, 2},
		{72, 73, 1},
		{77, 79, 2},
		{79, 81, 2},
	})
	if off := bitview.SignExtend(v.GetBitRange(32, 64), 32); off != -4 {
		t.Fatalf("offset %d, want -4", off)
	}
}

func mustPanic(t *testing.T, substr string, f func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected a panic mentioning %q", substr)
		}
		if msg := fmt.Sprint(r); !strings.Contains(msg, substr) {
			t.Fatalf("panic %q does not mention %q", msg, substr)
		}
	}()
	f()
}

func TestPanics(t *testing.T) {
	t.Run("ssa operand", func(t *testing.T) {
		shader := parse(t, 75, "b0:\n  iadd3 %r2 = %r1, %r1, rZ\n  exit")
		mustPanic(t, "SSA", func() { Encode(shader) })
	})
	t.Run("unknown target", func(t *testing.T) {
		shader := parse(t, 75, "b0:\n  bra b1\n  exit")
		fn := shader.Functions[0]
		mustPanic(t, "unknown block", func() {
			EncodeSM75(fn.Blocks[0].Instrs[0], 75, 0, Labels{})
		})
	})
	t.Run("unsupported op", func(t *testing.T) {
		shader := parse(t, 50, "b0:\n  ineg r1 = r0\n  exit")
		mustPanic(t, "not supported", func() { Encode(shader) })
	})
	t.Run("old sm", func(t *testing.T) {
		shader := parse(t, 75, "b0:\n  exit")
		shader.Info.SM = 30
		mustPanic(t, "sm 30", func() { Encode(shader) })
	})
}

func TestSM50GroupsAndPadding(t *testing.T) {
	shader := parse(t, 50, `b0:
  mov r0 = 0x1
  mov r1 = 0x2
  iadd3 r2 = r0, r1, rZ
  exit {delay=5}`)
	code := Encode(shader)
	if len(code) != 2*8 {
		t.Fatalf("got %d words, want 16", len(code))
	}
	opcodes := func(group int) []uint32 {
		g := code[group*8:]
		return []uint32{g[3] >> 16, g[5] >> 16, g[7] >> 16}
	}
	if diff := cmp.Diff([]uint32{0x0100, 0x0100, 0x5cc0}, opcodes(0)); diff != "" {
		t.Fatalf("first group (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint32{0xe300, 0x50b0, 0x50b0}, opcodes(1)); diff != "" {
		t.Fatalf("second group (-want +got):\n%s", diff)
	}

	sched := bitview.New(code[8:10])
	// exit: delay 5, no barriers.
	if got := sched.GetBitRange(0, 21); got != 5|7<<5|7<<8 {
		t.Fatalf("exit sched %#x", got)
	}
	// Padding nops stall for the maximum delay.
	for slot := 1; slot < 3; slot++ {
		if got := sched.GetBitRange(21*slot, 21*(slot+1)); got != 15|7<<5|7<<8 {
			t.Fatalf("nop %d sched %#x", slot, got)
		}
	}
}

func TestSM50Fields(t *testing.T) {
	encode := func(line string) bitview.View {
		t.Helper()
		shader := parse(t, 50, "b0:\n  "+line+"\n  exit")
		fn := shader.Functions[0]
		w, _ := EncodeSM50(fn.Blocks[0].Instrs[0], 50, 8, BlockOffsets(fn, 50))
		return bitview.New(w[:])
	}
	t.Run("negative i20", func(t *testing.T) {
		v := encode("shl r1 = r0, -5")
		checkBits(t, v, []bits{
			{0, 8, 1},
			{8, 16, 0},
			{20, 39, 0x7fffb},
			{48, 56, 0x48},
			{56, 64, 0x39},
		})
	})
	t.Run("wide immediate", func(t *testing.T) {
		v := encode("iadd3 r1 = r0, 0x12345678, rZ")
		checkBits(t, v, []bits{
			{20, 52, 0x12345678},
			{52, 64, 0x1c0},
		})
	})
	t.Run("guard", func(t *testing.T) {
		v := encode("@!p2 mov r3 = r4")
		checkBits(t, v, []bits{
			{16, 19, 2},
			{19, 20, 1},
			{20, 28, 4},
			{48, 64, 0x5c98},
		})
	})
}

func TestSM50BranchOffsets(t *testing.T) {
	shader := parse(t, 50, `b0:
  bra b1
b1:
  bra b0`)
	fn := shader.Functions[0]
	labels := BlockOffsets(fn, 50)
	if diff := cmp.Diff(Labels{0: 8, 1: 40}, labels); diff != "" {
		t.Fatalf("labels (-want +got):\n%s", diff)
	}
	code := Encode(shader)
	rel := func(group int) int64 {
		v := bitview.New(code[group*8+2 : group*8+4])
		if op := v.GetBitRange(48, 64); op != 0xe240 {
			t.Fatalf("group %d opcode %#x is not bra", group, op)
		}
		return bitview.SignExtend(v.GetBitRange(20, 44), 24)
	}
	if got := rel(0); got != 24 {
		t.Fatalf("forward branch offset %d, want 24", got)
	}
	if got := rel(1); got != -40 {
		t.Fatalf("backward branch offset %d, want -40", got)
	}
}
