package sched

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nakgo/internal/frontend"
	"nakgo/internal/ir"
)

const ld = "ld.global.b32.a64.weak.cta.off=0"

func parse(t *testing.T, body string) *ir.Shader {
	t.Helper()
	shader, err := frontend.ParseString("test.nak", ".sm 75\nfunc main {\nb0:\n"+body+"\n}\n", nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return shader
}

func deps(shader *ir.Shader) []string {
	var out []string
	for _, b := range shader.Functions[0].Blocks {
		for _, instr := range b.Instrs {
			out = append(out, ir.FormatDeps(instr.Deps))
		}
	}
	return out
}

func expectDeps(t *testing.T, mode Mode, body string, want []string) {
	t.Helper()
	shader := parse(t, body)
	CalcDeps(shader, mode)
	if diff := cmp.Diff(want, deps(shader)); diff != "" {
		t.Fatalf("deps mismatch (-want +got):\n%s", diff)
	}
}

func TestFixedLatencyNeedsNoBarrier(t *testing.T) {
	expectDeps(t, ModeDefault, `
  iadd3 r2 = r0, r1, rZ
  exit`, []string{
		"{delay=1}",
		"{delay=15}",
	})
}

func TestFixedLatencyChainDelay(t *testing.T) {
	expectDeps(t, ModeDefault, `
  iadd3 r1 = r0, r0, rZ
  iadd3 r2 = r1, r1, rZ
  exit`, []string{
		"{delay=6}",
		"{delay=1}",
		"{delay=15}",
	})
}

func TestLoadThenConsumer(t *testing.T) {
	expectDeps(t, ModeDefault, `
  `+ld+` r0 = r2:2
  iadd3 r1 = r0, r0, rZ
  `+ld+` r4 = r6:2
  exit`, []string{
		"{delay=1 wr=0 rd=1}",
		"{delay=1 wait=0x1}",
		"{delay=1 wr=0 rd=2}",
		"{delay=15 wait=0x7}",
	})
}

func TestTranscendentalNeedsBarrier(t *testing.T) {
	shader := parse(t, `
  mufu.rcp r1 = r0
  fadd r2 = r1, r1
  exit`)
	CalcDeps(shader, ModeDefault)
	instrs := shader.Functions[0].Blocks[0].Instrs
	mufu, fadd := instrs[0].Deps, instrs[1].Deps
	if mufu.WrBar < 0 {
		t.Fatalf("mufu sets no write barrier: %s", ir.FormatDeps(mufu))
	}
	if fadd.WaitMask&(1<<mufu.WrBar) == 0 {
		t.Fatalf("fadd %s does not wait on barrier %d", ir.FormatDeps(fadd), mufu.WrBar)
	}
	checkBarriers(t, instrs)
}

func TestWriteAfterRead(t *testing.T) {
	expectDeps(t, ModeDefault, `
  `+ld+` r0 = r2:2
  mov r5 = 0x1
  mov r2 = 0x1
  exit`, []string{
		"{delay=1 wr=0 rd=1}",
		"{delay=1}",
		"{delay=1 wait=0x2}",
		"{delay=15 wait=0x1}",
	})
}

// A destination that is also a source needs no read barrier for it.
func TestDestinationWinsOverSource(t *testing.T) {
	expectDeps(t, ModeDefault, `
  `+ld+` r2 = r2:2
  exit`, []string{
		"{delay=1 wr=0 rd=1}",
		"{delay=15 wait=0x3}",
	})
	expectDeps(t, ModeDefault, `
  `+ld+` r2:2 = r2:2
  exit`, []string{
		"{delay=1 wr=0}",
		"{delay=15 wait=0x1}",
	})
}

func TestEvictsOldestBarrier(t *testing.T) {
	var body strings.Builder
	for i := 0; i < 4; i++ {
		fmt.Fprintf(&body, "  %s r%d = r%d:2\n", ld, i, 10+2*i)
	}
	body.WriteString("  exit")
	expectDeps(t, ModeDefault, body.String(), []string{
		"{delay=1 wr=0 rd=1}",
		"{delay=1 wr=2 rd=3}",
		"{delay=1 wr=4 rd=5}",
		"{delay=1 wr=0 rd=1 wait=0x3}",
		"{delay=15 wait=0x3f}",
	})
}

func TestSerialMode(t *testing.T) {
	expectDeps(t, ModeSerial, `
  `+ld+` r0 = r2:2
  iadd3 r1 = r0, r0, rZ
  s2r.sr=0x21 r4 =
  mov r5 = r4
  exit`, []string{
		"{delay=15 wr=0 rd=1}",
		"{delay=15 wait=0x3}",
		"{delay=15 wr=0}",
		"{delay=15 wait=0x1}",
		"{delay=15 wait=0x3f}",
	})
}

func TestRecomputeResetsDeps(t *testing.T) {
	shader := parse(t, "  "+ld+" r0 = r2:2\n  exit")
	CalcDeps(shader, ModeSerial)
	CalcDeps(shader, ModeDefault)
	if diff := cmp.Diff([]string{"{delay=1 wr=0 rd=1}", "{delay=15 wait=0x3}"}, deps(shader)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestPseudoOpsRejected(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on copy")
		}
	}()
	CalcDeps(parse(t, "  copy r0 = r1\n  exit"), ModeDefault)
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeDefault, ModeSerial} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Fatalf("ParseMode(%q) = %v, %v", m, got, err)
		}
	}
	if _, err := ParseMode("fast"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

// Random straight-line code: no instruction may read or overwrite a
// register while a variable-latency operation on it is still in flight
// without waiting on the barrier tracking it.
func TestBarrierInvariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for round := 0; round < 200; round++ {
		var body strings.Builder
		for i := 0; i < 40; i++ {
			a, b, c := rng.IntN(8), rng.IntN(7), rng.IntN(8)
			switch rng.IntN(3) {
			case 0:
				fmt.Fprintf(&body, "  %s r%d = r%d:2\n", ld, a, b)
			case 1:
				fmt.Fprintf(&body, "  st.global.b32.a64.weak.cta.off=0 r%d:2, r%d\n", b, a)
			default:
				fmt.Fprintf(&body, "  iadd3 r%d = r%d, r%d, rZ\n", a, b, c)
			}
		}
		body.WriteString("  exit")
		shader := parse(t, body.String())
		CalcDeps(shader, ModeDefault)
		checkBarriers(t, shader.Functions[0].Blocks[0].Instrs)
	}
}

func checkBarriers(t *testing.T, instrs []*ir.Instr) {
	t.Helper()
	// Pending barrier per register, for writes and for reads.
	pendingWr := map[int]int{}
	pendingRd := map[int][]int{}
	var allocated uint8
	for _, instr := range instrs {
		d := instr.Deps
		if d.WaitMask&^allocated != 0 {
			t.Fatalf("%s waits on unallocated barriers %#x", instr, d.WaitMask&^allocated)
		}
		for r, bar := range pendingWr {
			if d.WaitMask&(1<<bar) != 0 {
				delete(pendingWr, r)
			}
		}
		for r, bars := range pendingRd {
			var keep []int
			for _, bar := range bars {
				if d.WaitMask&(1<<bar) == 0 {
					keep = append(keep, bar)
				}
			}
			pendingRd[r] = keep
		}
		for _, reg := range srcRegs(instr) {
			for i := range reg.Comps() {
				if _, ok := pendingWr[reg.Base()+i]; ok {
					t.Fatalf("%s reads r%d before its load completed", instr, reg.Base()+i)
				}
			}
		}
		for _, reg := range dstRegs(instr) {
			for i := range reg.Comps() {
				r := reg.Base() + i
				if _, ok := pendingWr[r]; ok || len(pendingRd[r]) > 0 {
					t.Fatalf("%s overwrites r%d with an operation in flight", instr, r)
				}
			}
		}
		if d.RdBar >= 0 {
			allocated |= 1 << d.RdBar
			for _, reg := range srcRegs(instr) {
				for i := range reg.Comps() {
					pendingRd[reg.Base()+i] = append(pendingRd[reg.Base()+i], int(d.RdBar))
				}
			}
		}
		if d.WrBar >= 0 {
			allocated |= 1 << d.WrBar
			for _, reg := range dstRegs(instr) {
				for i := range reg.Comps() {
					pendingWr[reg.Base()+i] = int(d.WrBar)
				}
			}
		}
	}
}
