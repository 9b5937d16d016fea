package frontend

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"

	"nakgo/internal/diag"
	"nakgo/internal/ir"
)

func mustParse(t *testing.T, src string) *ir.Shader {
	t.Helper()
	var buf bytes.Buffer
	shader, err := ParseString("test.nak", src, diag.NewReporter(&buf, "text"))
	if err != nil {
		t.Fatalf("parse failed: %v\n%s", err, buf.String())
	}
	return shader
}

func dump(shader *ir.Shader) string {
	var buf bytes.Buffer
	ir.Dump(shader, &buf)
	return buf.String()
}

func TestParseTestdataRoundTrip(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.nak"))
	if err != nil || len(files) == 0 {
		t.Fatalf("no testdata: %v", err)
	}
	for _, path := range files {
		t.Run(filepath.Base(path), func(t *testing.T) {
			src, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			first := dump(mustParse(t, string(src)))
			second := dump(mustParse(t, first))
			if diff := cmp.Diff(first, second); diff != "" {
				t.Fatalf("dump is not stable (-first +second):\n%s", diff)
			}
		})
	}
}

func TestParseDirectives(t *testing.T) {
	shader := mustParse(t, `
.sm 70
.stage geometry
.topology triangle_strip
.max_output_vertices 4
.writes_layer
.tls_size 0x40
func main {
b0:
  exit
}
`)
	info := shader.Info
	if info.SM != 70 || info.Stage.Stage != ir.StageGeometry || info.TLSSize != 0x40 {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.Stage.OutputTopology != ir.TopologyTriangleStrip || info.Stage.MaxOutputVertices != 4 || !info.Stage.WritesLayer {
		t.Fatalf("unexpected stage info %+v", info.Stage)
	}
}

func TestParseOperands(t *testing.T) {
	shader := mustParse(t, `
func main {
b0:
  fadd %r3 = -|%r1|, c[%r2][0x20]
  iadd3 %r4 = -%r1, -5, -0x5
  @!p1 lop3.lut=0x96 r4:2 = r0, rZ, 0x1 {delay=2 wr=3 wait=0x5 yield}
  bra b0
}
`)
	instrs := shader.Functions[0].Blocks[0].Instrs

	fadd := instrs[0].Op.(*ir.FAdd)
	if fadd.Srcs[0].Mod != ir.ModFNegAbs {
		t.Fatalf("expected -|x|, got %v", fadd.Srcs[0].Mod)
	}
	cb, ok := fadd.Srcs[1].Ref.(ir.CBufRef)
	if !ok || cb.Offset != 0x20 {
		t.Fatalf("expected bindless cbuf, got %v", fadd.Srcs[1].Ref)
	}
	if _, ok := cb.Buf.(ir.CBufBindlessSSA); !ok {
		t.Fatalf("expected SSA handle, got %T", cb.Buf)
	}

	iadd := instrs[1].Op.(*ir.IAdd3)
	if iadd.Srcs[0].Mod != ir.ModINeg {
		t.Fatalf("integer slot must take INeg, got %v", iadd.Srcs[0].Mod)
	}
	if v, _ := iadd.Srcs[1].AsImm(); v != 0xfffffffb || !iadd.Srcs[1].Mod.IsNone() {
		t.Fatalf("decimal -5 must be a plain immediate, got %v", iadd.Srcs[1])
	}
	if v, _ := iadd.Srcs[2].AsImm(); v != 5 || iadd.Srcs[2].Mod != ir.ModINeg {
		t.Fatalf("-0x5 must be a negated immediate, got %v", iadd.Srcs[2])
	}

	lop := instrs[2]
	if !lop.Pred.Inv {
		t.Fatalf("guard should be inverted")
	}
	if r, ok := lop.Op.(*ir.Lop3).Dst.(ir.RegRef); !ok || r.Base() != 4 || r.Comps() != 2 {
		t.Fatalf("unexpected destination %v", lop.Op.(*ir.Lop3).Dst)
	}
	want := ir.InstrDeps{Delay: 2, Yield: true, WrBar: 3, RdBar: -1, WaitMask: 0x5}
	if diff := cmp.Diff(want, lop.Deps); diff != "" {
		t.Fatalf("deps mismatch (-want +got):\n%s", diff)
	}

	if shader.Functions[0].SSA.MaxIdx() < 4 {
		t.Fatalf("SSA allocator must reserve parsed indices")
	}
}

func TestParseVectors(t *testing.T) {
	shader := mustParse(t, `
func main {
b0:
  par_copy %r5, %r[6,7] = %r1, %r[2,3]
  phi_dst.ids=1:2 %r8, %p9 =
}
`)
	instrs := shader.Functions[0].Blocks[0].Instrs
	pc := instrs[0].Op.(*ir.ParCopy)
	if len(pc.Dsts) != 2 || len(pc.Srcs) != 2 {
		t.Fatalf("par_copy not resized: %d dsts %d srcs", len(pc.Dsts), len(pc.Srcs))
	}
	if v, ok := pc.Srcs[1].AsSSA(); !ok || v.Comps() != 2 {
		t.Fatalf("expected a 2-wide vector source")
	}
	phi := instrs[1].Op.(*ir.PhiDsts)
	if diff := cmp.Diff([]uint32{1, 2}, phi.IDs); diff != "" {
		t.Fatalf("ids mismatch:\n%s", diff)
	}
}

func TestParseErrorsCarryLines(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	reporter := diag.NewReporter(&buf, "text")
	_, err := ParseString("bad.nak", `.sm 75
func main {
b0:
  frobnicate %r1 = %r2
  fadd.bogus %r1 = %r2, %r3
  mov %r1 = %r2, %r3, %r4
  bra
  exit
}
`, reporter)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if reporter.ErrorCount() != 4 {
		t.Fatalf("expected 4 errors, got %d:\n%s", reporter.ErrorCount(), buf.String())
	}
	out := buf.String()
	for _, want := range []string{"bad.nak:4:", "bad.nak:5:", "bad.nak:6:", "bad.nak:7:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestParseStructureErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"outside-block", "func main {\n  exit\n}\n"},
		{"unclosed", "func main {\nb0:\n  exit\n"},
		{"duplicate-block", "func main {\nb0:\nb0:\n}\n"},
		{"bad-stage", ".stage pixel\nfunc main {\nb0:\n}\n"},
		{"empty", "# nothing\n"},
		{"bad-deps", "func main {\nb0:\n  exit {delay=0}\n}\n"},
	}
	for _, c := range cases {
		if _, err := ParseString(c.name, c.src, nil); err == nil {
			t.Fatalf("%s: expected an error", c.name)
		}
	}
}

func TestLoadFilesDefaultSM(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.nak")
	if err := os.WriteFile(path, []byte("func main {\nb0:\n  exit\n}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	units, err := LoadFiles(LoadConfig{Sources: []string{path}, DefaultSM: 75}, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(units) != 1 || units[0].Name != "plain" || units[0].Shader.Info.SM != 75 {
		t.Fatalf("unexpected units %+v", units)
	}
	if _, err := LoadFiles(LoadConfig{Sources: []string{filepath.Join(dir, "missing.nak")}}, nil); err == nil {
		t.Fatalf("missing file must fail")
	}
}
