package driver

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nakgo/internal/config"
	"nakgo/internal/diag"
	"nakgo/internal/frontend"
	"nakgo/internal/ir"
	"nakgo/internal/sched"
	"nakgo/internal/sph"
)

const storeTID = `.stage compute
func main {
b0:
  s2r.sr=0x21 %r1 =
  mov %r2 = 0x0
  iadd3 %r3 = %r1, 0x1, rZ
  st.global.b32.a64.weak.cta.off=0 %r[1,2], %r3
  exit
}
`

const fragment = `.sm 75
.stage fragment
.writes_color 0xf
func main {
b0:
  mov %r1 = 0x3f800000
  fs_out %r1, %r1, %r1, 0x0
  exit
}
`

// plop3 only exists from Volta on.
const unsupportedOnSM50 = `.sm 50
func main {
b0:
  plop3.lut0=0x80 %p1 = pT, pT, pT
  @%p1 bra b1
b1:
  exit
}
`

func parse(t *testing.T, src string) *ir.Shader {
	t.Helper()
	shader, err := frontend.ParseString("test.nak", src, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return shader
}

func withSM(sm string, src string) string { return ".sm " + sm + "\n" + src }

func TestCompileSM75(t *testing.T) {
	art, err := Compile(context.Background(), "tid", parse(t, withSM("75", storeTID)), Options{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(art.Code) == 0 || len(art.Code)%4 != 0 {
		t.Fatalf("code has %d words, want a non-zero multiple of 4", len(art.Code))
	}
	if len(art.Header) != sph.Size(75) {
		t.Fatalf("header has %d words, want %d", len(art.Header), sph.Size(75))
	}
	if art.Stage != "compute" || art.SM != 75 || art.NumGPRs == 0 {
		t.Fatalf("unexpected artifact %+v", art)
	}
}

func TestCompileSM50(t *testing.T) {
	art, err := Compile(context.Background(), "tid", parse(t, withSM("50", storeTID)), Options{Mode: sched.ModeSerial})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	// Maxwell code is made of 32-byte groups of three instructions.
	if len(art.Code) == 0 || len(art.Code)%8 != 0 {
		t.Fatalf("code has %d words, want a non-zero multiple of 8", len(art.Code))
	}
	if len(art.Header) != sph.Size(50) {
		t.Fatalf("header has %d words, want %d", len(art.Header), sph.Size(50))
	}
}

func TestCompileFragmentOutputs(t *testing.T) {
	art, err := Compile(context.Background(), "frag", parse(t, fragment), Options{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if art.NumGPRs < 4 {
		t.Fatalf("NumGPRs = %d, outputs need r0..r3", art.NumGPRs)
	}
	if art.Header[0]&0x1f != 2 {
		t.Fatalf("header type %#x is not a fragment header", art.Header[0]&0x1f)
	}
}

func TestCompileDumpAndStop(t *testing.T) {
	var dump bytes.Buffer
	art, err := Compile(context.Background(), "tid", parse(t, withSM("75", storeTID)), Options{
		Dump: &dump,
		Stop: "assign-regs",
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if art.Code != nil || art.Header != nil {
		t.Fatalf("stopped pipeline produced code")
	}
	out := dump.String()
	for _, want := range []string{"// after validate-ssa", "// after legalize", "// after assign-regs"} {
		if !strings.Contains(out, want) {
			t.Errorf("dump is missing %q", want)
		}
	}
	if strings.Contains(out, "// after calc-deps") {
		t.Errorf("pipeline ran past the stop pass")
	}
}

func TestCompileUnknownStop(t *testing.T) {
	_, err := Compile(context.Background(), "tid", parse(t, withSM("75", storeTID)), Options{Stop: "nope"})
	if err == nil || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("expected unknown pass error, got %v", err)
	}
}

func TestCompileRecoversPanics(t *testing.T) {
	art, err := Compile(context.Background(), "old", parse(t, unsupportedOnSM50), Options{})
	if err == nil || !strings.Contains(err.Error(), "internal compiler error") {
		t.Fatalf("expected internal compiler error, got %v", err)
	}
	if art != nil {
		t.Fatalf("artifact returned with error")
	}
}

func TestCompileReportsValidation(t *testing.T) {
	var buf bytes.Buffer
	reporter := diag.NewReporter(&buf, "text")
	_, err := Compile(context.Background(), "bad", parse(t, withSM("75", `func main {
b0:
  iadd3 %r2 = %r1, %r1, rZ
  exit
}`)), Options{Reporter: reporter})
	if err == nil {
		t.Fatalf("expected validation failure")
	}
	if !reporter.HasErrors() || !strings.Contains(buf.String(), "never defined") {
		t.Fatalf("diagnostics = %q", buf.String())
	}
}

func TestPipelineNames(t *testing.T) {
	m, _ := Pipeline(sched.ModeDefault, nil)
	want := []string{
		"validate-ssa", "copy-prop", "dce", "legalize", "validate-legal",
		"assign-regs", "lower-par-copies", "lower-copy-swap", "validate-regs",
		"calc-deps", "encode",
	}
	if diff := cmp.Diff(want, m.Names()); diff != "" {
		t.Fatalf("pipeline (-want +got):\n%s", diff)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	c, err := OpenCache(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	art := &Artifact{Name: "a", SM: 75, Stage: "compute", NumGPRs: 3, Code: []uint32{1, 2, 3, 4}, Header: make([]uint32, 32)}
	key := CacheKey([]byte("src"), 75, sched.ModeDefault)

	if _, ok, err := c.Get(key); ok || err != nil {
		t.Fatalf("empty cache hit: %v %v", ok, err)
	}
	if err := c.Put(key, art); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := c.Get(key)
	if err != nil || !ok {
		t.Fatalf("get: %v %v", ok, err)
	}
	if diff := cmp.Diff(art, got); diff != "" {
		t.Fatalf("artifact (-want +got):\n%s", diff)
	}
}

func TestCacheKeyInputs(t *testing.T) {
	base := CacheKey([]byte("src"), 75, sched.ModeDefault)
	for name, k := range map[string]Key{
		"source": CacheKey([]byte("src2"), 75, sched.ModeDefault),
		"sm":     CacheKey([]byte("src"), 70, sched.ModeDefault),
		"mode":   CacheKey([]byte("src"), 75, sched.ModeSerial),
	} {
		if k == base {
			t.Errorf("changing the %s does not change the key", name)
		}
	}
	if CacheKey([]byte("src"), 75, sched.ModeDefault) != base {
		t.Errorf("key is not deterministic")
	}
}

func TestNilCache(t *testing.T) {
	var c *Cache
	key := CacheKey(nil, 75, sched.ModeDefault)
	if err := c.Put(key, &Artifact{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok, err := c.Get(key); ok || err != nil {
		t.Fatalf("nil cache hit: %v %v", ok, err)
	}
}

func units(t *testing.T, srcs map[string]string, order []string) []*frontend.Unit {
	t.Helper()
	var out []*frontend.Unit
	for _, name := range order {
		src := srcs[name]
		out = append(out, &frontend.Unit{
			Path:   name + ".nak",
			Name:   name,
			Source: []byte(src),
			Shader: parse(t, src),
		})
	}
	return out
}

func TestCompileAll(t *testing.T) {
	srcs := map[string]string{
		"a":   withSM("75", storeTID),
		"bad": unsupportedOnSM50,
		"b":   withSM("50", storeTID),
		"c":   fragment,
	}
	order := []string{"a", "bad", "b", "c"}

	cache, err := OpenCache(t.TempDir())
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	var diags bytes.Buffer
	cfg := config.Default()
	cfg.Jobs = 3
	b := &Batch{Config: cfg, Cache: cache, Reporter: diag.NewReporter(&diags, "text")}

	results, err := b.CompileAll(context.Background(), units(t, srcs, order))
	if err != nil {
		t.Fatalf("compile all: %v", err)
	}
	var names []string
	for _, r := range results {
		names = append(names, r.Name)
		if (r.Err != nil) != (r.Name == "bad") {
			t.Errorf("%s: err = %v", r.Name, r.Err)
		}
		if r.Cached {
			t.Errorf("%s: cached on the first run", r.Name)
		}
	}
	if diff := cmp.Diff(order, names); diff != "" {
		t.Fatalf("result order (-want +got):\n%s", diff)
	}
	if !strings.Contains(diags.String(), "internal compiler error") {
		t.Fatalf("failure was not reported: %q", diags.String())
	}

	again, err := b.CompileAll(context.Background(), units(t, srcs, order))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	for i, r := range again {
		if r.Name == "bad" {
			continue
		}
		if !r.Cached {
			t.Errorf("%s: not served from the cache", r.Name)
		}
		if diff := cmp.Diff(results[i].Artifact, r.Artifact); diff != "" {
			t.Errorf("%s: cached artifact differs (-fresh +cached):\n%s", r.Name, diff)
		}
	}
}

func TestCompileAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := &Batch{Config: config.Default()}
	_, err := b.CompileAll(ctx, units(t, map[string]string{"a": withSM("75", storeTID)}, []string{"a"}))
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
}
