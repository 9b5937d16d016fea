package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nakgo/internal/backend"
)

const computeShader = `.sm 75
.stage compute
func main {
b0:
  s2r.sr=0x21 %r1 =
  mov %r2 = 0x0
  iadd3 %r3 = %r1, 0x1, rZ
  st.global.b32.a64.weak.cta.off=0 %r[1,2], %r3
  exit
}
`

const vertexShader = `.stage vertex
func main {
b0:
  exit
}
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("NAKGO_CACHE_DIR", t.TempDir())
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestCompileHexToStdout(t *testing.T) {
	src := writeFile(t, t.TempDir(), "tid.nak", computeShader)
	out, _, err := runCLI(t, "compile", "--emit", "hex", src)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if !strings.Contains(out, "// tid: sm_75 compute") || !strings.Contains(out, "/*0000*/") {
		t.Fatalf("unexpected listing:\n%s", out)
	}
}

func TestCompileBinaryNextToInput(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "vs.nak", vertexShader)
	_, stderr, err := runCLI(t, "compile", "--sm", "70", src)
	if err != nil {
		t.Fatalf("compile failed: %v\n%s", err, stderr)
	}
	code, err := os.ReadFile(filepath.Join(dir, "vs.bin"))
	if err != nil {
		t.Fatalf("read code: %v", err)
	}
	if len(code) == 0 || len(code)%16 != 0 {
		t.Fatalf("code is %d bytes", len(code))
	}
	hdr, err := os.ReadFile(filepath.Join(dir, "vs.sph"))
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if len(hdr) != 4*20 {
		t.Fatalf("sm_70 header is %d bytes, want 80", len(hdr))
	}
}

func TestCompileSeveralIntoDirectory(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.nak", computeShader)
	b := writeFile(t, dir, "b.nak", vertexShader)
	outDir := filepath.Join(dir, "out")
	if _, stderr, err := runCLI(t, "compile", "--emit", "msgpack", "--jobs", "2", "-o", outDir, a, b); err != nil {
		t.Fatalf("compile failed: %v\n%s", err, stderr)
	}
	for _, name := range []string{"a.mp", "b.mp"} {
		art, err := backend.ReadMsgpack(filepath.Join(outDir, name))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(art.Code) == 0 {
			t.Fatalf("%s: no code", name)
		}
	}
}

func TestCompileReportsFailures(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.nak", computeShader)
	bad := writeFile(t, dir, "bad.nak", `.sm 75
func main {
b0:
  iadd3 %r2 = %r1, %r1, rZ
  exit
}
`)
	_, stderr, err := runCLI(t, "compile", "--no-cache", good, bad)
	if err == nil || !strings.Contains(err.Error(), "1 of 2 shaders failed") {
		t.Fatalf("expected failure summary, got %v", err)
	}
	if !strings.Contains(stderr, "never defined") {
		t.Fatalf("missing diagnostic:\n%s", stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, "good.bin")); err != nil {
		t.Fatalf("good shader was not written: %v", err)
	}
}

func TestCompileRejectsBadFlags(t *testing.T) {
	src := writeFile(t, t.TempDir(), "tid.nak", computeShader)
	if _, _, err := runCLI(t, "compile", "--emit", "elf", src); err == nil || !strings.Contains(err.Error(), "emit format") {
		t.Fatalf("expected emit error, got %v", err)
	}
	if _, _, err := runCLI(t, "compile", "--diag-format", "xml", src); err == nil {
		t.Fatalf("expected diag format error")
	}
	if _, _, err := runCLI(t, "compile"); err == nil {
		t.Fatalf("expected missing input error")
	}
}

func TestCompileEmitIR(t *testing.T) {
	src := writeFile(t, t.TempDir(), "tid.nak", computeShader)
	out, _, err := runCLI(t, "compile", "--emit", "ir", src)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if !strings.Contains(out, "// tid") || !strings.Contains(out, "exit") || strings.Contains(out, "%r") {
		t.Fatalf("unexpected IR:\n%s", out)
	}
}

func TestDumpList(t *testing.T) {
	out, _, err := runCLI(t, "dump", "--list")
	if err != nil {
		t.Fatalf("dump failed: %v", err)
	}
	lines := strings.Fields(out)
	if len(lines) == 0 || lines[0] != "validate-ssa" || lines[len(lines)-1] != "encode" {
		t.Fatalf("unexpected pass list: %v", lines)
	}
}

func TestDumpAfterLegalize(t *testing.T) {
	src := writeFile(t, t.TempDir(), "tid.nak", computeShader)
	out, _, err := runCLI(t, "dump", "--after", "legalize", src)
	if err != nil {
		t.Fatalf("dump failed: %v", err)
	}
	// Registers are not assigned yet.
	if !strings.Contains(out, "%r") {
		t.Fatalf("expected SSA values:\n%s", out)
	}
	if _, _, err := runCLI(t, "dump", "--after", "nope", src); err == nil {
		t.Fatalf("expected unknown pass error")
	}
}

func TestHeader(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "vs.nak", vertexShader)
	out, _, err := runCLI(t, "header", src)
	if err != nil {
		t.Fatalf("header failed: %v", err)
	}
	if !strings.Contains(out, "vs: vertex shader, sm_75, 32 words") {
		t.Fatalf("unexpected header summary:\n%s", out)
	}
	if strings.Count(out, "0x") != 32 {
		t.Fatalf("expected 32 words:\n%s", out)
	}

	mp := filepath.Join(dir, "vs.mp")
	if _, _, err := runCLI(t, "compile", "--emit", "msgpack", "-o", mp, src); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	fromArtifact, _, err := runCLI(t, "header", mp)
	if err != nil {
		t.Fatalf("header from artifact failed: %v", err)
	}
	if fromArtifact != out {
		t.Fatalf("artifact header differs:\n%s\nvs\n%s", fromArtifact, out)
	}
}
