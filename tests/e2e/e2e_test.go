package e2e

import (
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
)

var repoRoot = filepath.Clean(filepath.Join("..", ".."))

// nakgo runs the CLI from the repository root and returns its stdout.
func nakgo(t *testing.T, args ...string) string {
	t.Helper()
	cmd := exec.Command("go", append([]string{"run", "./cmd/nakgo"}, args...)...)
	cmd.Dir = repoRoot
	cmd.Env = append(os.Environ(), "NAKGO_CACHE_DIR="+t.TempDir())
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("nakgo %s failed: %v\n%s", strings.Join(args, " "), err, stderr.String())
	}
	return string(out)
}

func source(name string) string {
	return filepath.Join("tests", "e2e", name, "main.nak")
}

// instrLines returns the instructions of an IR dump. Only instructions are
// indented.
func instrLines(dump string) []string {
	var out []string
	for _, line := range strings.Split(dump, "\n") {
		if strings.HasPrefix(line, "  ") {
			out = append(out, strings.TrimSpace(line))
		}
	}
	return out
}

var (
	wrRE   = regexp.MustCompile(`\bwr=(\d+)`)
	rdRE   = regexp.MustCompile(`\brd=(\d+)`)
	waitRE = regexp.MustCompile(`\bwait=0x([0-9a-f]+)`)
)

func barrier(t *testing.T, re *regexp.Regexp, line string) (uint64, bool) {
	t.Helper()
	m := re.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	base := 10
	if re == waitRE {
		base = 16
	}
	v, err := strconv.ParseUint(m[1], base, 8)
	if err != nil {
		t.Fatalf("bad barrier in %q: %v", line, err)
	}
	return v, true
}

func TestFixedLatencyNeedsNoBarriers(t *testing.T) {
	lines := instrLines(nakgo(t, "compile", "--no-cache", "--emit", "ir", source("fixed_latency")))
	if len(lines) == 0 || !strings.HasPrefix(lines[len(lines)-1], "exit") {
		t.Fatalf("unexpected program:\n%s", strings.Join(lines, "\n"))
	}
	for _, line := range lines {
		for _, re := range []*regexp.Regexp{wrRE, rdRE, waitRE} {
			if _, ok := barrier(t, re, line); ok {
				t.Errorf("fixed-latency instruction uses a barrier: %s", line)
			}
		}
	}
}

func TestConsumerWaitsOnLoad(t *testing.T) {
	lines := instrLines(nakgo(t, "compile", "--no-cache", "--emit", "ir", source("load_consumer")))
	ld, add := -1, -1
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "ld."):
			ld = i
		case strings.HasPrefix(line, "iadd3") && ld >= 0 && add < 0:
			add = i
		}
	}
	if ld < 0 || add < 0 {
		t.Fatalf("load or consumer missing:\n%s", strings.Join(lines, "\n"))
	}
	wr, ok := barrier(t, wrRE, lines[ld])
	if !ok {
		t.Fatalf("load sets no write barrier: %s", lines[ld])
	}
	wait, _ := barrier(t, waitRE, lines[add])
	if wait&(1<<wr) == 0 {
		t.Fatalf("consumer %q does not wait on barrier %d", lines[add], wr)
	}
}

func TestProgramsCompile(t *testing.T) {
	testcases := []struct {
		name string
		args []string
	}{
		{name: "fixed_latency"},
		{name: "load_consumer"},
		{name: "load_consumer", args: []string{"--serial"}},
		// phi_loop has no .sm directive.
		{name: "phi_loop", args: []string{"--sm", "50"}},
		{name: "phi_loop", args: []string{"--sm", "75"}},
	}
	for _, tc := range testcases {
		t.Run(tc.name+strings.Join(tc.args, ""), func(t *testing.T) {
			t.Parallel()
			out := filepath.Join(t.TempDir(), tc.name+".bin")
			args := append([]string{"compile", "--no-cache", "-o", out}, tc.args...)
			nakgo(t, append(args, source(tc.name))...)
			data, err := os.ReadFile(out)
			if err != nil {
				t.Fatalf("read output: %v", err)
			}
			if len(data) == 0 || len(data)%16 != 0 {
				t.Fatalf("code is %d bytes", len(data))
			}
			if _, err := os.Stat(strings.TrimSuffix(out, ".bin") + ".sph"); err != nil {
				t.Fatalf("header missing: %v", err)
			}
		})
	}
}
