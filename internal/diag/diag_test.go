package diag

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestTextReporter(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	r := NewReporter(&buf, "text")
	r.Warn(Pos{File: "a.nak", Line: 3}, "unused value")
	if r.HasErrors() {
		t.Fatalf("warnings must not count as errors")
	}
	r.Errorf("bad %s", "thing")
	if !r.HasErrors() || r.ErrorCount() != 1 {
		t.Fatalf("expected one error")
	}
	want := "a.nak:3: warning: unused value\nerror: bad thing\n"
	if buf.String() != want {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestJSONReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, "json")
	r.Error(Pos{File: "b.nak", Line: 7}, "parse failure")
	out := buf.String()
	if !strings.Contains(out, `"severity":"error"`) || !strings.Contains(out, `"line":7`) {
		t.Fatalf("unexpected json %q", out)
	}
	if len(r.Diagnostics()) != 1 {
		t.Fatalf("diagnostic not recorded")
	}
}

func TestNilReporterIsQuiet(t *testing.T) {
	var r *Reporter
	r.Errorf("ignored")
	if r.HasErrors() {
		t.Fatalf("nil reporter has no errors")
	}
}
