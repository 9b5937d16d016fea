package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nakgo/internal/sched"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	t.Setenv(EnvDebug, "")
	path := writeConfig(t, `
sm = 50
schedule = "serial"
jobs = 3
cache_dir = "/tmp/nak"
emit = "hex"

[debug]
print = true
`)
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Config{
		SM:       50,
		Schedule: "serial",
		Jobs:     3,
		CacheDir: "/tmp/nak",
		Emit:     "hex",
		Debug:    Debug{Print: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("config (-want +got):\n%s", diff)
	}
	if got.SchedMode() != sched.ModeSerial {
		t.Fatalf("mode = %s", got.SchedMode())
	}
}

func TestUnknownKey(t *testing.T) {
	path := writeConfig(t, "sm = 75\nshedule = \"serial\"\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "shedule") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvSM, "70")
	t.Setenv(EnvJobs, "2")
	t.Setenv(EnvDebug, "print, serial")
	got, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.SM != 70 || got.Jobs != 2 {
		t.Fatalf("sm=%d jobs=%d", got.SM, got.Jobs)
	}
	if !got.Debug.Print || !got.Debug.Serial {
		t.Fatalf("debug flags not applied: %+v", got.Debug)
	}
	if got.SchedMode() != sched.ModeSerial {
		t.Fatalf("serial debug flag ignored")
	}
}

func TestParseDebug(t *testing.T) {
	if _, err := ParseDebug("print,trace"); err == nil {
		t.Fatalf("expected error for unknown flag")
	}
	d, err := ParseDebug("serial,")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff(Debug{Serial: true}, d); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"old sm", func(c *Config) { c.SM = 35 }, "sm 35"},
		{"schedule", func(c *Config) { c.Schedule = "fast" }, "schedule mode"},
		{"jobs", func(c *Config) { c.Jobs = 0 }, "jobs"},
		{"emit", func(c *Config) { c.Emit = "elf" }, "emit format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}
