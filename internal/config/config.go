// Package config resolves compiler settings from a TOML file and the
// environment. Command-line flags are applied last by the caller.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/xyproto/env/v2"

	"nakgo/internal/sched"
)

// FileName is the config file looked up in the working directory.
const FileName = "nakgo.toml"

// Environment variables read by ApplyEnv.
const (
	EnvSM       = "NAKGO_SM"
	EnvJobs     = "NAKGO_JOBS"
	EnvCacheDir = "NAKGO_CACHE_DIR"
	EnvDebug    = "NAKGO_DEBUG"
)

// Config holds every setting the driver and CLI consume.
type Config struct {
	SM       uint8  `toml:"sm"`
	Schedule string `toml:"schedule"`
	Jobs     int    `toml:"jobs"`
	CacheDir string `toml:"cache_dir"`
	Emit     string `toml:"emit"`
	Debug    Debug  `toml:"debug"`
}

// Debug toggles diagnostic behaviour of the pipeline.
type Debug struct {
	// Print dumps the IR after every pass.
	Print bool `toml:"print"`
	// Serial replaces dependency tracking with fully serial scheduling.
	Serial bool `toml:"serial"`
}

var emitFormats = []string{"bin", "hex", "msgpack", "ir"}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		SM:       75,
		Schedule: sched.ModeDefault.String(),
		Jobs:     runtime.NumCPU(),
		Emit:     "bin",
	}
}

// Load starts from Default, decodes path over it when path is not empty,
// then applies the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return cfg, fmt.Errorf("config: %s: %w", path, err)
		}
		if undec := md.Undecoded(); len(undec) > 0 {
			keys := make([]string, len(undec))
			for i, k := range undec {
				keys[i] = k.String()
			}
			return cfg, fmt.Errorf("config: %s: unknown keys %s", path, strings.Join(keys, ", "))
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from NAKGO_* variables. NAKGO_DEBUG is a comma
// separated list of debug flags.
func (c *Config) ApplyEnv() error {
	if env.Has(EnvSM) {
		sm := env.Int(EnvSM, int(c.SM))
		if sm <= 0 || sm > 0xff {
			return fmt.Errorf("config: %s=%d out of range", EnvSM, sm)
		}
		c.SM = uint8(sm)
	}
	c.Jobs = env.Int(EnvJobs, c.Jobs)
	c.CacheDir = env.Str(EnvCacheDir, c.CacheDir)
	if flags := env.Str(EnvDebug); flags != "" {
		d, err := ParseDebug(flags)
		if err != nil {
			return err
		}
		c.Debug.Print = c.Debug.Print || d.Print
		c.Debug.Serial = c.Debug.Serial || d.Serial
	}
	return nil
}

// ParseDebug parses a comma separated flag list such as "print,serial".
func ParseDebug(s string) (Debug, error) {
	var d Debug
	for _, f := range strings.Split(s, ",") {
		switch strings.TrimSpace(f) {
		case "":
		case "print":
			d.Print = true
		case "serial":
			d.Serial = true
		default:
			return d, fmt.Errorf("config: unknown debug flag %q", f)
		}
	}
	return d, nil
}

// Validate rejects settings the pipeline cannot honour.
func (c Config) Validate() error {
	if c.SM < 50 {
		return fmt.Errorf("config: sm %d is not supported", c.SM)
	}
	if _, err := sched.ParseMode(c.Schedule); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Jobs < 1 {
		return fmt.Errorf("config: jobs must be positive, got %d", c.Jobs)
	}
	for _, f := range emitFormats {
		if c.Emit == f {
			return nil
		}
	}
	return fmt.Errorf("config: unknown emit format %q (want one of %s)", c.Emit, strings.Join(emitFormats, ", "))
}

// SchedMode is the scheduling strategy, with the serial debug flag taking
// precedence.
func (c Config) SchedMode() sched.Mode {
	if c.Debug.Serial {
		return sched.ModeSerial
	}
	m, err := sched.ParseMode(c.Schedule)
	if err != nil {
		return sched.ModeDefault
	}
	return m
}
