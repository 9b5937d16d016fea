package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"nakgo/internal/backend"
	"nakgo/internal/config"
	"nakgo/internal/diag"
	"nakgo/internal/driver"
	"nakgo/internal/frontend"
	"nakgo/internal/ir"
)

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile [flags] files...",
		Short: "Compile text IR shaders to machine code",
		Long: `Compile each input shader and write its code and program header.

Without -o, binary and msgpack output lands next to the input and hex
listings go to stdout. With several inputs, -o names a directory.`,
		Args: cobra.MinimumNArgs(1),
		RunE: compileExecution,
	}
	addTargetFlags(cmd)
	cmd.Flags().String("emit", "", "output format (bin|hex|msgpack|ir)")
	cmd.Flags().StringP("output", "o", "", "output file, or directory with several inputs")
	cmd.Flags().Int("jobs", 0, "shaders compiled in parallel")
	cmd.Flags().Bool("no-cache", false, "bypass the artifact cache")
	return cmd
}

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().Uint8("sm", 0, "target SM for inputs without an .sm directive")
	cmd.Flags().Bool("serial", false, "schedule every instruction to complete before the next")
}

// loadConfig resolves settings from the config file, the environment and
// finally the command-line flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	if path == "" {
		if _, err := os.Stat(config.FileName); err == nil {
			path = config.FileName
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("sm") {
		if cfg.SM, err = flags.GetUint8("sm"); err != nil {
			return cfg, err
		}
	}
	if flags.Changed("serial") {
		if cfg.Debug.Serial, err = flags.GetBool("serial"); err != nil {
			return cfg, err
		}
	}
	if flags.Changed("emit") {
		if cfg.Emit, err = flags.GetString("emit"); err != nil {
			return cfg, err
		}
	}
	if flags.Changed("jobs") {
		if cfg.Jobs, err = flags.GetInt("jobs"); err != nil {
			return cfg, err
		}
	}
	return cfg, cfg.Validate()
}

func newReporter(cmd *cobra.Command) (*diag.Reporter, error) {
	format, err := cmd.Flags().GetString("diag-format")
	if err != nil {
		return nil, err
	}
	if format != "text" && format != "json" {
		return nil, fmt.Errorf("unknown diagnostic format %q", format)
	}
	return diag.NewReporter(cmd.ErrOrStderr(), format), nil
}

func loadUnits(cfg config.Config, sources []string, reporter *diag.Reporter) ([]*frontend.Unit, error) {
	units, err := frontend.LoadFiles(frontend.LoadConfig{Sources: sources, DefaultSM: cfg.SM}, reporter)
	if err != nil {
		return nil, err
	}
	if reporter.HasErrors() {
		return nil, fmt.Errorf("errors reported while loading shaders")
	}
	return units, nil
}

func compileExecution(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return err
	}
	reporter, err := newReporter(cmd)
	if err != nil {
		return err
	}
	units, err := loadUnits(cfg, args, reporter)
	if err != nil {
		return err
	}

	if cfg.Emit == "ir" {
		return emitIR(cmd, cfg, units, output, reporter)
	}

	// Interleaved dumps from parallel workers are unreadable.
	if cfg.Debug.Print {
		cfg.Jobs = 1
	}
	batch := &driver.Batch{
		Config:   cfg,
		Reporter: reporter,
		Dump:     cmd.ErrOrStderr(),
	}
	if !noCache && !cfg.Debug.Print {
		batch.Cache = openCache(cfg, reporter)
	}

	results, err := batch.CompileAll(cmd.Context(), units)
	if err != nil {
		return err
	}

	failed := 0
	for i, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		path := outputPath(units[i], output, cfg.Emit, len(units))
		res, err := backend.WriteArtifact(r.Artifact, path, backend.Options{
			Format: cfg.Emit,
			Stdout: cmd.OutOrStdout(),
		})
		if err != nil {
			return err
		}
		if len(res.AuxPaths) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "header written: %s\n", strings.Join(res.AuxPaths, ", "))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d shaders failed to compile", failed, len(units))
	}
	return nil
}

func openCache(cfg config.Config, reporter *diag.Reporter) *driver.Cache {
	dir := cfg.CacheDir
	if dir == "" {
		var err error
		if dir, err = driver.DefaultCacheDir(); err != nil {
			reporter.Warnf("artifact cache disabled: %v", err)
			return nil
		}
	}
	c, err := driver.OpenCache(dir)
	if err != nil {
		reporter.Warnf("artifact cache disabled: %v", err)
		return nil
	}
	return c
}

var emitExt = map[string]string{
	backend.FormatBin:     ".bin",
	backend.FormatHex:     ".hex",
	backend.FormatMsgpack: ".mp",
}

func outputPath(u *frontend.Unit, output, format string, inputs int) string {
	ext := emitExt[format]
	switch {
	case output == "-":
		return "-"
	case output == "" && format == backend.FormatHex:
		return "-"
	case output == "":
		return strings.TrimSuffix(u.Path, filepath.Ext(u.Path)) + ext
	case inputs == 1:
		return output
	default:
		return filepath.Join(output, u.Name+ext)
	}
}

// emitIR prints every shader as it stands right before encoding.
func emitIR(cmd *cobra.Command, cfg config.Config, units []*frontend.Unit, output string, reporter *diag.Reporter) error {
	return withOutputWriter(cmd.OutOrStdout(), output, func(w io.Writer) error {
		for i, u := range units {
			if i > 0 {
				fmt.Fprintln(w)
			}
			_, err := driver.Compile(cmd.Context(), u.Name, u.Shader, driver.Options{
				Mode:     cfg.SchedMode(),
				Stop:     "calc-deps",
				Reporter: reporter,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "// %s\n", u.Name)
			ir.Dump(u.Shader, w)
		}
		return nil
	})
}
