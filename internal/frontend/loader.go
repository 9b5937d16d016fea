package frontend

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"nakgo/internal/diag"
	"nakgo/internal/ir"
)

// LoadConfig lists the text IR files to load.
type LoadConfig struct {
	Sources []string
	// DefaultSM applies to files without an .sm directive.
	DefaultSM uint8
}

// Unit is one loaded shader and the text it came from.
type Unit struct {
	Path   string
	Name   string
	Source []byte
	Shader *ir.Shader
}

// LoadFiles reads and parses every source. Parse errors are reported through
// reporter; the returned error summarizes them.
func LoadFiles(cfg LoadConfig, reporter *diag.Reporter) ([]*Unit, error) {
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("no source files were provided")
	}
	units := make([]*Unit, 0, len(cfg.Sources))
	var failed []string
	for _, path := range cfg.Sources {
		src, err := os.ReadFile(path)
		if err != nil {
			reporter.Errorf("%v", err)
			failed = append(failed, path)
			continue
		}
		shader, err := Parse(path, src, reporter)
		if err != nil {
			failed = append(failed, path)
			continue
		}
		if shader.Info.SM == 0 {
			shader.Info.SM = cfg.DefaultSM
		}
		units = append(units, &Unit{
			Path:   path,
			Name:   unitName(path),
			Source: src,
			Shader: shader,
		})
	}
	if len(failed) > 0 {
		return units, fmt.Errorf("failed to load %s", strings.Join(failed, ", "))
	}
	return units, nil
}

func unitName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
