package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"nakgo/internal/backend"
	"nakgo/internal/driver"
)

func newHeaderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "header [flags] file",
		Short: "Print the shader program header words",
		Long:  "Print the program header of a text IR shader, or of an artifact written with --emit msgpack (.mp).",
		Args:  cobra.ExactArgs(1),
		RunE:  headerExecution,
	}
	addTargetFlags(cmd)
	return cmd
}

func headerExecution(cmd *cobra.Command, args []string) error {
	art, err := headerArtifact(cmd, args[0])
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if len(art.Header) == 0 {
		fmt.Fprintf(w, "%s: no header\n", art.Name)
		return nil
	}
	fmt.Fprintf(w, "%s: %s shader, sm_%d, %d words\n", art.Name, art.Stage, art.SM, len(art.Header))
	for i, word := range art.Header {
		fmt.Fprintf(w, "%2d: 0x%08x\n", i, word)
	}
	return nil
}

func headerArtifact(cmd *cobra.Command, path string) (*driver.Artifact, error) {
	if filepath.Ext(path) == emitExt[backend.FormatMsgpack] {
		return backend.ReadMsgpack(path)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	reporter, err := newReporter(cmd)
	if err != nil {
		return nil, err
	}
	units, err := loadUnits(cfg, []string{path}, reporter)
	if err != nil {
		return nil, err
	}
	u := units[0]
	return driver.Compile(cmd.Context(), u.Name, u.Shader, driver.Options{
		Mode:     cfg.SchedMode(),
		Reporter: reporter,
	})
}
