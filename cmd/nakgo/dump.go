package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"nakgo/internal/driver"
	"nakgo/internal/ir"
)

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump [flags] file",
		Short: "Print the IR of a shader after a pipeline pass",
		Args:  cobra.MaximumNArgs(1),
		RunE:  dumpExecution,
	}
	addTargetFlags(cmd)
	cmd.Flags().String("after", "calc-deps", "pass to stop after")
	cmd.Flags().Bool("list", false, "list the pipeline passes and exit")
	cmd.Flags().StringP("output", "o", "", "output file (stdout when omitted)")
	return cmd
}

func dumpExecution(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	list, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if list {
		m, _ := driver.Pipeline(cfg.SchedMode(), nil)
		for _, name := range m.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	}
	if len(args) != 1 {
		return fmt.Errorf("dump requires one input file")
	}
	after, err := cmd.Flags().GetString("after")
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
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

	u := units[0]
	_, err = driver.Compile(cmd.Context(), u.Name, u.Shader, driver.Options{
		Mode:     cfg.SchedMode(),
		Stop:     after,
		Reporter: reporter,
	})
	if err != nil {
		return err
	}
	return withOutputWriter(cmd.OutOrStdout(), output, func(w io.Writer) error {
		ir.Dump(u.Shader, w)
		return nil
	})
}
