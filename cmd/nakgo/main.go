package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/nikandfor/tlog"
	"github.com/spf13/cobra"

	"nakgo/internal/config"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "nakgo",
		Short:         "Shader compiler backend for NVIDIA GPUs",
		Long:          "nakgo compiles text IR shaders to Maxwell (sm_50) through Turing (sm_75) machine code.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupTracing(cmd, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().Bool("trace", false, "log pipeline spans to stderr")
	root.PersistentFlags().String("config", "", "config file (default ./"+config.FileName+" when present)")
	root.PersistentFlags().String("diag-format", "text", "diagnostic output format (text|json)")

	root.AddCommand(newCompileCmd(), newDumpCmd(), newHeaderCmd())
	return root
}

// setupTracing attaches a console logger to the command context when
// --trace is given. Without it spans are no-ops.
func setupTracing(cmd *cobra.Command, stderr io.Writer) error {
	on, err := cmd.Flags().GetBool("trace")
	if err != nil {
		return fmt.Errorf("failed to get trace flag: %w", err)
	}
	if !on {
		return nil
	}
	l := tlog.New(tlog.NewConsoleWriter(stderr, tlog.LstdFlags))
	cmd.SetContext(tlog.ContextWithSpan(cmd.Context(), tlog.Span{Logger: l}))
	return nil
}

func withOutputWriter(stdout io.Writer, path string, fn func(io.Writer) error) error {
	w, cleanup, err := outputWriter(stdout, path)
	if err != nil {
		return err
	}
	if cleanup == nil {
		return fn(w)
	}
	err = fn(w)
	if closeErr := cleanup(); err == nil && closeErr != nil {
		err = closeErr
	}
	return err
}

func outputWriter(stdout io.Writer, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, nil, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
