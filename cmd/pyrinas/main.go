// ==============================================================================================
// FILE: cmd/pyrinas/main.go
// PURPOSE: CLI entry point. A cobra root command handles flag parsing and the single
//          positional input; fatal diagnostics go to stderr through fatih/color, which
//          auto-disables color on non-tty output.
// ==============================================================================================

package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pyrinas/internal/driver"
)

var (
	outputPath string
	ccPath     string

	// compileRan distinguishes pipeline failures (already reported with the
	// Error: prefix) from flag/argument mistakes, which get the usage text.
	compileRan bool
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !compileRan {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprint(os.Stderr, cmd.UsageString())
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pyrinas INPUT",
		Short: "Compile a pyrinas source file to a native executable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(args[0])
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "a.out", "path to the compiled executable")
	cmd.Flags().StringVar(&ccPath, "cc", "", "host C compiler to invoke (defaults to $CC or cc)")

	cmd.AddCommand(newCompileCommand())
	return cmd
}

// newCompileCommand lets "pyrinas compile INPUT" be spelled explicitly; the
// root command runs the same path for "pyrinas INPUT" with no subcommand.
func newCompileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile INPUT",
		Short: "Compile a pyrinas source file to a native executable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(args[0])
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "a.out", "path to the compiled executable")
	cmd.Flags().StringVar(&ccPath, "cc", "", "host C compiler to invoke (defaults to $CC or cc)")
	return cmd
}

func runCompile(input string) error {
	compileRan = true
	_, err := driver.Compile(driver.Options{
		Input:  input,
		Output: outputPath,
		CC:     ccPath,
	})
	if err != nil {
		errColor := color.New(color.FgRed)
		errColor.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	return nil
}
