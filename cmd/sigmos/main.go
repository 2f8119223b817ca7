// Command sigmos is the primary SIGMOS CLI: parse, validate, run,
// transpile, describe, and gen-docs subcommands over .sigmos spec
// files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sigmos",
		Short: "Parse, validate, run, and transpile SIGMOS specifications",
	}
	root.AddCommand(
		newParseCmd(),
		newValidateCmd(),
		newRunCmd(),
		newTranspileCmd(),
		newDescribeCmd(),
		newGenDocsCmd(),
	)
	return root
}
