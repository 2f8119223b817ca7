package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gaarutyunov/sigmos/pkg/visitors"
)

func newDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <file>",
		Short: "Print an indented tree of a parsed spec",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := loadSpec(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), visitors.NewDebugPrinter().PrintSpec(spec))
			return nil
		},
	}
}
