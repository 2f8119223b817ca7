package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a spec file and report success or the first syntax error",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := loadSpec(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s v%d.%d.%d\n", spec.Name, spec.Version.Major, spec.Version.Minor, spec.Version.Patch)
			return nil
		},
	}
}
