package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gaarutyunov/sigmos/pkg/transpile"
)

func newTranspileCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "transpile <file>",
		Short: "Render a spec as a portable JSON or YAML document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := loadSpec(args[0])
			if err != nil {
				return err
			}
			doc := transpile.Build(spec)
			out, err := transpile.Encode(doc, transpile.Format(format))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	return cmd
}
