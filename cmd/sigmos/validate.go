package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Parse a spec and confirm every declared extension resolves to a known plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := loadSpec(args[0])
			if err != nil {
				return err
			}
			_, unresolved := buildRegistry(context.Background(), spec)
			if len(unresolved) > 0 {
				return fmt.Errorf("unresolved extension alias(es): %v", unresolved)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "valid: %s\n", spec.Name)
			return nil
		},
	}
}
