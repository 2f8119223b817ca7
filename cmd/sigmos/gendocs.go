package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cpuguy83/go-md2man/v2/md2man"
	"github.com/russross/blackfriday/v2"
	"github.com/spf13/cobra"
)

func newGenDocsCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "gen-docs",
		Short: "Render a man page for the sigmos CLI",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", outDir, err)
			}
			roff := renderManPage(cmd.Root())
			path := filepath.Join(outDir, "sigmos.1")
			if err := os.WriteFile(path, roff, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "man", "output directory for generated man pages")
	return cmd
}

// renderManPage builds a minimal man page from the command tree,
// parsed with blackfriday and rendered to roff with md2man's renderer
// — the same two-library pairing md2man itself documents (blackfriday
// parses, md2man.RoffRenderer renders).
func renderManPage(root *cobra.Command) []byte {
	md := "# " + root.Use + " 1\n\n## NAME\n\n" + root.Use + " - " + root.Short + "\n\n## SUBCOMMANDS\n\n"
	for _, sub := range root.Commands() {
		md += "### " + sub.Use + "\n\n" + sub.Short + "\n\n"
	}

	renderer := md2man.NewRoffRenderer()
	return blackfriday.Run(
		[]byte(md),
		blackfriday.WithRenderer(renderer),
		blackfriday.WithExtensions(renderer.GetExtensions(blackfriday.CommonExtensions)),
	)
}
