package system

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

func NewGenDocsCommand() *cobra.Command {
	var outDir, format string

	cmd := &cobra.Command{
		Use:   "gendocs",
		Short: "Write reference docs for the counsel CLI",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := genDocs(cmd.Root(), outDir, format); err != nil {
				return err
			}
			fmt.Printf("%s docs written to %s\n", format, outDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "outdir", "docs/cli", "Output directory")
	cmd.Flags().StringVar(&format, "format", "markdown", "Output format: markdown, man or yaml")

	return cmd
}

func genDocs(root *cobra.Command, dir, format string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	root.DisableAutoGenTag = true

	var err error
	switch format {
	case "markdown":
		err = doc.GenMarkdownTree(root, dir)
	case "man":
		err = doc.GenManTree(root, &doc.GenManHeader{Title: "COUNSEL", Section: "1"}, dir)
	case "yaml":
		err = doc.GenYamlTree(root, dir)
	default:
		return fmt.Errorf("unknown docs format %q", format)
	}
	if err != nil {
		return fmt.Errorf("generate %s docs: %w", format, err)
	}
	return nil
}
