package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/zorah/internal/config"
)

//go:embed templates/zorah.yaml
var configTemplate embed.FS

// configTemplatePath is the template's path inside configTemplate.
const configTemplatePath = "templates/zorah.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a .zorah configuration file",
		Long: `Init writes a commented .zorah configuration file to the current directory.

The file documents per-site settings:
- Cookies and extra headers sent with every request
- A per-site visit budget
- Path globs to ignore or to restrict the crawl to

Examples:
  # Create .zorah in the current directory
  zorah init

  # Write the file somewhere else
  zorah init -o ~/.config/zorah/config.yaml

  # Overwrite an existing file
  zorah init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite an existing configuration file")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile(configTemplatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Cookies in this file are session credentials.
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit it to set per-site options such as:")
	fmt.Fprintln(out, "  - Clearance cookies and extra headers")
	fmt.Fprintln(out, "  - A per-site page budget")
	fmt.Fprintln(out, "  - Path globs to ignore or follow")
	return nil
}
