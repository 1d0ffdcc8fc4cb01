package main

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cgast/depsentry/internal/config"
)

//go:embed depsentry.example.yml
var configTemplate []byte

// newInitCmd implements `depsentry init [--output=path]`.
func newInitCmd(s streams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter " + config.DefaultFile,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			outputPath, _ := cmd.Flags().GetString("output")
			if err := scaffoldConfig(outputPath); err != nil {
				return err
			}
			fmt.Fprintf(s.out, "Created %s\n", outputPath)
			fmt.Fprintln(s.out, "Edit the policies section, then run:")
			fmt.Fprintln(s.out, "  depsentry scan")
			return nil
		},
	}
	cmd.Flags().String("output", config.DefaultFile, "where to write the config")
	return cmd
}

// scaffoldConfig writes the starter config, refusing to overwrite.
func scaffoldConfig(outputPath string) error {
	if _, err := os.Stat(outputPath); err == nil {
		return fmt.Errorf("file %q already exists (use --output to specify a different path)", outputPath)
	}

	dir := filepath.Dir(outputPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, configTemplate, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
