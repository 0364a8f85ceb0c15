package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and print the effective settings",
		Args:  cobra.NoArgs,
		RunE:  runValidate,
	}
	cmd.Flags().Bool("print", false, "Print the effective configuration as YAML")
	return cmd
}

func runValidate(cmd *cobra.Command, _ []string) error {
	stdout := cmd.OutOrStdout()

	cfg, path, warnings, err := loadAndValidateConfig(cmd)
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	if err != nil {
		return err
	}

	source := path
	if source == "" {
		source = "built-in defaults"
	}
	fmt.Fprintf(stdout, "OK: configuration from %s is valid\n", source)

	if show, _ := cmd.Flags().GetBool("print"); show {
		b, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encode effective config: %w", err)
		}
		fmt.Fprintf(stdout, "\n%s", b)
	}
	return nil
}
