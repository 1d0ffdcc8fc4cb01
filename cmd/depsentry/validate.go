package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cgast/depsentry/internal/config"
	"github.com/cgast/depsentry/pkg/policy"
)

func newValidateCmd(s streams) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [policy...]",
		Short: "Check policy expressions, or the config file when none are given",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				fmt.Fprintf(s.out, "configuration valid: %d policies\n", len(cfg.Policies))
				return nil
			}

			var result config.ValidationResult
			for i, text := range args {
				if err := policy.Validate(text); err != nil {
					result.Errors = append(result.Errors, config.ValidationError{
						Field:   fmt.Sprintf("policy %d (%s)", i+1, text),
						Message: err.Error(),
					})
				}
			}
			if !result.Valid() {
				return result
			}
			fmt.Fprintf(s.out, "%d policies valid\n", len(args))
			return nil
		},
	}
}
