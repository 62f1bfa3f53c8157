package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jyasuu/jcheck/pkg/rule"
)

// NewSchemaCmd creates the schema subcommand, which prints the embedded
// rule-set JSON schema for editor integration.
func NewSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema for rules files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(rule.SchemaJSON())
			if err != nil {
				return fmt.Errorf("write schema: %w", err)
			}

			return nil
		},
	}
}
