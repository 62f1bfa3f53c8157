package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jyasuu/jcheck/pkg/rule"
)

const starterRules = `{
  "rules": [
    {
      "name": "example",
      "json_file": "config.json",
      "jsonpath": "$.database.host",
      "check": {
        "type": "non_empty"
      }
    }
  ]
}
`

const schemaFileName = "rules.schema.json"

// NewInitCmd creates the init subcommand, which writes a starter rules file
// and its JSON schema into the working directory.
func NewInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a starter " + rule.DefaultPath + " and its JSON schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := writeIfAbsent(rule.DefaultPath, []byte(starterRules))
			if err != nil {
				return err
			}

			err = writeIfAbsent(schemaFileName, rule.SchemaJSON())
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s and %s\n", rule.DefaultPath, schemaFileName)
			if err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			return nil
		},
	}
}

func writeIfAbsent(path string, data []byte) error {
	_, err := os.Stat(path)
	if err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", path)
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	err = os.WriteFile(path, data, 0o600)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}
