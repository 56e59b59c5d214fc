package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archifact/archifact/pkg/xsd"
)

// validateCommand creates the validate command checking an exchange document
// against the official ArchiMate schema set.
func (c *CLI) validateCommand() *cobra.Command {
	var schemas string

	cmd := &cobra.Command{
		Use:   "validate [document]",
		Short: "Validate an exchange document against the ArchiMate XSD set",
		Long: `Validate checks an ArchiMate exchange-format document against the official
schema set, fully offline: the schemas' remote imports are rewritten to local
copies and a minimal xml.xsd is synthesized next to them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if schemas == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				schemas = cfg.SchemaDir
			}
			if schemas == "" {
				return fmt.Errorf("no schema directory: pass --schemas or set schema_dir in the config")
			}

			ok, violations, err := xsd.Validate(args[0], schemas)
			if err != nil {
				return err
			}
			if ok {
				printSuccess("%s is schema-valid", args[0])
				return nil
			}

			printError("%s violates the schema (%d findings)", args[0], len(violations))
			for _, v := range violations {
				printDetail("%s", v)
			}
			return fmt.Errorf("validation failed")
		},
	}

	cmd.Flags().StringVar(&schemas, "schemas", "", "ArchiMate XSD directory")
	return cmd
}
