package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/archifact/archifact/pkg/templates"
)

// templatesCommand creates the templates command group for inspecting a
// templates directory.
func (c *CLI) templatesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List and describe ArchiMate templates",
	}
	cmd.AddCommand(c.templatesListCommand())
	cmd.AddCommand(c.templatesDescribeCommand())
	return cmd
}

func (c *CLI) templatesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [dir]",
		Short: "List templates in a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			dir := cfg.TemplatesDir
			if len(args) == 1 {
				dir = args[0]
			}

			infos, err := templates.List(dir, c.Logger)
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				printInfo("No templates found in %s", dir)
				return nil
			}

			for _, info := range infos {
				printSuccess("%s", StyleTitle.Render(displayName(info)))
				printDetail("%s", info.Path)
				printStats(info.Elements, info.Relationships, len(info.Views), false)
			}
			return nil
		},
	}
}

func (c *CLI) templatesDescribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe [template]",
		Short: "Show a template's model and view inventory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := templates.Describe(args[0])
			if err != nil {
				return err
			}

			printKeyValue("template", info.Path)
			printKeyValue("identifier", info.Identifier)
			printKeyValue("name", info.Name)
			if info.Documentation != "" {
				printKeyValue("docs", info.Documentation)
			}
			printKeyValue("elements", fmt.Sprintf("%d", info.Elements))
			printKeyValue("relations", fmt.Sprintf("%d", info.Relationships))

			if len(info.Views) > 0 {
				printNewline()
				printInfo("Views")
				for _, v := range info.Views {
					name := v.Name
					if name == "" {
						name = v.Identifier
					}
					line := fmt.Sprintf("%d. %s (%s)", v.Index+1, name, v.Identifier)
					if v.Viewpoint != "" {
						line += " viewpoint=" + v.Viewpoint
					}
					printDetail("%s", line)
				}
				printNewline()
				printNextStep("Render a view", fmt.Sprintf("%s render %s --views <id>", appName, info.Path))
			}
			return nil
		},
	}
}

// displayName picks the model name, falling back to the file stem.
func displayName(info templates.Info) string {
	if info.Name != "" {
		return info.Name
	}
	return templateStem(info.Path)
}

// templateStem strips the directory and extension from a template path.
func templateStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
