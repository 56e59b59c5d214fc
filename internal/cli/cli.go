// Package cli implements the archifact command-line interface.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/archifact/archifact/pkg/buildinfo"
	"github.com/archifact/archifact/pkg/cache"
	"github.com/archifact/archifact/pkg/pipeline"
)

// appName is the application name used for directories and display.
const appName = "archifact"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// cache is shared across commands within one invocation so repeated
	// parses of the same template hit memory.
	cache cache.Cache
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		cache:  cache.NewMemoryCache(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Archifact patches and renders ArchiMate exchange models",
		Long:         `Archifact is a CLI tool for generating ArchiMate exchange-format documents from templates plus JSON overrides, preserving the untouched regions of the original XML, and for rendering view layouts to SVG/PNG.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.generateCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.templatesCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) *pipeline.Runner {
	if noCache {
		return pipeline.NewRunner(cache.NewNullCache(), c.Logger)
	}
	return pipeline.NewRunner(c.cache, c.Logger)
}
