package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/archifact/archifact/pkg/pipeline"
)

// generateOpts holds the command-line flags for the generate command.
type generateOpts struct {
	data      string  // override JSON file path, or "-" for stdin
	outputDir string  // artifact directory
	name      string  // output filename stem
	views     string  // comma-separated view filter
	schemas   string  // XSD directory, empty skips validation
	noRender  bool    // suppress view rendering
	overview  bool    // additionally render the element/relationship graph
	png       bool    // rasterize SVGs when a backend is present
	scale     float64 // raster resolution multiplier
	margin    float64 // view canvas margin
	refresh   bool    // bypass the blueprint cache
	noCache   bool    // disable caching entirely
}

// generateCommand creates the generate command running the full pipeline.
func (c *CLI) generateCommand() *cobra.Command {
	var opts generateOpts

	cmd := &cobra.Command{
		Use:   "generate [template]",
		Short: "Generate a patched exchange document from a template plus overrides",
		Long: `Generate parses an ArchiMate exchange-format template, consolidates the
override document onto it, patches a copy of the original XML tree (never
rebuilding it), optionally validates the result against the official schema
set, and renders the selected views to SVG/PNG.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			applyConfig(&opts, cfg)
			return c.runGenerate(cmd, args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.data, "data", "d", "", "override JSON file ('-' reads stdin)")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "output directory")
	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "output filename stem (default: template stem)")
	cmd.Flags().StringVar(&opts.views, "views", "", "render only these views (comma-separated id or name)")
	cmd.Flags().StringVar(&opts.schemas, "schemas", "", "ArchiMate XSD directory (enables validation)")
	cmd.Flags().BoolVar(&opts.noRender, "no-render", false, "skip view rendering")
	cmd.Flags().BoolVar(&opts.overview, "overview", false, "also render the element/relationship overview graph")
	cmd.Flags().BoolVar(&opts.png, "png", false, "rasterize SVGs to PNG (requires rsvg-convert)")
	cmd.Flags().Float64Var(&opts.scale, "scale", 0, "PNG resolution multiplier")
	cmd.Flags().Float64Var(&opts.margin, "margin", 0, "view canvas margin in pixels")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass the blueprint cache")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

// applyConfig fills unset flags from the config file.
func applyConfig(opts *generateOpts, cfg Config) {
	if opts.outputDir == "" {
		opts.outputDir = cfg.OutputDir
	}
	if opts.schemas == "" {
		opts.schemas = cfg.SchemaDir
	}
	if opts.scale <= 0 {
		opts.scale = cfg.RasterScale
	}
}

// readOverride loads the override JSON from a file or stdin.
func readOverride(path string, stdin io.Reader) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading override %s: %w", path, err)
	}
	return data, nil
}

func (c *CLI) runGenerate(cmd *cobra.Command, template string, opts *generateOpts) error {
	ctx := withLogger(cmd.Context(), c.Logger)

	override, err := readOverride(opts.data, cmd.InOrStdin())
	if err != nil {
		return err
	}

	spin := newSpinnerWithContext(ctx, "Generating "+template)
	spin.Start()

	runner := c.newRunner(opts.noCache)
	result, err := runner.Execute(ctx, pipeline.Options{
		TemplatePath: template,
		Override:     override,
		ViewFilter:   opts.views,
		OutputDir:    opts.outputDir,
		BaseName:     opts.name,
		SchemaDir:    opts.schemas,
		SkipRender:   opts.noRender,
		Overview:     opts.overview,
		Raster:       opts.png,
		RasterScale:  opts.scale,
		Margin:       opts.margin,
		Refresh:      opts.refresh,
	})
	spin.Stop()
	if spin.Cancelled() {
		return ctx.Err()
	}
	if err != nil {
		return err
	}

	printGenerateResult(result, opts)
	if !result.ValidationSkipped && !result.Validated {
		return fmt.Errorf("generated document violates the schema")
	}
	return nil
}

func printGenerateResult(result *pipeline.Result, opts *generateOpts) {
	printSuccess("Generated %s", result.XMLPath)
	printStats(result.Stats.ElementCount, result.Stats.RelationshipCount,
		result.Stats.ViewCount, result.CacheInfo.ParseHit)

	for _, w := range result.Report.Warnings() {
		printWarning("dangling reference: %s", w)
	}

	printFile(result.XMLPath)
	printFile(result.JSONPath)
	for _, v := range result.Views {
		printFile(v.SVGPath)
		if v.PNGPath != "" {
			printFile(v.PNGPath)
		}
	}
	if result.Overview != nil {
		printFile(result.Overview.SVGPath)
		if result.Overview.PNGPath != "" {
			printFile(result.Overview.PNGPath)
		}
	}

	for _, re := range result.RenderErrors {
		printWarning("render skipped: %s", re)
	}

	switch {
	case result.ValidationSkipped:
		printDetail("validation skipped (no schema directory)")
	case result.Validated:
		printSuccess("Document is schema-valid")
	default:
		printError("Document violates the schema (%d findings)", len(result.ValidationErrors))
		for _, v := range result.ValidationErrors {
			printDetail("%s", v)
		}
	}

	if opts.schemas == "" {
		printNewline()
		printNextStep("Validate the result", fmt.Sprintf("%s validate %s --schemas <xsd-dir>", appName, result.XMLPath))
	}
}
