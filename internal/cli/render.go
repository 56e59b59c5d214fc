package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archifact/archifact/pkg/blueprint"
	"github.com/archifact/archifact/pkg/errors"
	"github.com/archifact/archifact/pkg/merge"
	"github.com/archifact/archifact/pkg/model"
	"github.com/archifact/archifact/pkg/pipeline"
	"github.com/archifact/archifact/pkg/render/view"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	data      string  // optional override JSON file
	outputDir string  // artifact directory
	name      string  // output filename stem
	views     string  // comma-separated view filter
	png       bool    // rasterize SVGs
	scale     float64 // raster resolution multiplier
	margin    float64 // view canvas margin
}

// renderCommand creates the render command drawing view layouts without
// patching or writing the exchange document.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [template]",
		Short: "Render a template's view layouts to SVG/PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if opts.outputDir == "" {
				opts.outputDir = cfg.OutputDir
			}
			if opts.scale <= 0 {
				opts.scale = cfg.RasterScale
			}
			if opts.margin <= 0 {
				opts.margin = pipeline.DefaultMargin
			}
			return c.runRender(cmd, args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.data, "data", "d", "", "override JSON file ('-' reads stdin)")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "output directory")
	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "output filename stem (default: template stem)")
	cmd.Flags().StringVar(&opts.views, "views", "", "render only these views (comma-separated id or name)")
	cmd.Flags().BoolVar(&opts.png, "png", false, "rasterize SVGs to PNG (requires rsvg-convert)")
	cmd.Flags().Float64Var(&opts.scale, "scale", 0, "PNG resolution multiplier")
	cmd.Flags().Float64Var(&opts.margin, "margin", 0, "view canvas margin in pixels")

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, template string, opts *renderOpts) error {
	p := newProgress(c.Logger)

	bp, err := blueprint.Parse(template)
	if err != nil {
		return err
	}

	overrideJSON, err := readOverride(opts.data, cmd.InOrStdin())
	if err != nil {
		return err
	}
	var override *model.Blueprint
	if len(overrideJSON) > 0 {
		if override, err = model.DecodeOverride(overrideJSON); err != nil {
			return err
		}
	}

	consolidated, report := merge.Merge(bp, override)
	for _, w := range report.Warnings() {
		printWarning("dangling reference: %s", w)
	}

	views, err := pipeline.SelectViews(consolidated, opts.views)
	if err != nil {
		return err
	}

	base := opts.name
	if base == "" {
		base = templateStem(template)
	}

	var rendered, failed int
	for _, v := range views {
		art, err := view.Render(consolidated, v,
			view.WithMargin(opts.margin),
			view.WithRasterScale(opts.scale),
			view.WithRaster(opts.png))
		if err != nil {
			printWarning("render skipped: %s", errors.UserMessage(err))
			failed++
			continue
		}
		paths, err := art.WriteFiles(opts.outputDir, base+"-"+v.ID)
		if err != nil {
			return err
		}
		for _, path := range paths {
			printFile(path)
		}
		rendered++
	}

	if rendered == 0 && failed > 0 {
		return fmt.Errorf("no views rendered (%d failed)", failed)
	}
	p.done(fmt.Sprintf("Rendered %d view(s)", rendered))
	printSuccess("Rendered %d of %d view(s)", rendered, len(views))
	return nil
}
