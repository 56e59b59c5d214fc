package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/beevik/etree"
	"github.com/charmbracelet/log"

	"github.com/archifact/archifact/pkg/blueprint"
	"github.com/archifact/archifact/pkg/cache"
	"github.com/archifact/archifact/pkg/errors"
	"github.com/archifact/archifact/pkg/merge"
	"github.com/archifact/archifact/pkg/model"
	"github.com/archifact/archifact/pkg/observability"
	"github.com/archifact/archifact/pkg/patch"
	"github.com/archifact/archifact/pkg/render"
	"github.com/archifact/archifact/pkg/render/overview"
	"github.com/archifact/archifact/pkg/render/view"
	"github.com/archifact/archifact/pkg/xsd"
)

// Runner encapsulates pipeline execution with blueprint caching.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache.
// If c is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Logger: logger}
}

// Execute runs the complete parse → merge → patch → validate → render
// pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{}

	// Stage 1: Parse
	parseStart := time.Now()
	observability.Pipeline().OnStageStart(ctx, "parse", opts.TemplatePath)
	bp, doc, parseHit, err := r.Parse(ctx, opts)
	observability.Pipeline().OnStageComplete(ctx, "parse", opts.TemplatePath, time.Since(parseStart), err)
	if err != nil {
		return nil, err
	}
	result.Stats.ParseTime = time.Since(parseStart)
	result.CacheInfo.ParseHit = parseHit

	r.Logger.Info("parsed template",
		"template", opts.TemplatePath,
		"elements", len(bp.Elements),
		"relationships", len(bp.Relationships),
		"views", len(bp.Views.Diagrams),
		"cached", parseHit,
		"duration", result.Stats.ParseTime)

	// Stage 2: Merge
	mergeStart := time.Now()
	observability.Pipeline().OnStageStart(ctx, "merge", opts.TemplatePath)
	override := opts.OverrideModel
	if override == nil && len(opts.Override) > 0 {
		override, err = model.DecodeOverride(opts.Override)
		if err != nil {
			return nil, err
		}
	}
	consolidated, report := merge.Merge(bp, override)
	observability.Pipeline().OnStageComplete(ctx, "merge", opts.TemplatePath, time.Since(mergeStart), nil)
	result.Model = consolidated
	result.Report = report
	result.Stats.MergeTime = time.Since(mergeStart)
	result.Stats.ElementCount = len(consolidated.Elements)
	result.Stats.RelationshipCount = len(consolidated.Relationships)
	result.Stats.ViewCount = len(consolidated.Views.Diagrams)

	for _, w := range report.Warnings() {
		r.Logger.Warn("dangling reference", "detail", w)
	}
	r.Logger.Info("consolidated model",
		"elements", result.Stats.ElementCount,
		"relationships", result.Stats.RelationshipCount,
		"appended", report.Appended,
		"duration", result.Stats.MergeTime)

	// Stage 3: Patch
	patchStart := time.Now()
	observability.Pipeline().OnStageStart(ctx, "patch", opts.TemplatePath)
	xml, err := patch.Patch(doc, consolidated)
	observability.Pipeline().OnStageComplete(ctx, "patch", opts.TemplatePath, time.Since(patchStart), err)
	if err != nil {
		return nil, err
	}
	result.XML = xml
	result.Stats.PatchTime = time.Since(patchStart)

	result.ModelJSON, err = model.MarshalPretty(consolidated)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "creating output directory %s", opts.OutputDir)
	}
	result.XMLPath = filepath.Join(opts.OutputDir, opts.BaseName+".xml")
	if err := os.WriteFile(result.XMLPath, []byte(xml), 0o644); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "writing %s", result.XMLPath)
	}
	result.JSONPath = filepath.Join(opts.OutputDir, opts.BaseName+".json")
	if err := os.WriteFile(result.JSONPath, result.ModelJSON, 0o644); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "writing %s", result.JSONPath)
	}

	r.Logger.Info("patched document",
		"xml", result.XMLPath,
		"json", result.JSONPath,
		"duration", result.Stats.PatchTime)

	// Stage 4: Validate
	if opts.SchemaDir == "" {
		result.ValidationSkipped = true
	} else {
		validateStart := time.Now()
		observability.Pipeline().OnStageStart(ctx, "validate", opts.TemplatePath)
		ok, verrs, err := xsd.Validate(result.XMLPath, opts.SchemaDir)
		observability.Pipeline().OnStageComplete(ctx, "validate", opts.TemplatePath, time.Since(validateStart), err)
		if err != nil {
			return nil, err
		}
		result.Validated = ok
		result.ValidationErrors = verrs
		result.Stats.ValidateTime = time.Since(validateStart)

		r.Logger.Info("validated document",
			"ok", ok,
			"violations", len(verrs),
			"duration", result.Stats.ValidateTime)
	}

	// Stage 5: Render
	if !opts.SkipRender {
		renderStart := time.Now()
		observability.Pipeline().OnStageStart(ctx, "render", opts.TemplatePath)
		err := r.renderViews(ctx, consolidated, opts, result)
		observability.Pipeline().OnStageComplete(ctx, "render", opts.TemplatePath, time.Since(renderStart), err)
		if err != nil {
			return nil, err
		}
		result.Stats.RenderTime = time.Since(renderStart)

		r.Logger.Info("rendered views",
			"rendered", len(result.Views),
			"failed", len(result.RenderErrors),
			"duration", result.Stats.RenderTime)
	}

	return result, nil
}

// Parse reads the template, returning both the blueprint and the parsed
// original document the patch stage mutates a copy of. The blueprint comes
// from cache when the file is unchanged; the document tree is always parsed
// fresh because the copy-patch writer needs the original structure, not the
// abstraction.
func (r *Runner) Parse(ctx context.Context, opts Options) (*model.Blueprint, *etree.Document, bool, error) {
	data, err := os.ReadFile(opts.TemplatePath)
	if err != nil {
		return nil, nil, false, errors.Wrap(errors.ErrCodeTemplateNotFound, err, "reading template %s", opts.TemplatePath)
	}
	doc, err := blueprint.ParseDocument(data, opts.TemplatePath)
	if err != nil {
		return nil, nil, false, err
	}

	key, keyErr := cache.BlueprintKey(opts.TemplatePath)
	if keyErr == nil && !opts.Refresh {
		if cached, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var bp model.Blueprint
			if err := json.Unmarshal(cached, &bp); err == nil {
				observability.Cache().OnCacheHit(ctx, "blueprint")
				return &bp, doc, true, nil
			}
			// Corrupt entry: drop it and fall through to a fresh parse.
			_ = r.Cache.Delete(ctx, key)
		}
		observability.Cache().OnCacheMiss(ctx, "blueprint")
	}

	bp, err := blueprint.FromDocument(doc, opts.TemplatePath)
	if err != nil {
		return nil, nil, false, err
	}

	if keyErr == nil {
		if encoded, err := json.Marshal(bp); err == nil {
			if err := r.Cache.Set(ctx, key, encoded, blueprintTTL); err != nil {
				r.Logger.Warn("blueprint cache write failed", "error", err)
			} else {
				observability.Cache().OnCacheSet(ctx, "blueprint", len(encoded))
			}
		}
	}
	return bp, doc, false, nil
}

// renderViews renders every selected view plus the optional overview. A
// view that fails to render is recorded and skipped; it never aborts the
// remaining views.
func (r *Runner) renderViews(ctx context.Context, m *model.Blueprint, opts Options, result *Result) error {
	views, err := SelectViews(m, opts.ViewFilter)
	if err != nil {
		return err
	}

	for _, v := range views {
		art, err := view.Render(m, v,
			view.WithMargin(opts.Margin),
			view.WithRasterScale(opts.RasterScale),
			view.WithRaster(opts.Raster))
		observability.Pipeline().OnViewRendered(ctx, v.ID, err)
		if err != nil {
			r.Logger.Warn("view render failed", "view", v.ID, "error", errors.UserMessage(err))
			result.RenderErrors = append(result.RenderErrors, errors.UserMessage(err))
			continue
		}

		base := opts.BaseName + "-" + v.ID
		paths, err := art.WriteFiles(opts.OutputDir, base)
		if err != nil {
			return err
		}

		va := ViewArtifact{
			ID:         v.ID,
			Name:       viewDisplayName(v),
			SVGPath:    paths[0],
			SVGDataURI: art.SVGDataURI(),
			PNGDataURI: art.PNGDataURI(),
			Width:      art.Width,
			Height:     art.Height,
		}
		if len(paths) > 1 {
			va.PNGPath = paths[1]
		}
		result.Views = append(result.Views, va)
	}

	if opts.Overview {
		ov, err := r.renderOverview(ctx, m, opts)
		if err != nil {
			r.Logger.Warn("overview render failed", "error", errors.UserMessage(err))
			result.RenderErrors = append(result.RenderErrors, errors.UserMessage(err))
		} else {
			result.Overview = ov
		}
	}
	return nil
}

func (r *Runner) renderOverview(ctx context.Context, m *model.Blueprint, opts Options) (*ViewArtifact, error) {
	dot := overview.ToDOT(m, overview.Options{Detailed: true})
	svg, err := overview.RenderSVG(ctx, dot)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "rendering model overview")
	}

	art := &view.Artifact{SVG: svg}
	if opts.Raster && render.RasterAvailable() {
		png, err := render.ToPNG(svg, opts.RasterScale)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "rasterizing model overview")
		}
		art.PNG = png
	}

	paths, err := art.WriteFiles(opts.OutputDir, opts.BaseName+"-overview")
	if err != nil {
		return nil, err
	}
	ov := &ViewArtifact{
		ID:         "overview",
		Name:       "Model Overview",
		SVGPath:    paths[0],
		SVGDataURI: art.SVGDataURI(),
		PNGDataURI: art.PNGDataURI(),
	}
	if len(paths) > 1 {
		ov.PNGPath = paths[1]
	}
	return ov, nil
}

func viewDisplayName(v *model.ViewDiagram) string {
	if v.Name != nil && v.Name.Text != "" {
		return v.Name.Text
	}
	return v.ID
}
