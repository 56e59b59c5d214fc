// Package pipeline provides the core generation pipeline for archifact.
//
// This package implements the complete parse → merge → patch → validate →
// render sequence that backs the CLI. Centralizing it keeps behavior
// consistent across entry points.
//
// # Architecture
//
// The pipeline consists of five stages:
//
//  1. Parse: Read the template document and extract the blueprint
//  2. Merge: Consolidate the caller's override document onto the blueprint
//  3. Patch: Mutate a copy of the original tree and serialize the XML
//  4. Validate: Check the XML against the official schema set (optional)
//  5. Render: Draw each selected view's geometry to SVG/PNG
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, logger)
//	opts := pipeline.Options{
//	    TemplatePath: "templates/landscape.xml",
//	    Override:     overrideJSON,
//	    OutputDir:    "out",
//	}
//	result, err := runner.Execute(ctx, opts)
package pipeline

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/archifact/archifact/pkg/errors"
	"github.com/archifact/archifact/pkg/merge"
	"github.com/archifact/archifact/pkg/model"
)

const (
	// DefaultMargin is the canvas margin applied around a view's tight
	// bounding box.
	DefaultMargin = 20.0

	// DefaultRasterScale is the PNG resolution multiplier.
	DefaultRasterScale = 2.0

	// DefaultOutputDir receives artifacts when the caller names none.
	DefaultOutputDir = "out"

	// blueprintTTL bounds how long a cached blueprint may be reused within
	// a session.
	blueprintTTL = time.Hour
)

// Options configures one pipeline execution.
type Options struct {
	// TemplatePath is the ArchiMate exchange-format template file.
	TemplatePath string

	// Override is the caller's override document as raw JSON. Empty means
	// no overrides. OverrideModel takes precedence when both are set.
	Override []byte

	// OverrideModel is an already-decoded override document.
	OverrideModel *model.Blueprint

	// ViewFilter selects which diagrams to render, comma-separated, by
	// identifier or name (case-insensitive). Empty renders all views.
	ViewFilter string

	// OutputDir receives the XML, JSON and image artifacts.
	OutputDir string

	// BaseName is the output filename stem. Defaults to the template
	// file's stem.
	BaseName string

	// SchemaDir holds the official XSD set. Empty skips validation.
	SchemaDir string

	// SkipRender suppresses the view rendering stage.
	SkipRender bool

	// Overview additionally renders the element/relationship graph.
	Overview bool

	// Raster enables PNG output when a raster backend is available.
	Raster bool

	// RasterScale is the PNG resolution multiplier.
	RasterScale float64

	// Margin is the view canvas margin.
	Margin float64

	// Refresh bypasses the blueprint cache.
	Refresh bool
}

// ValidateAndSetDefaults checks the options and fills in defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if err := errors.ValidateTemplatePath(o.TemplatePath); err != nil {
		return err
	}
	if err := errors.ValidateViewFilter(o.ViewFilter); err != nil {
		return err
	}
	if o.BaseName == "" {
		base := filepath.Base(o.TemplatePath)
		o.BaseName = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if err := errors.ValidateOutputFilename(o.BaseName + ".xml"); err != nil {
		return err
	}
	if o.OutputDir == "" {
		o.OutputDir = DefaultOutputDir
	}
	if o.RasterScale <= 0 {
		o.RasterScale = DefaultRasterScale
	}
	if o.Margin <= 0 {
		o.Margin = DefaultMargin
	}
	return nil
}

// ViewArtifact is one rendered view's outputs.
type ViewArtifact struct {
	ID         string
	Name       string
	SVGPath    string
	PNGPath    string
	SVGDataURI string
	PNGDataURI string
	Width      int
	Height     int
}

// Stats captures per-stage timing and model size.
type Stats struct {
	ParseTime    time.Duration
	MergeTime    time.Duration
	PatchTime    time.Duration
	ValidateTime time.Duration
	RenderTime   time.Duration

	ElementCount      int
	RelationshipCount int
	ViewCount         int
}

// CacheInfo reports which stages were served from cache.
type CacheInfo struct {
	ParseHit bool
}

// Result is the outcome of a pipeline execution.
type Result struct {
	// Model is the consolidated model.
	Model *model.Blueprint

	// ModelJSON is the consolidated model as pretty-printed JSON.
	ModelJSON []byte

	// XML is the patched document text.
	XML string

	// XMLPath and JSONPath are the written artifact locations.
	XMLPath  string
	JSONPath string

	// Validated reports the schema verdict; ValidationErrors carries the
	// validator's full error list. ValidationSkipped is true when no
	// schema directory was supplied.
	Validated         bool
	ValidationErrors  []string
	ValidationSkipped bool

	// Views holds the per-view render artifacts. RenderErrors collects
	// views that failed to render; a failed view never aborts the others.
	Views        []ViewArtifact
	RenderErrors []string

	// Overview is the optional element/relationship graph render.
	Overview *ViewArtifact

	// Report carries the merge engine's findings.
	Report *merge.Report

	Stats     Stats
	CacheInfo CacheInfo
}
