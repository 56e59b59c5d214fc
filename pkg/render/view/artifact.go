package view

import (
	"encoding/base64"
	"os"
	"path/filepath"

	"github.com/archifact/archifact/pkg/errors"
)

// Artifact is one rendered view: SVG always, PNG when a raster backend was
// available, with the canvas size in pixels.
type Artifact struct {
	SVG    []byte
	PNG    []byte
	Width  int
	Height int
}

// SVGDataURI returns the SVG as a data: URI for inline embedding.
func (a *Artifact) SVGDataURI() string {
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(a.SVG)
}

// PNGDataURI returns the PNG as a data: URI, or empty when no PNG was
// produced.
func (a *Artifact) PNGDataURI() string {
	if len(a.PNG) == 0 {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(a.PNG)
}

// WriteFiles writes the artifact under dir using base as the filename stem
// and returns the written paths. Missing parent directories are created.
func (a *Artifact) WriteFiles(dir, base string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "creating output directory %s", dir)
	}

	var paths []string
	svgPath := filepath.Join(dir, base+".svg")
	if err := os.WriteFile(svgPath, a.SVG, 0o644); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "writing %s", svgPath)
	}
	paths = append(paths, svgPath)

	if len(a.PNG) > 0 {
		pngPath := filepath.Join(dir, base+".png")
		if err := os.WriteFile(pngPath, a.PNG, 0o644); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "writing %s", pngPath)
		}
		paths = append(paths, pngPath)
	}
	return paths, nil
}
