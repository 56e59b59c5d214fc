// Package templates discovers and describes ArchiMate template files in a
// directory tree.
package templates

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/archifact/archifact/pkg/blueprint"
	"github.com/archifact/archifact/pkg/errors"
	"github.com/archifact/archifact/pkg/model"
)

// ViewInfo summarizes one diagram view of a template.
type ViewInfo struct {
	Index      int    `json:"index"`
	Identifier string `json:"identifier"`
	Name       string `json:"name,omitempty"`
	Viewpoint  string `json:"viewpoint,omitempty"`
}

// Info summarizes one template file.
type Info struct {
	Path          string     `json:"path"`
	Identifier    string     `json:"identifier"`
	Name          string     `json:"name,omitempty"`
	Documentation string     `json:"documentation,omitempty"`
	Elements      int        `json:"elements"`
	Relationships int        `json:"relationships"`
	Views         []ViewInfo `json:"views,omitempty"`
}

// List scans dir recursively for *.xml templates and describes each one.
// Files that fail to parse are skipped with a warning; they never abort the
// listing. Results are sorted by path.
func List(dir string, logger *log.Logger) ([]Info, error) {
	if logger == nil {
		logger = log.Default()
	}

	var infos []Info
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".xml") {
			return nil
		}
		info, derr := Describe(path)
		if derr != nil {
			logger.Warn("skipping unparsable template", "path", path, "error", errors.UserMessage(derr))
			return nil
		}
		infos = append(infos, *info)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "scanning templates directory %s", dir)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })
	return infos, nil
}

// Describe parses one template and summarizes its model and views.
func Describe(path string) (*Info, error) {
	bp, err := blueprint.Parse(path)
	if err != nil {
		return nil, err
	}
	return describeBlueprint(path, bp), nil
}

func describeBlueprint(path string, bp *model.Blueprint) *Info {
	info := &Info{
		Path:          path,
		Identifier:    bp.ModelIdentifier,
		Elements:      len(bp.Elements),
		Relationships: len(bp.Relationships),
	}
	if bp.ModelName != nil {
		info.Name = bp.ModelName.Text
	}
	if bp.ModelDocumentation != nil {
		info.Documentation = bp.ModelDocumentation.Text
	}
	for i := range bp.Views.Diagrams {
		v := &bp.Views.Diagrams[i]
		vi := ViewInfo{Index: i, Identifier: v.ID, Viewpoint: v.Viewpoint}
		if v.Name != nil {
			vi.Name = v.Name.Text
		}
		info.Views = append(info.Views, vi)
	}
	return info
}
