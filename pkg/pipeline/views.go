package pipeline

import (
	"strings"

	"github.com/archifact/archifact/pkg/errors"
	"github.com/archifact/archifact/pkg/model"
)

// SelectViews resolves a comma-separated view filter against the model's
// diagrams, matching identifiers or names case-insensitively. An empty
// filter selects every view. A filter entry matching nothing is an error
// naming the entry.
func SelectViews(m *model.Blueprint, filter string) ([]*model.ViewDiagram, error) {
	diagrams := m.Views.Diagrams
	if strings.TrimSpace(filter) == "" {
		out := make([]*model.ViewDiagram, len(diagrams))
		for i := range diagrams {
			out[i] = &diagrams[i]
		}
		return out, nil
	}

	var out []*model.ViewDiagram
	seen := map[string]bool{}
	for _, part := range strings.Split(filter, ",") {
		want := strings.ToLower(strings.TrimSpace(part))
		found := false
		for i := range diagrams {
			v := &diagrams[i]
			name := ""
			if v.Name != nil {
				name = strings.ToLower(v.Name.Text)
			}
			if strings.ToLower(v.ID) == want || name == want {
				if !seen[v.ID] {
					out = append(out, v)
					seen[v.ID] = true
				}
				found = true
			}
		}
		if !found {
			return nil, errors.New(errors.ErrCodeViewNotFound,
				"no view matches filter entry %q", strings.TrimSpace(part))
		}
	}
	return out, nil
}
