// Package overview renders the consolidated model's element/relationship
// graph as a node-link diagram. Unlike the view renderer, which draws the
// template's own geometry, the overview has no geometry of its own and
// delegates layout to Graphviz.
package overview

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/archifact/archifact/pkg/model"
	"github.com/archifact/archifact/pkg/render"
)

// Options configures overview rendering.
type Options struct {
	// Detailed includes element types and relationship labels.
	// When false, only names are shown.
	Detailed bool
}

// ToDOT converts the model's elements and relationships to Graphviz DOT.
// The resulting DOT string can be rendered with [RenderSVG] or [RenderPNG].
func ToDOT(m *model.Blueprint, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for i := range m.Elements {
		e := &m.Elements[i]
		fmt.Fprintf(&buf, "  %q [label=%q];\n", e.ID, elementLabel(e, opts.Detailed))
	}

	buf.WriteString("\n")
	for i := range m.Relationships {
		r := &m.Relationships[i]
		if r.Source == "" || r.Target == "" {
			continue
		}
		attrs := edgeAttrs(r, opts.Detailed)
		if len(attrs) > 0 {
			fmt.Fprintf(&buf, "  %q -> %q [%s];\n", r.Source, r.Target, strings.Join(attrs, ", "))
		} else {
			fmt.Fprintf(&buf, "  %q -> %q;\n", r.Source, r.Target)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func elementLabel(e *model.Element, detailed bool) string {
	name := e.ID
	if e.Name != nil && e.Name.Text != "" {
		name = e.Name.Text
	}
	if detailed && e.Type != "" {
		return name + "\n" + e.Type
	}
	return name
}

func edgeAttrs(r *model.Relationship, detailed bool) []string {
	if !detailed {
		return nil
	}
	label := r.Type
	if r.Name != nil && r.Name.Text != "" {
		label = r.Name.Text
	}
	if label == "" {
		return nil
	}
	return []string{fmt.Sprintf("label=%q", label), "fontsize=10"}
}

// RenderSVG lays out and renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPNG renders a DOT graph as PNG via SVG conversion.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(svg, scale)
}
