// Package view renders one diagram view's consolidated geometry to SVG and
// optionally PNG. The coordinate space is the template's own geometry: this
// is a renderer, never a layout engine.
package view

import (
	"fmt"
	"strings"

	"github.com/archifact/archifact/pkg/errors"
	"github.com/archifact/archifact/pkg/model"
	"github.com/archifact/archifact/pkg/render"
)

const (
	defaultMargin      = 20.0
	defaultRasterScale = 2.0
	cornerRadius       = 6.0
	defaultFill        = "#f0f4ff"
	defaultStroke      = "#5c5c5c"
	fontFamily         = "Helvetica, Arial, sans-serif"
	titleFontSize      = 11.0
	typeFontSize       = 9.0
)

// Option configures a render call.
type Option func(*options)

type options struct {
	margin      float64
	rasterScale float64
	raster      bool
}

// WithMargin sets the canvas margin around the tight bounding box.
func WithMargin(margin float64) Option {
	return func(o *options) { o.margin = margin }
}

// WithRasterScale sets the PNG resolution multiplier.
func WithRasterScale(scale float64) Option {
	return func(o *options) { o.rasterScale = scale }
}

// WithRaster enables or disables PNG output. Rendering still succeeds with
// SVG only when the raster backend is missing.
func WithRaster(enabled bool) Option {
	return func(o *options) { o.raster = enabled }
}

// drawNode is one positioned node ready for drawing, with resolved text.
type drawNode struct {
	r        rect
	fill     string
	fillOp   float64
	stroke   string
	title    string
	subtitle string
}

// drawEdge is one connection with resolved anchor points.
type drawEdge struct {
	x1, y1, x2, y2 float64
	stroke         string
	label          string
}

// Render draws the view's nodes and connections using the consolidated
// model m to resolve element and relationship names. It fails with an
// EMPTY_VIEW error when no node carries usable bounds, and with a
// DANGLING_REFERENCE error when a connection endpoint cannot be anchored.
func Render(m *model.Blueprint, v *model.ViewDiagram, opts ...Option) (*Artifact, error) {
	o := options{
		margin:      defaultMargin,
		rasterScale: defaultRasterScale,
		raster:      true,
	}
	for _, opt := range opts {
		opt(&o)
	}

	box := newBBox()
	rects := map[string]rect{}
	var nodes []drawNode
	collectNodes(m, v.Nodes, &box, rects, &nodes)

	if box.empty() {
		return nil, errors.New(errors.ErrCodeEmptyView,
			"view %s has no node with usable bounds", viewName(v))
	}

	dx := o.margin - box.minX
	dy := o.margin - box.minY
	width := box.maxX - box.minX + 2*o.margin
	height := box.maxY - box.minY + 2*o.margin

	for i := range nodes {
		nodes[i].r.X += dx
		nodes[i].r.Y += dy
	}
	for id, r := range rects {
		r.X += dx
		r.Y += dy
		rects[id] = r
	}

	edges, err := collectEdges(m, v, rects)
	if err != nil {
		return nil, err
	}

	svg := emitSVG(width, height, nodes, edges)
	art := &Artifact{
		SVG:    []byte(svg),
		Width:  int(width + 0.5),
		Height: int(height + 0.5),
	}

	if o.raster && render.RasterAvailable() {
		png, err := render.ToPNG(art.SVG, o.rasterScale)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "rasterizing view %s", viewName(v))
		}
		art.PNG = png
	}
	return art, nil
}

// collectNodes walks the node tree depth-first so containers draw before
// their children, recording every node that carries bounds.
func collectNodes(m *model.Blueprint, nodes []model.ViewNode, box *bbox, rects map[string]rect, out *[]drawNode) {
	for i := range nodes {
		n := &nodes[i]
		if n.Bounds != nil {
			box.add(n.Bounds)
			r := rect{X: n.Bounds.X, Y: n.Bounds.Y, W: n.Bounds.W, H: n.Bounds.H}
			if n.ID != "" {
				rects[n.ID] = r
			}
			dn := drawNode{r: r, fill: defaultFill, fillOp: 1, stroke: defaultStroke}
			if n.Style != nil {
				if n.Style.FillColor != nil {
					dn.fill = cssColor(n.Style.FillColor)
					dn.fillOp = alphaOpacity(n.Style.FillColor)
				}
				if n.Style.LineColor != nil {
					dn.stroke = cssColor(n.Style.LineColor)
				}
			}
			dn.title, dn.subtitle = nodeText(m, n)
			*out = append(*out, dn)
		}
		collectNodes(m, n.Nodes, box, rects, out)
	}
}

// collectEdges resolves each connection's endpoints to rectangle-edge
// anchor points along the center-to-center segment.
func collectEdges(m *model.Blueprint, v *model.ViewDiagram, rects map[string]rect) ([]drawEdge, error) {
	connections := allConnections(v)
	edges := make([]drawEdge, 0, len(connections))
	for _, c := range connections {
		src, ok := rects[c.Source]
		if !ok {
			return nil, errors.New(errors.ErrCodeDanglingReference,
				"view %s connection %s: source node %q has no drawable bounds",
				viewName(v), c.ID, c.Source)
		}
		tgt, ok := rects[c.Target]
		if !ok {
			return nil, errors.New(errors.ErrCodeDanglingReference,
				"view %s connection %s: target node %q has no drawable bounds",
				viewName(v), c.ID, c.Target)
		}

		x1, y1 := anchor(src, tgt.centerX(), tgt.centerY())
		x2, y2 := anchor(tgt, src.centerX(), src.centerY())
		e := drawEdge{x1: x1, y1: y1, x2: x2, y2: y2, stroke: defaultStroke}
		if c.Style != nil && c.Style.LineColor != nil {
			e.stroke = cssColor(c.Style.LineColor)
		}
		e.label = connectionText(m, c)
		edges = append(edges, e)
	}
	return edges, nil
}

func allConnections(v *model.ViewDiagram) []*model.ViewConnection {
	var out []*model.ViewConnection
	for i := range v.Connections {
		out = append(out, &v.Connections[i])
	}
	var walk func(nodes []model.ViewNode)
	walk = func(nodes []model.ViewNode) {
		for i := range nodes {
			for j := range nodes[i].Connections {
				out = append(out, &nodes[i].Connections[j])
			}
			walk(nodes[i].Nodes)
		}
	}
	walk(v.Nodes)
	return out
}

// nodeText resolves the two centered text lines: the title (label or the
// referenced element's name) and the type line.
func nodeText(m *model.Blueprint, n *model.ViewNode) (string, string) {
	title := ""
	subtitle := ""
	if n.Label != nil {
		title = n.Label.Text
	}
	if n.ElementRef != "" {
		if el := m.ElementByID(n.ElementRef); el != nil {
			if title == "" && el.Name != nil {
				title = el.Name.Text
			}
			subtitle = el.Type
		}
	}
	return title, subtitle
}

func connectionText(m *model.Blueprint, c *model.ViewConnection) string {
	if c.Label != nil && c.Label.Text != "" {
		return c.Label.Text
	}
	if c.RelationshipRef != "" {
		if r := m.RelationshipByID(c.RelationshipRef); r != nil && r.Name != nil {
			return r.Name.Text
		}
	}
	return ""
}

func emitSVG(width, height float64, nodes []drawNode, edges []drawEdge) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		num(width), num(height), num(width), num(height))
	b.WriteString("\n")
	b.WriteString(`  <defs>
    <marker id="arrow" viewBox="0 0 10 10" refX="9" refY="5" markerWidth="8" markerHeight="8" orient="auto-start-reverse">
      <path d="M 0 0 L 10 5 L 0 10 z" fill="` + defaultStroke + `"/>
    </marker>
  </defs>
`)
	fmt.Fprintf(&b, `  <rect width="%s" height="%s" fill="#ffffff"/>`, num(width), num(height))
	b.WriteString("\n")

	for _, n := range nodes {
		fmt.Fprintf(&b, `  <rect x="%s" y="%s" width="%s" height="%s" rx="%s" fill="%s" fill-opacity="%s" stroke="%s" stroke-width="1"/>`,
			num(n.r.X), num(n.r.Y), num(n.r.W), num(n.r.H), num(cornerRadius),
			n.fill, num(n.fillOp), n.stroke)
		b.WriteString("\n")

		cx := n.r.centerX()
		cy := n.r.centerY()
		switch {
		case n.title != "" && n.subtitle != "":
			writeText(&b, cx, cy-2, titleFontSize, "600", n.title)
			writeText(&b, cx, cy+typeFontSize+2, typeFontSize, "400", n.subtitle)
		case n.title != "":
			writeText(&b, cx, cy+titleFontSize/3, titleFontSize, "600", n.title)
		case n.subtitle != "":
			writeText(&b, cx, cy+typeFontSize/3, typeFontSize, "400", n.subtitle)
		}
	}

	for _, e := range edges {
		fmt.Fprintf(&b, `  <line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="1" marker-end="url(#arrow)"/>`,
			num(e.x1), num(e.y1), num(e.x2), num(e.y2), e.stroke)
		b.WriteString("\n")
		if e.label != "" {
			writeText(&b, (e.x1+e.x2)/2, (e.y1+e.y2)/2-4, typeFontSize, "400", e.label)
		}
	}

	b.WriteString("</svg>\n")
	return b.String()
}

func writeText(b *strings.Builder, x, y, size float64, weight, text string) {
	fmt.Fprintf(b, `  <text x="%s" y="%s" text-anchor="middle" font-family="%s" font-size="%s" font-weight="%s" fill="#1a1a1a">%s</text>`,
		num(x), num(y), fontFamily, num(size), weight, escape(text))
	b.WriteString("\n")
}

func cssColor(c *model.Color) string {
	return fmt.Sprintf("#%02x%02x%02x", clamp8(c.R), clamp8(c.G), clamp8(c.B))
}

// alphaOpacity converts the exchange format's 0-100 alpha to a 0-1 opacity.
func alphaOpacity(c *model.Color) float64 {
	if c.A == nil {
		return 1
	}
	a := float64(*c.A) / 100
	if a < 0 {
		return 0
	}
	if a > 1 {
		return 1
	}
	return a
}

func clamp8(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

func num(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}

func viewName(v *model.ViewDiagram) string {
	if v.Name != nil && v.Name.Text != "" {
		return v.Name.Text
	}
	return v.ID
}
