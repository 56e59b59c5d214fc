package view

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/archifact/archifact/pkg/errors"
	"github.com/archifact/archifact/pkg/model"
)

func testModel() (*model.Blueprint, *model.ViewDiagram) {
	alpha := 50
	m := &model.Blueprint{
		Elements: []model.Element{
			{ID: "id-a", Type: "ApplicationComponent", Name: &model.Text{Text: "App A"}},
			{ID: "id-b", Type: "BusinessActor", Name: &model.Text{Text: "Actor B"}},
		},
		Relationships: []model.Relationship{
			{ID: "id-r1", Type: "Serving", Source: "id-a", Target: "id-b",
				Name: &model.Text{Text: "serves"}},
		},
	}
	v := &model.ViewDiagram{
		ID:   "id-view",
		Name: &model.Text{Text: "Main"},
		Nodes: []model.ViewNode{
			{ID: "id-n1", ElementRef: "id-a",
				Bounds: &model.Bounds{X: 0, Y: 0, W: 100, H: 80},
				Style: &model.Style{
					FillColor: &model.Color{R: 255, G: 0, B: 0, A: &alpha},
				}},
			{ID: "id-n2", ElementRef: "id-b",
				Bounds: &model.Bounds{X: 200, Y: 0, W: 100, H: 80}},
		},
		Connections: []model.ViewConnection{
			{ID: "id-c1", RelationshipRef: "id-r1", Source: "id-n1", Target: "id-n2"},
		},
	}
	return m, v
}

func TestRenderGeometryFidelity(t *testing.T) {
	m, v := testModel()

	art, err := Render(m, v, WithRaster(false))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	svg := string(art.SVG)

	// Margin 20: node x positions land at 20 and 220, exactly 200 apart.
	if !strings.Contains(svg, `<rect x="20" y="20" width="100" height="80"`) {
		t.Errorf("first node rectangle misplaced:\n%s", svg)
	}
	if !strings.Contains(svg, `<rect x="220" y="20" width="100" height="80"`) {
		t.Errorf("second node rectangle misplaced:\n%s", svg)
	}

	// Connection ends on each rectangle's edge, not its center.
	if !strings.Contains(svg, `<line x1="120" y1="60" x2="220" y2="60"`) {
		t.Errorf("connection anchors not on rectangle edges:\n%s", svg)
	}

	// Canvas is tight bbox (300x80) plus the margin on each side.
	if art.Width != 340 || art.Height != 120 {
		t.Errorf("canvas = %dx%d, want 340x120", art.Width, art.Height)
	}
}

func TestRenderTextAndStyle(t *testing.T) {
	m, v := testModel()

	art, err := Render(m, v, WithRaster(false))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	svg := string(art.SVG)

	// Two centered text lines: element name, then type.
	for _, want := range []string{">App A</text>", ">ApplicationComponent</text>", ">Actor B</text>"} {
		if !strings.Contains(svg, want) {
			t.Errorf("missing text line %q:\n%s", want, svg)
		}
	}
	// Alpha 50 becomes opacity 0.5.
	if !strings.Contains(svg, `fill="#ff0000" fill-opacity="0.5"`) {
		t.Errorf("alpha not converted to opacity:\n%s", svg)
	}
	// Connection label from relationship name at the midpoint.
	if !strings.Contains(svg, ">serves</text>") {
		t.Errorf("connection label missing:\n%s", svg)
	}
	// Arrowhead marker referenced.
	if !strings.Contains(svg, `marker-end="url(#arrow)"`) {
		t.Errorf("arrow marker missing:\n%s", svg)
	}
}

func TestRenderEmptyView(t *testing.T) {
	m, _ := testModel()
	v := &model.ViewDiagram{
		ID:    "id-empty",
		Nodes: []model.ViewNode{{ID: "id-n1", ElementRef: "id-a"}}, // no bounds
	}

	_, err := Render(m, v, WithRaster(false))
	if err == nil {
		t.Fatal("expected error for view without usable bounds")
	}
	if !errors.Is(err, errors.ErrCodeEmptyView) {
		t.Errorf("error code = %v, want EMPTY_VIEW", errors.GetCode(err))
	}
}

func TestRenderDanglingConnection(t *testing.T) {
	m, v := testModel()
	v.Connections = append(v.Connections, model.ViewConnection{
		ID: "id-c2", Source: "id-n1", Target: "id-ghost",
	})

	_, err := Render(m, v, WithRaster(false))
	if err == nil {
		t.Fatal("expected error for unanchorable connection")
	}
	if !errors.Is(err, errors.ErrCodeDanglingReference) {
		t.Errorf("error code = %v, want DANGLING_REFERENCE", errors.GetCode(err))
	}
	if !strings.Contains(err.Error(), "id-ghost") {
		t.Errorf("error should name the offending identifier: %v", err)
	}
}

func TestRenderEscapesText(t *testing.T) {
	m, v := testModel()
	m.Elements[0].Name.Text = `A & B <"C">`

	art, err := Render(m, v, WithRaster(false))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	svg := string(art.SVG)
	if !strings.Contains(svg, "A &amp; B &lt;&quot;C&quot;&gt;") {
		t.Errorf("text not escaped:\n%s", svg)
	}
}

func TestAnchor(t *testing.T) {
	tests := []struct {
		name         string
		r            rect
		tx, ty       float64
		wantX, wantY float64
	}{
		{"horizontal right", rect{0, 0, 100, 80}, 300, 40, 100, 40},
		{"horizontal left", rect{200, 0, 100, 80}, 0, 40, 200, 40},
		{"vertical down", rect{0, 0, 100, 80}, 50, 300, 50, 80},
		{"diagonal binds on x", rect{0, 0, 100, 80}, 250, 80, 100, 50},
		{"target inside", rect{0, 0, 100, 80}, 60, 45, 60, 45},
		{"degenerate same center", rect{0, 0, 100, 80}, 50, 40, 50, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := anchor(tt.r, tt.tx, tt.ty)
			if x != tt.wantX || y != tt.wantY {
				t.Errorf("anchor() = (%v, %v), want (%v, %v)", x, y, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestArtifactDataURIs(t *testing.T) {
	a := &Artifact{SVG: []byte("<svg/>"), Width: 1, Height: 1}
	if !strings.HasPrefix(a.SVGDataURI(), "data:image/svg+xml;base64,") {
		t.Errorf("SVGDataURI = %q", a.SVGDataURI())
	}
	if a.PNGDataURI() != "" {
		t.Errorf("PNGDataURI without PNG = %q", a.PNGDataURI())
	}
	a.PNG = []byte{0x89, 'P', 'N', 'G'}
	if !strings.HasPrefix(a.PNGDataURI(), "data:image/png;base64,") {
		t.Errorf("PNGDataURI = %q", a.PNGDataURI())
	}
}

func TestArtifactWriteFiles(t *testing.T) {
	a := &Artifact{SVG: []byte("<svg/>"), PNG: []byte{1, 2, 3}}
	dir := filepath.Join(t.TempDir(), "nested", "out")

	paths, err := a.WriteFiles(dir, "main-view")
	if err != nil {
		t.Fatalf("WriteFiles() error = %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("len(paths) = %d, want 2", len(paths))
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("artifact not written: %v", err)
		}
	}
}
