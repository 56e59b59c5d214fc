package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/archifact/archifact/pkg/cache"
	"github.com/archifact/archifact/pkg/errors"
	"github.com/archifact/archifact/pkg/model"
)

const templateXML = `<?xml version="1.0" encoding="UTF-8"?>
<model xmlns="http://www.opengroup.org/xsd/archimate/3.0/"
       xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
       identifier="id-model-1">
  <name xml:lang="en">Landscape</name>
  <elements>
    <element identifier="id-a" xsi:type="ApplicationComponent">
      <name>App A</name>
    </element>
    <element identifier="id-b" xsi:type="BusinessActor">
      <name>Actor B</name>
    </element>
  </elements>
  <relationships>
    <relationship identifier="id-r1" xsi:type="Serving" source="id-a" target="id-b"/>
  </relationships>
  <views>
    <diagrams>
      <view identifier="id-view-1" xsi:type="Diagram">
        <name>Main</name>
        <node identifier="id-n1" xsi:type="Element" elementRef="id-a" x="0" y="0" w="100" h="80"/>
        <node identifier="id-n2" xsi:type="Element" elementRef="id-b" x="200" y="0" w="100" h="80"/>
        <connection identifier="id-c1" xsi:type="Relationship" relationshipRef="id-r1"
                    source="id-n1" target="id-n2"/>
      </view>
      <view identifier="id-view-2" xsi:type="Diagram">
        <name>Unpositioned</name>
        <node identifier="id-n3" xsi:type="Element" elementRef="id-a"/>
      </view>
    </diagrams>
  </views>
</model>`

func writeTemplate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "landscape.xml")
	if err := os.WriteFile(path, []byte(templateXML), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func quietLogger() *log.Logger {
	logger := log.New(os.Stderr)
	logger.SetLevel(log.FatalLevel + 1)
	return logger
}

func TestExecute(t *testing.T) {
	path := writeTemplate(t)
	outDir := filepath.Join(t.TempDir(), "out")
	runner := NewRunner(nil, quietLogger())

	result, err := runner.Execute(context.Background(), Options{
		TemplatePath: path,
		Override:     []byte(`{"elements":[{"id":"id-a","name":{"text":"Renamed"}}]}`),
		OutputDir:    outDir,
		ViewFilter:   "Main",
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if result.Model.Elements[0].Name.Text != "Renamed" {
		t.Errorf("override not applied: %+v", result.Model.Elements[0].Name)
	}
	if !strings.Contains(result.XML, "Renamed") {
		t.Error("patched XML missing overridden name")
	}
	if !result.ValidationSkipped {
		t.Error("validation should be skipped without a schema dir")
	}

	for _, p := range []string{result.XMLPath, result.JSONPath} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("artifact not written: %v", err)
		}
	}
	if filepath.Base(result.XMLPath) != "landscape.xml" {
		t.Errorf("XML basename = %s, want template stem", filepath.Base(result.XMLPath))
	}

	if len(result.Views) != 1 || result.Views[0].ID != "id-view-1" {
		t.Fatalf("views = %+v, want only the filtered view", result.Views)
	}
	v := result.Views[0]
	if v.Width == 0 || v.Height == 0 {
		t.Errorf("view dimensions missing: %+v", v)
	}
	if !strings.HasPrefix(v.SVGDataURI, "data:image/svg+xml;base64,") {
		t.Errorf("SVG data URI = %q", v.SVGDataURI)
	}
	if _, err := os.Stat(v.SVGPath); err != nil {
		t.Errorf("SVG artifact not written: %v", err)
	}

	if result.Stats.ElementCount != 2 || result.Stats.ViewCount != 2 {
		t.Errorf("stats = %+v", result.Stats)
	}
}

func TestExecuteRenderFailureIsIsolated(t *testing.T) {
	path := writeTemplate(t)
	runner := NewRunner(nil, quietLogger())

	// No filter: id-view-2 has no positioned nodes and must fail without
	// aborting id-view-1.
	result, err := runner.Execute(context.Background(), Options{
		TemplatePath: path,
		OutputDir:    t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(result.Views) != 1 || result.Views[0].ID != "id-view-1" {
		t.Errorf("views = %+v, want id-view-1 only", result.Views)
	}
	if len(result.RenderErrors) != 1 {
		t.Fatalf("RenderErrors = %v, want one entry", result.RenderErrors)
	}
	if !strings.Contains(result.RenderErrors[0], "usable bounds") {
		t.Errorf("render error should explain the empty view: %q", result.RenderErrors[0])
	}
}

func TestExecuteBlueprintCache(t *testing.T) {
	path := writeTemplate(t)
	c := cache.NewMemoryCache()
	defer c.Close()
	runner := NewRunner(c, quietLogger())
	ctx := context.Background()

	opts := Options{TemplatePath: path, OutputDir: t.TempDir(), SkipRender: true}

	r1, err := runner.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if r1.CacheInfo.ParseHit {
		t.Error("first run should be a cache miss")
	}

	r2, err := runner.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !r2.CacheInfo.ParseHit {
		t.Error("second run should hit the blueprint cache")
	}

	// Refresh bypasses the cache.
	opts.Refresh = true
	r3, err := runner.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if r3.CacheInfo.ParseHit {
		t.Error("refresh run should not hit the cache")
	}
}

func TestExecuteInvalidOptions(t *testing.T) {
	runner := NewRunner(nil, quietLogger())
	ctx := context.Background()

	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"empty template", Options{}, errors.ErrCodeInvalidInput},
		{"wrong extension", Options{TemplatePath: "model.yaml"}, errors.ErrCodeInvalidInput},
		{"bad filter", Options{TemplatePath: "t.xml", ViewFilter: "a,,b"}, errors.ErrCodeInvalidViewFilter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runner.Execute(ctx, tt.opts)
			if !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestExecuteViewFilterMiss(t *testing.T) {
	path := writeTemplate(t)
	runner := NewRunner(nil, quietLogger())

	_, err := runner.Execute(context.Background(), Options{
		TemplatePath: path,
		OutputDir:    t.TempDir(),
		ViewFilter:   "No Such View",
	})
	if !errors.Is(err, errors.ErrCodeViewNotFound) {
		t.Errorf("error = %v, want VIEW_NOT_FOUND", err)
	}
	if err != nil && !strings.Contains(err.Error(), "No Such View") {
		t.Errorf("error should name the filter entry: %v", err)
	}
}

func TestExecuteMalformedOverride(t *testing.T) {
	path := writeTemplate(t)
	runner := NewRunner(nil, quietLogger())

	_, err := runner.Execute(context.Background(), Options{
		TemplatePath: path,
		OutputDir:    t.TempDir(),
		Override:     []byte("{nope"),
	})
	if !errors.Is(err, errors.ErrCodeInvalidDatamodel) {
		t.Errorf("error = %v, want INVALID_DATAMODEL", err)
	}
}

func TestSelectViews(t *testing.T) {
	m := &model.Blueprint{Views: model.Views{Diagrams: []model.ViewDiagram{
		{ID: "id-v1", Name: &model.Text{Text: "Main View"}},
		{ID: "id-v2", Name: &model.Text{Text: "Other"}},
	}}}

	t.Run("empty selects all", func(t *testing.T) {
		out, err := SelectViews(m, "")
		if err != nil || len(out) != 2 {
			t.Errorf("SelectViews = %v, %v", out, err)
		}
	})

	t.Run("by id", func(t *testing.T) {
		out, err := SelectViews(m, "id-v2")
		if err != nil || len(out) != 1 || out[0].ID != "id-v2" {
			t.Errorf("SelectViews = %v, %v", out, err)
		}
	})

	t.Run("by name case-insensitive", func(t *testing.T) {
		out, err := SelectViews(m, "main view")
		if err != nil || len(out) != 1 || out[0].ID != "id-v1" {
			t.Errorf("SelectViews = %v, %v", out, err)
		}
	})

	t.Run("deduplicates", func(t *testing.T) {
		out, err := SelectViews(m, "id-v1, Main View")
		if err != nil || len(out) != 1 {
			t.Errorf("SelectViews = %v, %v", out, err)
		}
	})

	t.Run("miss is an error", func(t *testing.T) {
		_, err := SelectViews(m, "ghost")
		if !errors.Is(err, errors.ErrCodeViewNotFound) {
			t.Errorf("error = %v, want VIEW_NOT_FOUND", err)
		}
	})
}

func TestExecuteValidatorUnavailableStillRenders(t *testing.T) {
	path := writeTemplate(t)
	outDir := filepath.Join(t.TempDir(), "out")

	schemaDir := t.TempDir()
	schema := `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           targetNamespace="http://www.opengroup.org/xsd/archimate/3.0/"
           elementFormDefault="qualified">
  <xs:element name="model"/>
</xs:schema>`
	if err := os.WriteFile(filepath.Join(schemaDir, "archimate3_Model.xsd"), []byte(schema), 0o644); err != nil {
		t.Fatal(err)
	}

	// An empty PATH hides xmllint even when it is installed.
	t.Setenv("PATH", t.TempDir())

	runner := NewRunner(nil, quietLogger())
	result, err := runner.Execute(context.Background(), Options{
		TemplatePath: path,
		OutputDir:    outDir,
		SchemaDir:    schemaDir,
		ViewFilter:   "id-view-1",
	})
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil (validator absence is data)", err)
	}

	if result.Validated {
		t.Error("Validated = true without a validator backend")
	}
	if len(result.ValidationErrors) != 1 || !strings.Contains(result.ValidationErrors[0], "xmllint") {
		t.Errorf("ValidationErrors = %v, want a single xmllint install hint", result.ValidationErrors)
	}
	if result.ValidationSkipped {
		t.Error("ValidationSkipped = true, validation was requested")
	}

	// The render stage still ran and the artifacts survived.
	if len(result.Views) != 1 {
		t.Fatalf("len(Views) = %d, want 1", len(result.Views))
	}
	if _, err := os.Stat(result.Views[0].SVGPath); err != nil {
		t.Errorf("rendered SVG missing: %v", err)
	}
	if _, err := os.Stat(result.XMLPath); err != nil {
		t.Errorf("patched XML missing: %v", err)
	}
}
