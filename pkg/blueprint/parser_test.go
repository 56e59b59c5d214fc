package blueprint

import (
	"testing"

	"github.com/archifact/archifact/pkg/errors"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<model xmlns="http://www.opengroup.org/xsd/archimate/3.0/"
       xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
       identifier="id-model-1">
  <name xml:lang="en">Enterprise Landscape</name>
  <documentation xml:lang="en">Top-level model.</documentation>
  <elements>
    <element identifier="id-app" xsi:type="ApplicationComponent">
      <name xml:lang="en">Billing Service</name>
      <documentation>Handles invoices.</documentation>
      <properties>
        <property propertyDefinitionRef="propid-owner">
          <value xml:lang="en">Finance</value>
        </property>
      </properties>
    </element>
    <element identifier="id-actor" xsi:type="BusinessActor">
      <name>Customer</name>
    </element>
  </elements>
  <relationships>
    <relationship identifier="id-rel" xsi:type="Serving" source="id-app" target="id-actor">
      <documentation>Serves invoices.</documentation>
    </relationship>
  </relationships>
  <organizations>
    <item>
      <label xml:lang="en">Application</label>
      <item identifierRef="id-app"/>
    </item>
    <item>
      <label>Business</label>
      <item identifierRef="id-actor"/>
    </item>
  </organizations>
  <views>
    <viewpoints>
      <viewpoint identifier="id-vp-layered">
        <name>Layered</name>
      </viewpoint>
    </viewpoints>
    <diagrams>
      <view identifier="id-view-main" xsi:type="Diagram">
        <name xml:lang="en">Main View</name>
        <node identifier="id-node-1" xsi:type="Element" elementRef="id-app"
              x="10" y="20" w="120" h="60">
          <style>
            <fillColor r="181" g="255" b="255" a="100"/>
            <lineColor r="92" g="92" b="92"/>
            <font name="Sans" size="9">
              <color r="0" g="0" b="0"/>
            </font>
          </style>
          <node identifier="id-node-1a" xsi:type="Label" x="15" y="25" w="40" h="14">
            <label>note</label>
          </node>
        </node>
        <node identifier="id-node-2" xsi:type="Element" elementRef="id-actor"
              x="300" y="20" w="120" h="60"/>
        <connection identifier="id-conn-1" xsi:type="Relationship"
                    relationshipRef="id-rel" source="id-node-1" target="id-node-2">
          <bendpoint x="200" y="50"/>
        </connection>
      </view>
    </diagrams>
  </views>
</model>`

func TestParseBytes(t *testing.T) {
	bp, err := ParseBytes([]byte(sampleXML), "sample.xml")
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}

	if bp.ModelIdentifier != "id-model-1" {
		t.Errorf("ModelIdentifier = %q, want id-model-1", bp.ModelIdentifier)
	}
	if bp.ModelName == nil || bp.ModelName.Text != "Enterprise Landscape" || bp.ModelName.Lang != "en" {
		t.Errorf("ModelName = %+v", bp.ModelName)
	}

	if len(bp.Elements) != 2 {
		t.Fatalf("len(Elements) = %d, want 2", len(bp.Elements))
	}
	app := bp.Elements[0]
	if app.ID != "id-app" || app.Type != "ApplicationComponent" {
		t.Errorf("element[0] = %+v", app)
	}
	if app.Documentation == nil || app.Documentation.Lang != "" {
		t.Errorf("element documentation without xml:lang should have empty Lang: %+v", app.Documentation)
	}
	if len(app.Properties) != 1 || app.Properties[0].PropertyDefinitionRef != "propid-owner" ||
		app.Properties[0].Value.Text != "Finance" {
		t.Errorf("element properties = %+v", app.Properties)
	}

	if len(bp.Relationships) != 1 {
		t.Fatalf("len(Relationships) = %d, want 1", len(bp.Relationships))
	}
	rel := bp.Relationships[0]
	if rel.Type != "Serving" || rel.Source != "id-app" || rel.Target != "id-actor" {
		t.Errorf("relationship = %+v", rel)
	}

	if len(bp.Organizations) != 2 {
		t.Fatalf("len(Organizations) = %d, want 2", len(bp.Organizations))
	}
	if bp.Organizations[0].Label.Text != "Application" ||
		bp.Organizations[0].Items[0].IdentifierRef != "id-app" {
		t.Errorf("organizations[0] = %+v", bp.Organizations[0])
	}

	if len(bp.Views.Viewpoints) != 1 || bp.Views.Viewpoints[0].ID != "id-vp-layered" {
		t.Errorf("viewpoints = %+v", bp.Views.Viewpoints)
	}
	if len(bp.Views.Diagrams) != 1 {
		t.Fatalf("len(Diagrams) = %d, want 1", len(bp.Views.Diagrams))
	}

	view := bp.Views.Diagrams[0]
	if view.ID != "id-view-main" || view.Type != "Diagram" || view.Name.Text != "Main View" {
		t.Errorf("view = %+v", view)
	}
	if len(view.Nodes) != 2 {
		t.Fatalf("len(view.Nodes) = %d, want 2", len(view.Nodes))
	}

	n1 := view.Nodes[0]
	if n1.Bounds == nil || n1.Bounds.X != 10 || n1.Bounds.W != 120 {
		t.Errorf("node bounds = %+v", n1.Bounds)
	}
	if n1.Style == nil || n1.Style.FillColor == nil || n1.Style.FillColor.R != 181 {
		t.Errorf("node style = %+v", n1.Style)
	}
	if n1.Style.FillColor.A == nil || *n1.Style.FillColor.A != 100 {
		t.Errorf("fill alpha = %+v", n1.Style.FillColor.A)
	}
	if n1.Style.LineColor.A != nil {
		t.Errorf("line alpha should be nil when absent: %+v", n1.Style.LineColor.A)
	}
	if n1.Style.Font == nil || n1.Style.Font.Name != "Sans" || n1.Style.Font.Size != 9 {
		t.Errorf("font = %+v", n1.Style.Font)
	}
	if len(n1.Nodes) != 1 || n1.Nodes[0].Type != "Label" || n1.Nodes[0].Label.Text != "note" {
		t.Errorf("nested node = %+v", n1.Nodes)
	}

	if len(view.Connections) != 1 {
		t.Fatalf("len(view.Connections) = %d, want 1", len(view.Connections))
	}
	conn := view.Connections[0]
	if conn.RelationshipRef != "id-rel" || conn.Source != "id-node-1" || conn.Target != "id-node-2" {
		t.Errorf("connection = %+v", conn)
	}
	if len(conn.Points) != 1 || conn.Points[0].X != 200 || conn.Points[0].Y != 50 {
		t.Errorf("bendpoints = %+v", conn.Points)
	}
}

func TestParseBytesMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"truncated", "<model><elements>"},
		{"not xml", "hello world"},
		{"empty", ""},
		{"wrong root", "<notamodel/>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBytes([]byte(tt.input), "bad.xml")
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, errors.ErrCodeMalformedTemplate) {
				t.Errorf("error code = %v, want MALFORMED_TEMPLATE", errors.GetCode(err))
			}
		})
	}
}

func TestParseMissingFile(t *testing.T) {
	_, err := Parse("/nonexistent/template.xml")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, errors.ErrCodeTemplateNotFound) {
		t.Errorf("error code = %v, want TEMPLATE_NOT_FOUND", errors.GetCode(err))
	}
}

func TestParsePrefixedXsiType(t *testing.T) {
	const xml = `<model xmlns="http://www.opengroup.org/xsd/archimate/3.0/"
  xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" identifier="id-m">
  <elements>
    <element identifier="id-1" xsi:type="archimate:BusinessActor"/>
  </elements>
</model>`
	bp, err := ParseBytes([]byte(xml), "prefixed.xml")
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}
	if bp.Elements[0].Type != "BusinessActor" {
		t.Errorf("Type = %q, want prefix stripped", bp.Elements[0].Type)
	}
}
