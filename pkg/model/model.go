// Package model defines the in-memory representation of an ArchiMate
// exchange-format model: the blueprint parsed from a template file, the
// caller-supplied override document, and the consolidated model produced by
// merging the two.
//
// All three share one shape. Optional fields are pointers; a nil pointer
// means "absent" (inherit from the blueprint during a merge). JSON null
// decodes to nil and is therefore treated the same as absent.
package model

// Text is a localized text value. Lang is empty when the source document
// carried no xml:lang attribute.
type Text struct {
	Text string `json:"text"`
	Lang string `json:"lang,omitempty"`
}

// Property is a typed property reference with a localized value.
type Property struct {
	PropertyDefinitionRef string `json:"propertyDefinitionRef"`
	Value                 *Text  `json:"value,omitempty"`
}

// Element is a model element (business actor, application component, ...).
type Element struct {
	ID            string     `json:"id"`
	Type          string     `json:"type,omitempty"`
	Name          *Text      `json:"name,omitempty"`
	Documentation *Text      `json:"documentation,omitempty"`
	Properties    []Property `json:"properties,omitempty"`
}

// Relationship connects two elements (or another relationship, for
// association-to-relationship constructs the exchange format permits).
type Relationship struct {
	ID            string     `json:"id"`
	Type          string     `json:"type,omitempty"`
	Source        string     `json:"source,omitempty"`
	Target        string     `json:"target,omitempty"`
	Name          *Text      `json:"name,omitempty"`
	Documentation *Text      `json:"documentation,omitempty"`
	Properties    []Property `json:"properties,omitempty"`
}

// OrgItem is one node of the organizations forest. An item either
// references a model concept via IdentifierRef or groups child items under
// a Label. Identifier is rarely present but preserved when it is.
type OrgItem struct {
	Identifier    string    `json:"identifier,omitempty"`
	IdentifierRef string    `json:"identifierRef,omitempty"`
	Label         *Text     `json:"label,omitempty"`
	Documentation *Text     `json:"documentation,omitempty"`
	Items         []OrgItem `json:"items,omitempty"`
}

// Color is an RGB color with optional alpha (0-100 per the exchange schema).
type Color struct {
	R int  `json:"r"`
	G int  `json:"g"`
	B int  `json:"b"`
	A *int `json:"a,omitempty"`
}

// Font is the style of text within a styled node or connection.
type Font struct {
	Name  string  `json:"name,omitempty"`
	Size  float64 `json:"size,omitempty"`
	Style string  `json:"style,omitempty"`
	Color *Color  `json:"color,omitempty"`
}

// Style carries the visual channels of a view node or connection.
type Style struct {
	FillColor *Color `json:"fillColor,omitempty"`
	LineColor *Color `json:"lineColor,omitempty"`
	Font      *Font  `json:"font,omitempty"`
}

// Bounds is a node's rectangle in template coordinates.
type Bounds struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Point is one bend point of a connection path.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ViewNode is one node of a diagram view: an element reference, a
// container, or a free-standing label. Child nodes and connections nest
// recursively and keep document order.
type ViewNode struct {
	ID              string           `json:"id,omitempty"`
	Type            string           `json:"type,omitempty"`
	ElementRef      string           `json:"elementRef,omitempty"`
	RelationshipRef string           `json:"relationshipRef,omitempty"`
	ViewRef         string           `json:"viewRef,omitempty"`
	Label           *Text            `json:"label,omitempty"`
	Documentation   *Text            `json:"documentation,omitempty"`
	Bounds          *Bounds          `json:"bounds,omitempty"`
	Style           *Style           `json:"style,omitempty"`
	Nodes           []ViewNode       `json:"nodes,omitempty"`
	Connections     []ViewConnection `json:"connections,omitempty"`
}

// ViewConnection is a rendered relationship (or free line) between two
// view nodes.
type ViewConnection struct {
	ID              string  `json:"id,omitempty"`
	Type            string  `json:"type,omitempty"`
	RelationshipRef string  `json:"relationshipRef,omitempty"`
	Source          string  `json:"source,omitempty"`
	Target          string  `json:"target,omitempty"`
	Label           *Text   `json:"label,omitempty"`
	Style           *Style  `json:"style,omitempty"`
	Points          []Point `json:"points,omitempty"`
}

// Viewpoint names a viewpoint definition inside the views container.
type Viewpoint struct {
	ID   string `json:"id"`
	Name *Text  `json:"name,omitempty"`
}

// ViewDiagram is one diagram view: a named layout over a subset of the
// model with explicit geometry.
type ViewDiagram struct {
	ID            string           `json:"id"`
	Type          string           `json:"type,omitempty"`
	Viewpoint     string           `json:"viewpoint,omitempty"`
	Name          *Text            `json:"name,omitempty"`
	Documentation *Text            `json:"documentation,omitempty"`
	Nodes         []ViewNode       `json:"nodes,omitempty"`
	Connections   []ViewConnection `json:"connections,omitempty"`
}

// Views groups viewpoints and diagrams. The schema requires viewpoints to
// precede diagrams in the serialized document.
type Views struct {
	Viewpoints []Viewpoint   `json:"viewpoints,omitempty"`
	Diagrams   []ViewDiagram `json:"diagrams,omitempty"`
}

// Blueprint is the full parsed model. It also serves as the shape of
// override documents (every field optional) and of the consolidated model.
type Blueprint struct {
	ModelIdentifier    string         `json:"modelIdentifier,omitempty"`
	ModelName          *Text          `json:"modelName,omitempty"`
	ModelDocumentation *Text          `json:"modelDocumentation,omitempty"`
	Elements           []Element      `json:"elements,omitempty"`
	Relationships      []Relationship `json:"relationships,omitempty"`
	Organizations      []OrgItem      `json:"organizations,omitempty"`
	Views              Views          `json:"views,omitempty"`
}

// ElementByID returns the element with the given identifier, or nil.
func (b *Blueprint) ElementByID(id string) *Element {
	for i := range b.Elements {
		if b.Elements[i].ID == id {
			return &b.Elements[i]
		}
	}
	return nil
}

// RelationshipByID returns the relationship with the given identifier, or nil.
func (b *Blueprint) RelationshipByID(id string) *Relationship {
	for i := range b.Relationships {
		if b.Relationships[i].ID == id {
			return &b.Relationships[i]
		}
	}
	return nil
}

// ViewByID returns the diagram view with the given identifier, or nil.
func (b *Blueprint) ViewByID(id string) *ViewDiagram {
	for i := range b.Views.Diagrams {
		if b.Views.Diagrams[i].ID == id {
			return &b.Views.Diagrams[i]
		}
	}
	return nil
}

// KnownIdentifiers collects every identifier that organization items and
// view references may legally point at: elements, relationships, and views.
func (b *Blueprint) KnownIdentifiers() map[string]bool {
	ids := make(map[string]bool, len(b.Elements)+len(b.Relationships)+len(b.Views.Diagrams))
	for i := range b.Elements {
		ids[b.Elements[i].ID] = true
	}
	for i := range b.Relationships {
		ids[b.Relationships[i].ID] = true
	}
	for i := range b.Views.Diagrams {
		ids[b.Views.Diagrams[i].ID] = true
	}
	return ids
}

// Clone returns a deep copy of the blueprint. The merge engine mutates its
// working copy, never the cached blueprint.
func (b *Blueprint) Clone() *Blueprint {
	if b == nil {
		return nil
	}
	out := &Blueprint{
		ModelIdentifier:    b.ModelIdentifier,
		ModelName:          cloneText(b.ModelName),
		ModelDocumentation: cloneText(b.ModelDocumentation),
	}
	for i := range b.Elements {
		out.Elements = append(out.Elements, cloneElement(&b.Elements[i]))
	}
	for i := range b.Relationships {
		out.Relationships = append(out.Relationships, cloneRelationship(&b.Relationships[i]))
	}
	for i := range b.Organizations {
		out.Organizations = append(out.Organizations, cloneOrgItem(&b.Organizations[i]))
	}
	for i := range b.Views.Viewpoints {
		vp := b.Views.Viewpoints[i]
		vp.Name = cloneText(vp.Name)
		out.Views.Viewpoints = append(out.Views.Viewpoints, vp)
	}
	for i := range b.Views.Diagrams {
		out.Views.Diagrams = append(out.Views.Diagrams, cloneViewDiagram(&b.Views.Diagrams[i]))
	}
	return out
}

func cloneText(t *Text) *Text {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneProperties(ps []Property) []Property {
	if ps == nil {
		return nil
	}
	out := make([]Property, len(ps))
	for i, p := range ps {
		p.Value = cloneText(p.Value)
		out[i] = p
	}
	return out
}

func cloneElement(e *Element) Element {
	c := *e
	c.Name = cloneText(e.Name)
	c.Documentation = cloneText(e.Documentation)
	c.Properties = cloneProperties(e.Properties)
	return c
}

func cloneRelationship(r *Relationship) Relationship {
	c := *r
	c.Name = cloneText(r.Name)
	c.Documentation = cloneText(r.Documentation)
	c.Properties = cloneProperties(r.Properties)
	return c
}

func cloneOrgItem(it *OrgItem) OrgItem {
	c := *it
	c.Label = cloneText(it.Label)
	c.Documentation = cloneText(it.Documentation)
	c.Items = nil
	for i := range it.Items {
		c.Items = append(c.Items, cloneOrgItem(&it.Items[i]))
	}
	return c
}

func cloneColor(c *Color) *Color {
	if c == nil {
		return nil
	}
	out := *c
	if c.A != nil {
		a := *c.A
		out.A = &a
	}
	return &out
}

func cloneStyle(s *Style) *Style {
	if s == nil {
		return nil
	}
	out := &Style{
		FillColor: cloneColor(s.FillColor),
		LineColor: cloneColor(s.LineColor),
	}
	if s.Font != nil {
		f := *s.Font
		f.Color = cloneColor(s.Font.Color)
		out.Font = &f
	}
	return out
}

func cloneBounds(b *Bounds) *Bounds {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}

func cloneViewNode(n *ViewNode) ViewNode {
	c := *n
	c.Label = cloneText(n.Label)
	c.Documentation = cloneText(n.Documentation)
	c.Bounds = cloneBounds(n.Bounds)
	c.Style = cloneStyle(n.Style)
	c.Nodes = nil
	for i := range n.Nodes {
		c.Nodes = append(c.Nodes, cloneViewNode(&n.Nodes[i]))
	}
	c.Connections = nil
	for i := range n.Connections {
		c.Connections = append(c.Connections, cloneViewConnection(&n.Connections[i]))
	}
	return c
}

func cloneViewConnection(cn *ViewConnection) ViewConnection {
	c := *cn
	c.Label = cloneText(cn.Label)
	c.Style = cloneStyle(cn.Style)
	if cn.Points != nil {
		c.Points = append([]Point(nil), cn.Points...)
	}
	return c
}

func cloneViewDiagram(v *ViewDiagram) ViewDiagram {
	c := *v
	c.Name = cloneText(v.Name)
	c.Documentation = cloneText(v.Documentation)
	c.Nodes = nil
	for i := range v.Nodes {
		c.Nodes = append(c.Nodes, cloneViewNode(&v.Nodes[i]))
	}
	c.Connections = nil
	for i := range v.Connections {
		c.Connections = append(c.Connections, cloneViewConnection(&v.Connections[i]))
	}
	return c
}
