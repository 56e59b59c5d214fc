// Package patch mutates a copy of the original template document to
// reflect a consolidated model, then serializes it. The original tree is
// the structural source of truth: regions the consolidated model does not
// touch survive byte-for-byte, namespace declarations included. The
// consolidated model only supplies values.
package patch

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/archifact/archifact/pkg/errors"
	"github.com/archifact/archifact/pkg/model"
)

// crEntity is the literal numeric character entity the target tool expects
// between documentation lines. It is written into text verbatim and
// un-escaped again after serialization.
const crEntity = "&#xD;"

// defaultViewpointID identifies the viewpoint synthesized when a document
// defines none (the schema requires at least one).
const (
	defaultViewpointID   = "id-viewpoint-default"
	defaultViewpointName = "Default Viewpoint"
)

// relationshipTypes enumerates the xsi:type local names the relationship
// schema accepts. Values arriving with a "...Relationship" suffix are
// normalized onto these.
var relationshipTypes = map[string]bool{
	"Composition":    true,
	"Aggregation":    true,
	"Assignment":     true,
	"Realization":    true,
	"Serving":        true,
	"Access":         true,
	"Influence":      true,
	"Triggering":     true,
	"Flow":           true,
	"Specialization": true,
	"Association":    true,
}

// Patch applies the consolidated model onto a deep copy of the original
// document and returns the serialized XML text. The input document is not
// modified.
func Patch(original *etree.Document, consolidated *model.Blueprint) (string, error) {
	doc := original.Copy()
	root := doc.Root()
	if root == nil || root.Tag != "model" {
		return "", errors.New(errors.ErrCodeTemplateStructure, "document has no model root element")
	}

	elements := findChild(root, "elements")
	relationships := findChild(root, "relationships")
	views := findChild(root, "views")
	if elements == nil {
		return "", errors.New(errors.ErrCodeTemplateStructure, "model is missing the elements anchor")
	}
	if relationships == nil {
		return "", errors.New(errors.ErrCodeTemplateStructure, "model is missing the relationships anchor")
	}
	if views == nil {
		return "", errors.New(errors.ErrCodeTemplateStructure, "model is missing the views anchor")
	}

	if consolidated.ModelIdentifier != "" {
		root.CreateAttr("identifier", consolidated.ModelIdentifier)
	}
	upsertText(root, "name", consolidated.ModelName, false)
	upsertText(root, "documentation", consolidated.ModelDocumentation, true)

	patchElements(elements, consolidated.Elements)
	patchRelationships(relationships, consolidated.Relationships)
	patchOrganizations(root, consolidated.Organizations)
	patchViews(views, &consolidated.Views)

	normalizeViews(views)
	pruneOrganizations(root, consolidated.KnownIdentifiers())

	return serialize(doc)
}

func patchElements(container *etree.Element, elements []model.Element) {
	index := indexByIdentifier(container, "element")
	for i := range elements {
		e := &elements[i]
		el, ok := index[e.ID]
		if !ok {
			el = etree.NewElement("element")
			el.CreateAttr("identifier", e.ID)
			container.AddChild(el)
			index[e.ID] = el
		}
		if e.Type != "" {
			setXSIType(el, e.Type)
		}
		upsertText(el, "name", e.Name, false)
		upsertText(el, "documentation", e.Documentation, true)
		patchProperties(el, e.Properties)
	}
}

func patchRelationships(container *etree.Element, relationships []model.Relationship) {
	index := indexByIdentifier(container, "relationship")
	for i := range relationships {
		r := &relationships[i]
		el, ok := index[r.ID]
		if !ok {
			el = etree.NewElement("relationship")
			el.CreateAttr("identifier", r.ID)
			container.AddChild(el)
			index[r.ID] = el
		}
		if r.Type != "" {
			setXSIType(el, normalizeRelationshipType(r.Type))
		}
		if r.Source != "" {
			el.CreateAttr("source", r.Source)
		}
		if r.Target != "" {
			el.CreateAttr("target", r.Target)
		}
		upsertText(el, "name", r.Name, false)
		upsertText(el, "documentation", r.Documentation, true)
		patchProperties(el, r.Properties)
	}
}

func patchProperties(parent *etree.Element, properties []model.Property) {
	if len(properties) == 0 {
		return
	}
	container := ensureChild(parent, "properties")
	index := make(map[string]*etree.Element)
	for _, p := range findChildren(container, "property") {
		index[p.SelectAttrValue("propertyDefinitionRef", "")] = p
	}
	for i := range properties {
		p := &properties[i]
		el, ok := index[p.PropertyDefinitionRef]
		if !ok {
			el = etree.NewElement("property")
			el.CreateAttr("propertyDefinitionRef", p.PropertyDefinitionRef)
			container.AddChild(el)
			index[p.PropertyDefinitionRef] = el
		}
		upsertText(el, "value", p.Value, false)
	}
}

func patchOrganizations(root *etree.Element, items []model.OrgItem) {
	if len(items) == 0 {
		return
	}
	container := ensureChild(root, "organizations")
	patchOrgItems(container, items)
}

func patchOrgItems(parent *etree.Element, items []model.OrgItem) {
	index := make(map[string]*etree.Element)
	for _, el := range findChildren(parent, "item") {
		if k := orgElementKey(el); k != "" {
			index[k] = el
		}
	}
	for i := range items {
		it := &items[i]
		k := orgItemKey(it)
		el, ok := index[k]
		if k == "" || !ok {
			el = etree.NewElement("item")
			if it.Identifier != "" {
				el.CreateAttr("identifier", it.Identifier)
			}
			if it.IdentifierRef != "" {
				el.CreateAttr("identifierRef", it.IdentifierRef)
			}
			insertOrdered(parent, el)
			if k != "" {
				index[k] = el
			}
		}
		upsertText(el, "label", it.Label, false)
		upsertText(el, "documentation", it.Documentation, true)
		patchOrgItems(el, it.Items)
	}
}

func orgItemKey(it *model.OrgItem) string {
	switch {
	case it.Identifier != "":
		return "identifier:" + it.Identifier
	case it.IdentifierRef != "":
		return "identifierRef:" + it.IdentifierRef
	case it.Label != nil:
		return "label:" + it.Label.Text
	default:
		return ""
	}
}

func orgElementKey(el *etree.Element) string {
	if v := el.SelectAttrValue("identifier", ""); v != "" {
		return "identifier:" + v
	}
	if v := el.SelectAttrValue("identifierRef", ""); v != "" {
		return "identifierRef:" + v
	}
	if l := findChild(el, "label"); l != nil {
		return "label:" + l.Text()
	}
	return ""
}

func patchViews(views *etree.Element, consolidated *model.Views) {
	if len(consolidated.Viewpoints) > 0 {
		vps := ensureChild(views, "viewpoints")
		index := indexByIdentifier(vps, "viewpoint")
		for i := range consolidated.Viewpoints {
			vp := &consolidated.Viewpoints[i]
			el, ok := index[vp.ID]
			if !ok {
				el = etree.NewElement("viewpoint")
				el.CreateAttr("identifier", vp.ID)
				vps.AddChild(el)
				index[vp.ID] = el
			}
			upsertText(el, "name", vp.Name, false)
		}
	}

	if len(consolidated.Diagrams) == 0 {
		return
	}
	diagrams := ensureChild(views, "diagrams")
	index := indexByIdentifier(diagrams, "view")
	for i := range consolidated.Diagrams {
		v := &consolidated.Diagrams[i]
		el, ok := index[v.ID]
		if !ok {
			el = etree.NewElement("view")
			el.CreateAttr("identifier", v.ID)
			diagrams.AddChild(el)
			index[v.ID] = el
		}
		typ := v.Type
		if typ == "" {
			typ = "Diagram"
		}
		setXSIType(el, typ)
		if v.Viewpoint != "" && el.SelectAttr("viewpointRef") == nil && el.SelectAttr("viewpoint") == nil {
			el.CreateAttr("viewpointRef", v.Viewpoint)
		}
		upsertText(el, "name", v.Name, false)
		upsertText(el, "documentation", v.Documentation, true)
		patchNodes(el, v.Nodes)
		patchConnections(el, v.Connections)
	}
}

func patchNodes(parent *etree.Element, nodes []model.ViewNode) {
	index := make(map[string]*etree.Element)
	for _, el := range findChildren(parent, "node") {
		if k := nodeElementKey(el); k != "" {
			index[k] = el
		}
	}
	for i := range nodes {
		n := &nodes[i]
		k := nodeModelKey(n)
		el, ok := index[k]
		if k == "" || !ok {
			el = etree.NewElement("node")
			if n.ID != "" {
				el.CreateAttr("identifier", n.ID)
			}
			insertOrdered(parent, el)
			if k != "" {
				index[k] = el
			}
		}
		setXSIType(el, nodeType(n))
		if n.ElementRef != "" {
			el.CreateAttr("elementRef", n.ElementRef)
		}
		if n.RelationshipRef != "" {
			el.CreateAttr("relationshipRef", n.RelationshipRef)
		}
		if n.ViewRef != "" {
			el.CreateAttr("viewRef", n.ViewRef)
		}
		if n.Bounds != nil {
			el.CreateAttr("x", formatNum(n.Bounds.X))
			el.CreateAttr("y", formatNum(n.Bounds.Y))
			el.CreateAttr("w", formatNum(n.Bounds.W))
			el.CreateAttr("h", formatNum(n.Bounds.H))
		}
		upsertText(el, "label", n.Label, false)
		upsertText(el, "documentation", n.Documentation, true)
		patchStyle(el, n.Style)
		patchNodes(el, n.Nodes)
		patchConnections(el, n.Connections)
	}
}

func patchConnections(parent *etree.Element, connections []model.ViewConnection) {
	index := make(map[string]*etree.Element)
	for _, el := range findChildren(parent, "connection") {
		if k := connectionElementKey(el); k != "" {
			index[k] = el
		}
	}
	for i := range connections {
		c := &connections[i]
		k := connectionModelKey(c)
		el, ok := index[k]
		if k == "" || !ok {
			el = etree.NewElement("connection")
			if c.ID != "" {
				el.CreateAttr("identifier", c.ID)
			}
			insertOrdered(parent, el)
			if k != "" {
				index[k] = el
			}
		}
		setXSIType(el, connectionType(c))
		if c.RelationshipRef != "" {
			el.CreateAttr("relationshipRef", c.RelationshipRef)
		}
		if c.Source != "" {
			el.CreateAttr("source", c.Source)
		}
		if c.Target != "" {
			el.CreateAttr("target", c.Target)
		}
		upsertText(el, "label", c.Label, false)
		patchStyle(el, c.Style)
		if c.Points != nil {
			for _, bp := range findChildren(el, "bendpoint") {
				el.RemoveChild(bp)
			}
			for _, p := range c.Points {
				bp := etree.NewElement("bendpoint")
				bp.CreateAttr("x", formatNum(p.X))
				bp.CreateAttr("y", formatNum(p.Y))
				insertOrdered(el, bp)
			}
		}
	}
}

func patchStyle(parent *etree.Element, style *model.Style) {
	if style == nil {
		return
	}
	el := ensureChild(parent, "style")
	if style.FillColor != nil {
		patchColor(ensureChild(el, "fillColor"), style.FillColor)
	}
	if style.LineColor != nil {
		patchColor(ensureChild(el, "lineColor"), style.LineColor)
	}
	if style.Font != nil {
		f := ensureChild(el, "font")
		if style.Font.Name != "" {
			f.CreateAttr("name", style.Font.Name)
		}
		if style.Font.Size != 0 {
			f.CreateAttr("size", formatNum(style.Font.Size))
		}
		if style.Font.Style != "" {
			f.CreateAttr("style", style.Font.Style)
		}
		if style.Font.Color != nil {
			patchColor(ensureChild(f, "color"), style.Font.Color)
		}
	}
}

func patchColor(el *etree.Element, c *model.Color) {
	el.CreateAttr("r", strconv.Itoa(c.R))
	el.CreateAttr("g", strconv.Itoa(c.G))
	el.CreateAttr("b", strconv.Itoa(c.B))
	if c.A != nil {
		el.CreateAttr("a", strconv.Itoa(*c.A))
	}
}

// nodeType infers the xsi:type of a view node when the model carries none:
// an element reference renders as Element, a bare label as Label, anything
// else as Container.
func nodeType(n *model.ViewNode) string {
	if n.Type != "" {
		return n.Type
	}
	switch {
	case n.ElementRef != "":
		return "Element"
	case n.Label != nil && n.RelationshipRef == "":
		return "Label"
	default:
		return "Container"
	}
}

// connectionType infers Relationship for connections bound to a
// relationship and Line for free-standing ones.
func connectionType(c *model.ViewConnection) string {
	if c.Type != "" {
		return c.Type
	}
	if c.RelationshipRef != "" {
		return "Relationship"
	}
	return "Line"
}

func nodeModelKey(n *model.ViewNode) string {
	switch {
	case n.ID != "":
		return n.ID
	case n.ElementRef != "":
		return "elementRef:" + n.ElementRef
	case n.RelationshipRef != "":
		return "relationshipRef:" + n.RelationshipRef
	case n.ViewRef != "":
		return "viewRef:" + n.ViewRef
	default:
		return ""
	}
}

func nodeElementKey(el *etree.Element) string {
	if v := el.SelectAttrValue("identifier", ""); v != "" {
		return v
	}
	if v := el.SelectAttrValue("elementRef", ""); v != "" {
		return "elementRef:" + v
	}
	if v := el.SelectAttrValue("relationshipRef", ""); v != "" {
		return "relationshipRef:" + v
	}
	if v := el.SelectAttrValue("viewRef", ""); v != "" {
		return "viewRef:" + v
	}
	return ""
}

func connectionModelKey(c *model.ViewConnection) string {
	switch {
	case c.ID != "":
		return c.ID
	case c.RelationshipRef != "":
		return "relationshipRef:" + c.RelationshipRef
	case c.Source != "" || c.Target != "":
		return "endpoints:" + c.Source + "->" + c.Target
	default:
		return ""
	}
}

func connectionElementKey(el *etree.Element) string {
	if v := el.SelectAttrValue("identifier", ""); v != "" {
		return v
	}
	if v := el.SelectAttrValue("relationshipRef", ""); v != "" {
		return "relationshipRef:" + v
	}
	src := el.SelectAttrValue("source", "")
	tgt := el.SelectAttrValue("target", "")
	if src != "" || tgt != "" {
		return "endpoints:" + src + "->" + tgt
	}
	return ""
}

// normalizeViews enforces the views container's schema sequence: a
// viewpoints element precedes diagrams and defines at least one viewpoint,
// and every view leads with its name element.
func normalizeViews(views *etree.Element) {
	vps := findChild(views, "viewpoints")
	if vps == nil {
		vps = etree.NewElement("viewpoints")
		insertOrdered(views, vps)
	} else {
		// insertOrdered places viewpoints before diagrams; re-run the
		// placement in case the source document had them reversed.
		views.RemoveChild(vps)
		insertOrdered(views, vps)
	}
	if findChild(vps, "viewpoint") == nil {
		vp := etree.NewElement("viewpoint")
		vp.CreateAttr("identifier", defaultViewpointID)
		name := etree.NewElement("name")
		name.SetText(defaultViewpointName)
		vp.AddChild(name)
		vps.AddChild(vp)
	}

	diagrams := findChild(views, "diagrams")
	if diagrams == nil {
		return
	}
	for _, view := range findChildren(diagrams, "view") {
		name := findChild(view, "name")
		if name == nil {
			name = etree.NewElement("name")
			name.SetText("View")
			view.InsertChildAt(firstElementIndex(view), name)
			continue
		}
		if first := view.ChildElements(); len(first) > 0 && first[0] != name {
			moveToFront(view, name)
		}
	}
}

// indexByIdentifier maps identifier attribute values to child elements of
// the given tag.
func indexByIdentifier(parent *etree.Element, tag string) map[string]*etree.Element {
	index := make(map[string]*etree.Element)
	for _, el := range findChildren(parent, tag) {
		if id := el.SelectAttrValue("identifier", ""); id != "" {
			index[id] = el
		}
	}
	return index
}

// setXSIType writes the xsi:type attribute as an unprefixed local name, the
// convention of the exporting tool.
func setXSIType(el *etree.Element, localType string) {
	el.CreateAttr("xsi:type", localType)
}

// upsertText inserts or replaces a localized text child at its mandated
// position. The xml:lang attribute is written only when a language was
// actually supplied. A nil value leaves any existing child untouched.
func upsertText(parent *etree.Element, tag string, t *model.Text, encodeCR bool) {
	if t == nil {
		return
	}
	el := findChild(parent, tag)
	if el == nil {
		el = etree.NewElement(tag)
		insertOrdered(parent, el)
	}
	text := t.Text
	if encodeCR {
		text = encodeNewlines(text)
	}
	el.SetText(text)
	if t.Lang != "" {
		el.CreateAttr("xml:lang", t.Lang)
	}
}

// encodeNewlines rewrites line breaks as the literal carriage-return entity
// followed by a newline. The serializer escapes the ampersand; the final
// pass in serialize undoes exactly that escape.
func encodeNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.ReplaceAll(text, "\n", crEntity+"\n")
}

// formatNum renders a coordinate without trailing zeros (12 not 12.000000).
func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// serialize emits the document with an XML declaration and stable
// indentation, then corrects the double-escaped carriage-return entities
// the emitter introduces.
func serialize(doc *etree.Document) (string, error) {
	ensureDeclaration(doc)
	doc.Indent(2)
	out, err := doc.WriteToString()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "serializing patched document")
	}
	return strings.ReplaceAll(out, "&amp;#xD;", crEntity), nil
}

func ensureDeclaration(doc *etree.Document) {
	for _, tok := range doc.Child {
		if _, ok := tok.(*etree.ProcInst); ok {
			return
		}
	}
	decl := &etree.ProcInst{Target: "xml", Inst: `version="1.0" encoding="UTF-8"`}
	doc.InsertChildAt(0, decl)
}

// normalizeRelationshipType maps "XxxRelationship" spellings onto the
// schema's bare enum names.
func normalizeRelationshipType(t string) string {
	if relationshipTypes[t] {
		return t
	}
	if trimmed := strings.TrimSuffix(t, "Relationship"); trimmed != t && relationshipTypes[trimmed] {
		return trimmed
	}
	return t
}
