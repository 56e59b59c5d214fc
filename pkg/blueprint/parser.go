// Package blueprint parses ArchiMate exchange-format template documents
// into the in-memory model. Parsing is a pure read: the document tree is
// never mutated, so the same parsed document can later serve as the
// copy-patch target.
package blueprint

import (
	"os"
	"strconv"

	"github.com/beevik/etree"

	"github.com/archifact/archifact/pkg/errors"
	"github.com/archifact/archifact/pkg/model"
)

// Parse reads and parses the template file at path.
func Parse(path string) (*model.Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTemplateNotFound, err, "reading template %s", path)
	}
	return ParseBytes(data, path)
}

// ParseBytes parses template XML held in memory. The path argument is used
// only for error context.
func ParseBytes(data []byte, path string) (*model.Blueprint, error) {
	doc, err := ParseDocument(data, path)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc, path)
}

// ParseDocument parses raw XML into an etree document without building the
// abstract model. The copy-patch writer operates on this tree directly.
func ParseDocument(data []byte, path string) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedTemplate, err, "template %s is not well-formed XML", path)
	}
	if doc.Root() == nil {
		return nil, errors.New(errors.ErrCodeMalformedTemplate, "template %s has no root element", path)
	}
	return doc, nil
}

// FromDocument extracts the blueprint from an already-parsed document.
func FromDocument(doc *etree.Document, path string) (*model.Blueprint, error) {
	root := doc.Root()
	if root == nil || localName(root) != "model" {
		return nil, errors.New(errors.ErrCodeMalformedTemplate,
			"template %s: expected a model root element, found %q", path, rootTag(root))
	}

	bp := &model.Blueprint{
		ModelIdentifier: root.SelectAttrValue("identifier", ""),
	}
	if el := childByName(root, "name"); el != nil {
		bp.ModelName = parseText(el)
	}
	if el := childByName(root, "documentation"); el != nil {
		bp.ModelDocumentation = parseText(el)
	}

	if container := childByName(root, "elements"); container != nil {
		for _, el := range childrenByName(container, "element") {
			bp.Elements = append(bp.Elements, parseElement(el))
		}
	}
	if container := childByName(root, "relationships"); container != nil {
		for _, el := range childrenByName(container, "relationship") {
			bp.Relationships = append(bp.Relationships, parseRelationship(el))
		}
	}
	if container := childByName(root, "organizations"); container != nil {
		for _, el := range childrenByName(container, "item") {
			bp.Organizations = append(bp.Organizations, parseOrgItem(el))
		}
	}
	if views := childByName(root, "views"); views != nil {
		if vps := childByName(views, "viewpoints"); vps != nil {
			for _, el := range childrenByName(vps, "viewpoint") {
				vp := model.Viewpoint{ID: el.SelectAttrValue("identifier", "")}
				if n := childByName(el, "name"); n != nil {
					vp.Name = parseText(n)
				}
				bp.Views.Viewpoints = append(bp.Views.Viewpoints, vp)
			}
		}
		if diags := childByName(views, "diagrams"); diags != nil {
			for _, el := range childrenByName(diags, "view") {
				bp.Views.Diagrams = append(bp.Views.Diagrams, parseView(el))
			}
		}
	}
	return bp, nil
}

func parseElement(el *etree.Element) model.Element {
	e := model.Element{
		ID:   el.SelectAttrValue("identifier", ""),
		Type: xsiType(el),
	}
	if n := childByName(el, "name"); n != nil {
		e.Name = parseText(n)
	}
	if d := childByName(el, "documentation"); d != nil {
		e.Documentation = parseText(d)
	}
	e.Properties = parseProperties(el)
	return e
}

func parseRelationship(el *etree.Element) model.Relationship {
	r := model.Relationship{
		ID:     el.SelectAttrValue("identifier", ""),
		Type:   xsiType(el),
		Source: el.SelectAttrValue("source", ""),
		Target: el.SelectAttrValue("target", ""),
	}
	if n := childByName(el, "name"); n != nil {
		r.Name = parseText(n)
	}
	if d := childByName(el, "documentation"); d != nil {
		r.Documentation = parseText(d)
	}
	r.Properties = parseProperties(el)
	return r
}

func parseProperties(el *etree.Element) []model.Property {
	container := childByName(el, "properties")
	if container == nil {
		return nil
	}
	var out []model.Property
	for _, p := range childrenByName(container, "property") {
		prop := model.Property{
			PropertyDefinitionRef: p.SelectAttrValue("propertyDefinitionRef", ""),
		}
		if v := childByName(p, "value"); v != nil {
			prop.Value = parseText(v)
		}
		out = append(out, prop)
	}
	return out
}

func parseOrgItem(el *etree.Element) model.OrgItem {
	item := model.OrgItem{
		Identifier:    el.SelectAttrValue("identifier", ""),
		IdentifierRef: el.SelectAttrValue("identifierRef", ""),
	}
	if l := childByName(el, "label"); l != nil {
		item.Label = parseText(l)
	}
	if d := childByName(el, "documentation"); d != nil {
		item.Documentation = parseText(d)
	}
	for _, child := range childrenByName(el, "item") {
		item.Items = append(item.Items, parseOrgItem(child))
	}
	return item
}

func parseView(el *etree.Element) model.ViewDiagram {
	v := model.ViewDiagram{
		ID:        el.SelectAttrValue("identifier", ""),
		Type:      xsiType(el),
		Viewpoint: viewpointRef(el),
	}
	if n := childByName(el, "name"); n != nil {
		v.Name = parseText(n)
	}
	if d := childByName(el, "documentation"); d != nil {
		v.Documentation = parseText(d)
	}
	// Nodes and connections keep the exact document order encountered.
	for _, child := range el.ChildElements() {
		switch localName(child) {
		case "node":
			v.Nodes = append(v.Nodes, parseNode(child))
		case "connection":
			v.Connections = append(v.Connections, parseConnection(child))
		}
	}
	return v
}

func parseNode(el *etree.Element) model.ViewNode {
	n := model.ViewNode{
		ID:              el.SelectAttrValue("identifier", ""),
		Type:            xsiType(el),
		ElementRef:      el.SelectAttrValue("elementRef", ""),
		RelationshipRef: el.SelectAttrValue("relationshipRef", ""),
		ViewRef:         el.SelectAttrValue("viewRef", ""),
		Bounds:          parseBounds(el),
	}
	if l := childByName(el, "label"); l != nil {
		n.Label = parseText(l)
	}
	if d := childByName(el, "documentation"); d != nil {
		n.Documentation = parseText(d)
	}
	if s := childByName(el, "style"); s != nil {
		n.Style = parseStyle(s)
	}
	for _, child := range el.ChildElements() {
		switch localName(child) {
		case "node":
			n.Nodes = append(n.Nodes, parseNode(child))
		case "connection":
			n.Connections = append(n.Connections, parseConnection(child))
		}
	}
	return n
}

func parseConnection(el *etree.Element) model.ViewConnection {
	c := model.ViewConnection{
		ID:              el.SelectAttrValue("identifier", ""),
		Type:            xsiType(el),
		RelationshipRef: el.SelectAttrValue("relationshipRef", ""),
		Source:          el.SelectAttrValue("source", ""),
		Target:          el.SelectAttrValue("target", ""),
	}
	if l := childByName(el, "label"); l != nil {
		c.Label = parseText(l)
	}
	if s := childByName(el, "style"); s != nil {
		c.Style = parseStyle(s)
	}
	for _, bp := range childrenByName(el, "bendpoint") {
		c.Points = append(c.Points, model.Point{
			X: floatAttr(bp, "x"),
			Y: floatAttr(bp, "y"),
		})
	}
	return c
}

func parseBounds(el *etree.Element) *model.Bounds {
	if el.SelectAttr("x") == nil && el.SelectAttr("y") == nil &&
		el.SelectAttr("w") == nil && el.SelectAttr("h") == nil {
		return nil
	}
	return &model.Bounds{
		X: floatAttr(el, "x"),
		Y: floatAttr(el, "y"),
		W: floatAttr(el, "w"),
		H: floatAttr(el, "h"),
	}
}

func parseStyle(el *etree.Element) *model.Style {
	s := &model.Style{}
	if fc := childByName(el, "fillColor"); fc != nil {
		s.FillColor = parseColor(fc)
	}
	if lc := childByName(el, "lineColor"); lc != nil {
		s.LineColor = parseColor(lc)
	}
	if f := childByName(el, "font"); f != nil {
		font := &model.Font{
			Name:  f.SelectAttrValue("name", ""),
			Size:  floatAttr(f, "size"),
			Style: f.SelectAttrValue("style", ""),
		}
		if c := childByName(f, "color"); c != nil {
			font.Color = parseColor(c)
		}
		s.Font = font
	}
	return s
}

func parseColor(el *etree.Element) *model.Color {
	c := &model.Color{
		R: intAttr(el, "r"),
		G: intAttr(el, "g"),
		B: intAttr(el, "b"),
	}
	if el.SelectAttr("a") != nil {
		a := intAttr(el, "a")
		c.A = &a
	}
	return c
}

func parseText(el *etree.Element) *model.Text {
	return &model.Text{
		Text: el.Text(),
		Lang: langAttr(el),
	}
}

// localName returns an element's tag without any namespace prefix.
func localName(el *etree.Element) string {
	return el.Tag
}

func rootTag(el *etree.Element) string {
	if el == nil {
		return ""
	}
	return el.Tag
}

// childByName returns the first direct child with the given local name.
func childByName(el *etree.Element, name string) *etree.Element {
	for _, child := range el.ChildElements() {
		if localName(child) == name {
			return child
		}
	}
	return nil
}

// childrenByName returns all direct children with the given local name, in
// document order.
func childrenByName(el *etree.Element, name string) []*etree.Element {
	var out []*etree.Element
	for _, child := range el.ChildElements() {
		if localName(child) == name {
			out = append(out, child)
		}
	}
	return out
}

// xsiType returns the local part of the xsi:type attribute, stripping any
// namespace prefix the exporting tool may have used.
func xsiType(el *etree.Element) string {
	for _, a := range el.Attr {
		if a.Key == "type" && (a.Space == "xsi" || a.Space == "") {
			return stripPrefix(a.Value)
		}
	}
	return ""
}

func stripPrefix(v string) string {
	for i := 0; i < len(v); i++ {
		if v[i] == ':' {
			return v[i+1:]
		}
	}
	return v
}

func langAttr(el *etree.Element) string {
	for _, a := range el.Attr {
		if a.Key == "lang" && a.Space == "xml" {
			return a.Value
		}
	}
	return ""
}

func viewpointRef(el *etree.Element) string {
	if v := el.SelectAttrValue("viewpointRef", ""); v != "" {
		return v
	}
	return el.SelectAttrValue("viewpoint", "")
}

func floatAttr(el *etree.Element, key string) float64 {
	v := el.SelectAttrValue(key, "")
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

func intAttr(el *etree.Element, key string) int {
	v := el.SelectAttrValue(key, "")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
