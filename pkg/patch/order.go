package patch

import "github.com/beevik/etree"

// childOrder lists the schema-mandated sequence of direct children per
// parent tag. Insertions compute their index from these tables instead of
// appending, so a patched document serializes in valid order no matter what
// order the override supplied its keys in.
var childOrder = map[string][]string{
	"model": {
		"name", "documentation", "properties", "metadata",
		"elements", "relationships", "organizations",
		"propertyDefinitions", "views",
	},
	"element":      {"name", "documentation", "properties"},
	"relationship": {"name", "documentation", "properties"},
	"item":         {"label", "documentation", "item"},
	"views":        {"viewpoints", "diagrams"},
	"view":         {"name", "documentation", "properties", "node", "connection"},
	"node":         {"label", "documentation", "style", "node", "connection"},
	"connection":   {"label", "documentation", "style", "bendpoint"},
	"property":     {"value"},
	"viewpoint":    {"name"},
}

// orderIndex returns the position of tag in the parent's ordering table, or
// a large index for tags the table does not know (they sort last).
func orderIndex(parentTag, tag string) int {
	table, ok := childOrder[parentTag]
	if !ok {
		return 1 << 20
	}
	for i, t := range table {
		if t == tag {
			return i
		}
	}
	return 1 << 20
}

// insertOrdered places child under parent at the position the ordering
// table mandates: immediately before the first existing child whose tag
// sorts after it, or at the end.
func insertOrdered(parent, child *etree.Element) {
	idx := orderIndex(parent.Tag, child.Tag)
	for i, tok := range parent.Child {
		el, ok := tok.(*etree.Element)
		if !ok {
			continue
		}
		if orderIndex(parent.Tag, el.Tag) > idx {
			parent.InsertChildAt(i, child)
			return
		}
	}
	parent.AddChild(child)
}

// findChild returns the first direct child element with the given local tag.
func findChild(parent *etree.Element, tag string) *etree.Element {
	for _, child := range parent.ChildElements() {
		if child.Tag == tag {
			return child
		}
	}
	return nil
}

// findChildren returns all direct children with the given local tag.
func findChildren(parent *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	for _, child := range parent.ChildElements() {
		if child.Tag == tag {
			out = append(out, child)
		}
	}
	return out
}

// ensureChild returns the direct child with the given tag, creating and
// order-inserting it when absent. New elements inherit the parent's
// namespace implicitly (no prefix).
func ensureChild(parent *etree.Element, tag string) *etree.Element {
	if el := findChild(parent, tag); el != nil {
		return el
	}
	el := etree.NewElement(tag)
	insertOrdered(parent, el)
	return el
}

// firstElementIndex returns the token index of the first child element, or
// len(parent.Child) when there is none.
func firstElementIndex(parent *etree.Element) int {
	for i, tok := range parent.Child {
		if _, ok := tok.(*etree.Element); ok {
			return i
		}
	}
	return len(parent.Child)
}

// moveToFront detaches child and re-inserts it as the parent's first
// element child.
func moveToFront(parent, child *etree.Element) {
	parent.RemoveChild(child)
	parent.InsertChildAt(firstElementIndex(parent), child)
}
