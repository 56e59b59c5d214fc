package patch

import "github.com/beevik/etree"

// pruneOrganizations removes organization items whose identifierRef does
// not resolve against the known identifier set, then repeatedly removes
// container items left with neither a reference nor child items, until a
// fixed point is reached. An empty organizations container is itself
// removed: the schema forbids an organizations element without items.
func pruneOrganizations(root *etree.Element, known map[string]bool) {
	container := findChild(root, "organizations")
	if container == nil {
		return
	}

	for pruneOrgPass(container, known) {
	}

	if findChild(container, "item") == nil {
		root.RemoveChild(container)
	}
}

// pruneOrgPass makes one removal sweep and reports whether anything was
// removed.
func pruneOrgPass(parent *etree.Element, known map[string]bool) bool {
	removed := false
	for _, item := range findChildren(parent, "item") {
		if pruneOrgPass(item, known) {
			removed = true
		}
		ref := item.SelectAttrValue("identifierRef", "")
		switch {
		case ref != "" && !known[ref]:
			parent.RemoveChild(item)
			removed = true
		case ref == "" && findChild(item, "item") == nil:
			parent.RemoveChild(item)
			removed = true
		}
	}
	return removed
}
