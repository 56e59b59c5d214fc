// Package merge consolidates a caller-supplied override document onto a
// parsed blueprint. Overrides win at the leaf level, collections are
// unioned by identifier with template order first and new entries appended,
// and nested view structures merge recursively with the same strategy.
package merge

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/archifact/archifact/pkg/model"
)

// newIdentifier synthesizes an identifier for appended entries that arrive
// without one. XML IDs must not start with a digit, hence the prefix.
func newIdentifier() string {
	return "id-" + uuid.NewString()
}

// Merge combines blueprint and override into a consolidated model. Neither
// input is mutated. The report flags dangling references; it never causes
// the merge itself to fail.
func Merge(blueprint, override *model.Blueprint) (*model.Blueprint, *Report) {
	out := blueprint.Clone()
	report := &Report{}
	if override == nil {
		validateReferences(out, report)
		return out, report
	}

	if override.ModelIdentifier != "" {
		out.ModelIdentifier = override.ModelIdentifier
	}
	if override.ModelName != nil {
		out.ModelName = override.ModelName
	}
	if override.ModelDocumentation != nil {
		out.ModelDocumentation = override.ModelDocumentation
	}

	mergeElements(out, override.Elements, report)
	mergeRelationships(out, override.Relationships, report)
	out.Organizations = mergeOrgItems(out.Organizations, override.Organizations, report)
	mergeViews(out, &override.Views, report)

	validateReferences(out, report)
	return out, report
}

func mergeElements(out *model.Blueprint, overrides []model.Element, report *Report) {
	index := make(map[string]int, len(out.Elements))
	for i := range out.Elements {
		index[out.Elements[i].ID] = i
	}
	for _, ov := range overrides {
		if i, ok := index[ov.ID]; ok {
			dst := &out.Elements[i]
			if ov.Type != "" {
				dst.Type = ov.Type
			}
			if ov.Name != nil {
				dst.Name = ov.Name
			}
			if ov.Documentation != nil {
				dst.Documentation = ov.Documentation
			}
			dst.Properties = mergeProperties(dst.Properties, ov.Properties)
			continue
		}
		if ov.ID == "" {
			ov.ID = newIdentifier()
		}
		out.Elements = append(out.Elements, ov)
		index[ov.ID] = len(out.Elements) - 1
		report.Appended++
	}
}

func mergeRelationships(out *model.Blueprint, overrides []model.Relationship, report *Report) {
	index := make(map[string]int, len(out.Relationships))
	for i := range out.Relationships {
		index[out.Relationships[i].ID] = i
	}
	for _, ov := range overrides {
		if i, ok := index[ov.ID]; ok {
			dst := &out.Relationships[i]
			if ov.Type != "" {
				dst.Type = ov.Type
			}
			if ov.Source != "" {
				dst.Source = ov.Source
			}
			if ov.Target != "" {
				dst.Target = ov.Target
			}
			if ov.Name != nil {
				dst.Name = ov.Name
			}
			if ov.Documentation != nil {
				dst.Documentation = ov.Documentation
			}
			dst.Properties = mergeProperties(dst.Properties, ov.Properties)
			continue
		}
		if ov.ID == "" {
			ov.ID = newIdentifier()
		}
		out.Relationships = append(out.Relationships, ov)
		index[ov.ID] = len(out.Relationships) - 1
		report.Appended++
	}
}

// mergeProperties unions by propertyDefinitionRef: matching refs take the
// override value, new refs append in override order.
func mergeProperties(base, overrides []model.Property) []model.Property {
	if len(overrides) == 0 {
		return base
	}
	index := make(map[string]int, len(base))
	for i := range base {
		index[base[i].PropertyDefinitionRef] = i
	}
	for _, ov := range overrides {
		if i, ok := index[ov.PropertyDefinitionRef]; ok {
			if ov.Value != nil {
				base[i].Value = ov.Value
			}
			continue
		}
		base = append(base, ov)
		index[ov.PropertyDefinitionRef] = len(base) - 1
	}
	return base
}

// orgKey identifies an organization item for matching. Items rarely carry
// identifiers, so the reference or the label serves as the key.
func orgKey(it *model.OrgItem) string {
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

func mergeOrgItems(base, overrides []model.OrgItem, report *Report) []model.OrgItem {
	if len(overrides) == 0 {
		return base
	}
	index := make(map[string]int, len(base))
	for i := range base {
		if k := orgKey(&base[i]); k != "" {
			index[k] = i
		}
	}
	for oi := range overrides {
		ov := &overrides[oi]
		k := orgKey(ov)
		if i, ok := index[k]; k != "" && ok {
			dst := &base[i]
			if ov.Label != nil {
				dst.Label = ov.Label
			}
			if ov.Documentation != nil {
				dst.Documentation = ov.Documentation
			}
			if ov.IdentifierRef != "" {
				dst.IdentifierRef = ov.IdentifierRef
			}
			dst.Items = mergeOrgItems(dst.Items, ov.Items, report)
			continue
		}
		base = append(base, *ov)
		if k != "" {
			index[k] = len(base) - 1
		}
		report.Appended++
	}
	return base
}

func mergeViews(out *model.Blueprint, overrides *model.Views, report *Report) {
	vpIndex := make(map[string]int, len(out.Views.Viewpoints))
	for i := range out.Views.Viewpoints {
		vpIndex[out.Views.Viewpoints[i].ID] = i
	}
	for _, ov := range overrides.Viewpoints {
		if i, ok := vpIndex[ov.ID]; ok {
			if ov.Name != nil {
				out.Views.Viewpoints[i].Name = ov.Name
			}
			continue
		}
		out.Views.Viewpoints = append(out.Views.Viewpoints, ov)
		vpIndex[ov.ID] = len(out.Views.Viewpoints) - 1
		report.Appended++
	}

	dIndex := make(map[string]int, len(out.Views.Diagrams))
	for i := range out.Views.Diagrams {
		dIndex[out.Views.Diagrams[i].ID] = i
	}
	for oi := range overrides.Diagrams {
		ov := &overrides.Diagrams[oi]
		if i, ok := dIndex[ov.ID]; ok {
			dst := &out.Views.Diagrams[i]
			if ov.Type != "" {
				dst.Type = ov.Type
			}
			if ov.Viewpoint != "" {
				dst.Viewpoint = ov.Viewpoint
			}
			if ov.Name != nil {
				dst.Name = ov.Name
			}
			if ov.Documentation != nil {
				dst.Documentation = ov.Documentation
			}
			dst.Nodes = mergeNodes(dst.Nodes, ov.Nodes, report)
			dst.Connections = mergeConnections(dst.Connections, ov.Connections, report)
			continue
		}
		nv := *ov
		if nv.ID == "" {
			nv.ID = newIdentifier()
		}
		out.Views.Diagrams = append(out.Views.Diagrams, nv)
		dIndex[nv.ID] = len(out.Views.Diagrams) - 1
		report.Appended++
	}
}

// nodeKey identifies a view node. ArchiMate view nodes are frequently
// unlabeled, so the element/relationship/view reference acts as a
// composite fallback key.
func nodeKey(n *model.ViewNode) string {
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

func connectionKey(c *model.ViewConnection) string {
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

func mergeNodes(base, overrides []model.ViewNode, report *Report) []model.ViewNode {
	if len(overrides) == 0 {
		return base
	}
	index := make(map[string]int, len(base))
	for i := range base {
		if k := nodeKey(&base[i]); k != "" {
			index[k] = i
		}
	}
	for oi := range overrides {
		ov := &overrides[oi]
		k := nodeKey(ov)
		if i, ok := index[k]; k != "" && ok {
			mergeNode(&base[i], ov, report)
			continue
		}
		nv := *ov
		if nv.ID == "" {
			nv.ID = newIdentifier()
		}
		base = append(base, nv)
		index[nodeKey(&nv)] = len(base) - 1
		report.Appended++
	}
	return base
}

func mergeNode(dst, ov *model.ViewNode, report *Report) {
	if ov.Type != "" {
		dst.Type = ov.Type
	}
	if ov.ElementRef != "" {
		dst.ElementRef = ov.ElementRef
	}
	if ov.RelationshipRef != "" {
		dst.RelationshipRef = ov.RelationshipRef
	}
	if ov.ViewRef != "" {
		dst.ViewRef = ov.ViewRef
	}
	if ov.Label != nil {
		dst.Label = ov.Label
	}
	if ov.Documentation != nil {
		dst.Documentation = ov.Documentation
	}
	if ov.Bounds != nil {
		dst.Bounds = ov.Bounds
	}
	dst.Style = mergeStyle(dst.Style, ov.Style)
	dst.Nodes = mergeNodes(dst.Nodes, ov.Nodes, report)
	dst.Connections = mergeConnections(dst.Connections, ov.Connections, report)
}

func mergeConnections(base, overrides []model.ViewConnection, report *Report) []model.ViewConnection {
	if len(overrides) == 0 {
		return base
	}
	index := make(map[string]int, len(base))
	for i := range base {
		if k := connectionKey(&base[i]); k != "" {
			index[k] = i
		}
	}
	for oi := range overrides {
		ov := &overrides[oi]
		k := connectionKey(ov)
		if i, ok := index[k]; k != "" && ok {
			dst := &base[i]
			if ov.Type != "" {
				dst.Type = ov.Type
			}
			if ov.RelationshipRef != "" {
				dst.RelationshipRef = ov.RelationshipRef
			}
			if ov.Source != "" {
				dst.Source = ov.Source
			}
			if ov.Target != "" {
				dst.Target = ov.Target
			}
			if ov.Label != nil {
				dst.Label = ov.Label
			}
			if ov.Points != nil {
				dst.Points = ov.Points
			}
			dst.Style = mergeStyle(dst.Style, ov.Style)
			continue
		}
		nv := *ov
		if nv.ID == "" {
			nv.ID = newIdentifier()
		}
		base = append(base, nv)
		index[connectionKey(&nv)] = len(base) - 1
		report.Appended++
	}
	return base
}

// mergeStyle merges channel by channel so a partial style override does not
// erase unspecified channels.
func mergeStyle(base, ov *model.Style) *model.Style {
	if ov == nil {
		return base
	}
	if base == nil {
		return ov
	}
	if ov.FillColor != nil {
		base.FillColor = ov.FillColor
	}
	if ov.LineColor != nil {
		base.LineColor = ov.LineColor
	}
	if ov.Font != nil {
		if base.Font == nil {
			base.Font = ov.Font
		} else {
			if ov.Font.Name != "" {
				base.Font.Name = ov.Font.Name
			}
			if ov.Font.Size != 0 {
				base.Font.Size = ov.Font.Size
			}
			if ov.Font.Style != "" {
				base.Font.Style = ov.Font.Style
			}
			if ov.Font.Color != nil {
				base.Font.Color = ov.Font.Color
			}
		}
	}
	return base
}

// validateReferences walks the consolidated model and flags every
// identifier reference that does not resolve. Rejection policy belongs to
// the copy-patch and render stages.
func validateReferences(b *model.Blueprint, report *Report) {
	elements := make(map[string]bool, len(b.Elements))
	for i := range b.Elements {
		elements[b.Elements[i].ID] = true
	}
	relationships := make(map[string]bool, len(b.Relationships))
	for i := range b.Relationships {
		relationships[b.Relationships[i].ID] = true
	}
	concepts := func(id string) bool { return elements[id] || relationships[id] }

	for i := range b.Relationships {
		r := &b.Relationships[i]
		if r.Source != "" && !concepts(r.Source) {
			report.flag("element", r.Source, fmt.Sprintf("relationship %s source", r.ID))
		}
		if r.Target != "" && !concepts(r.Target) {
			report.flag("element", r.Target, fmt.Sprintf("relationship %s target", r.ID))
		}
	}

	known := b.KnownIdentifiers()
	var walkOrg func(items []model.OrgItem)
	walkOrg = func(items []model.OrgItem) {
		for i := range items {
			if ref := items[i].IdentifierRef; ref != "" && !known[ref] {
				report.flag("concept", ref, "organization item")
			}
			walkOrg(items[i].Items)
		}
	}
	walkOrg(b.Organizations)

	for vi := range b.Views.Diagrams {
		v := &b.Views.Diagrams[vi]
		var walkNodes func(nodes []model.ViewNode)
		walkNodes = func(nodes []model.ViewNode) {
			for i := range nodes {
				n := &nodes[i]
				if n.ElementRef != "" && !elements[n.ElementRef] {
					report.flag("element", n.ElementRef, fmt.Sprintf("view %s node %s", v.ID, n.ID))
				}
				if n.RelationshipRef != "" && !relationships[n.RelationshipRef] {
					report.flag("relationship", n.RelationshipRef, fmt.Sprintf("view %s node %s", v.ID, n.ID))
				}
				walkNodes(n.Nodes)
			}
		}
		walkNodes(v.Nodes)
		for i := range v.Connections {
			c := &v.Connections[i]
			if c.RelationshipRef != "" && !relationships[c.RelationshipRef] {
				report.flag("relationship", c.RelationshipRef, fmt.Sprintf("view %s connection %s", v.ID, c.ID))
			}
		}
	}
}
