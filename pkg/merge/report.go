package merge

import "fmt"

// DanglingReference records an identifier reference that does not resolve
// against the consolidated model. Dangling references are reported, not
// fatal: organization items carrying them are pruned at patch time, while
// view nodes carrying them fail only the affected render.
type DanglingReference struct {
	Kind    string // what the reference points at: "element", "relationship", "view"
	Ref     string // the unresolved identifier
	Context string // where the reference occurs, e.g. "connection id-c1 source"
}

func (d DanglingReference) String() string {
	return fmt.Sprintf("%s: unresolved %s reference %q", d.Context, d.Kind, d.Ref)
}

// Report collects non-fatal findings from a merge.
type Report struct {
	Dangling []DanglingReference
	Appended int // count of override items appended as new entries
}

// HasDangling reports whether any reference failed to resolve.
func (r *Report) HasDangling() bool {
	return len(r.Dangling) > 0
}

// Warnings renders the findings as human-readable strings.
func (r *Report) Warnings() []string {
	out := make([]string, 0, len(r.Dangling))
	for _, d := range r.Dangling {
		out = append(out, d.String())
	}
	return out
}

func (r *Report) flag(kind, ref, context string) {
	r.Dangling = append(r.Dangling, DanglingReference{Kind: kind, Ref: ref, Context: context})
}
