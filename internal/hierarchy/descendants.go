// Package hierarchy resolves parent/child relationships in taxonomy lists and
// builds the flattened, searchable views consumed by pickers and filters.
//
// All functions are pure. Malformed input (a cycle in parent references) never
// causes a failure: expansion stops at the repeated node and the break is recorded.
package hierarchy

import (
	"sort"

	"github.com/starford/vouch/internal/models"
)

// Descendants maps every item that has children to the ordered set of ids
// reachable below it.
type Descendants struct {
	byID   map[string][]string
	cycles []string
}

// BuildDescendants computes the descendant lookup for items. Children are
// visited in input order, depth first, so the result for a root lists a child
// before that child's own descendants.
func BuildDescendants(items []models.HierarchyItem) *Descendants {
	children := make(map[string][]string)
	for _, it := range items {
		if it.HasParent() {
			p := it.Parent()
			children[p] = append(children[p], it.ID)
		}
	}

	d := &Descendants{byID: make(map[string][]string, len(children))}
	cycleRoots := make(map[string]struct{})

	// Roots are walked in a deterministic order so cycle reporting is stable.
	roots := make([]string, 0, len(children))
	for id := range children {
		roots = append(roots, id)
	}
	sort.Strings(roots)

	for _, root := range roots {
		visited := map[string]struct{}{root: {}}
		var out []string
		stack := reverse(children[root])
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if _, seen := visited[id]; seen {
				cycleRoots[root] = struct{}{}
				continue
			}
			visited[id] = struct{}{}
			out = append(out, id)
			stack = append(stack, reverse(children[id])...)
		}
		if len(out) > 0 {
			d.byID[root] = out
		}
	}

	for id := range cycleRoots {
		d.cycles = append(d.cycles, id)
	}
	sort.Strings(d.cycles)
	return d
}

// Of returns the descendants of id, or nil when it has none.
func (d *Descendants) Of(id string) []string {
	src := d.byID[id]
	if len(src) == 0 {
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// Expand returns id followed by all of its descendants. Selecting a location in
// a filter matches anything tagged with one of these ids.
func (d *Descendants) Expand(id string) []string {
	return append([]string{id}, d.byID[id]...)
}

// Len returns the number of items that have at least one descendant.
func (d *Descendants) Len() int {
	return len(d.byID)
}

// Map returns a copy of the full lookup.
func (d *Descendants) Map() map[string][]string {
	out := make(map[string][]string, len(d.byID))
	for id := range d.byID {
		out[id] = d.Of(id)
	}
	return out
}

// CycleBreaks returns the sorted roots whose walk revisited an id. It is empty
// for well-formed data.
func (d *Descendants) CycleBreaks() []string {
	return append([]string(nil), d.cycles...)
}

func reverse(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}
