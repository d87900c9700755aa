// Package layout indexes layouts by name and resolves their parent chains.
//
// Chains are resolved once, when the registry is built, into flat lists of
// layout indexes ordered innermost first. Rendering never follows parent
// names itself.
package layout

import (
	"sort"

	"git.home.luguber.info/inful/jellsite/internal/content"
)

// Registry is an immutable, name-indexed table of layouts.
type Registry struct {
	layouts []content.Layout
	index   map[string]int
	chains  [][]int
}

// NewRegistry indexes layouts and resolves every parent chain. It fails on
// the first cycle or missing parent, in name order, before any rendering.
func NewRegistry(layouts []content.Layout) (*Registry, error) {
	r := &Registry{
		layouts: append([]content.Layout(nil), layouts...),
		index:   make(map[string]int, len(layouts)),
	}
	sort.SliceStable(r.layouts, func(i, j int) bool { return r.layouts[i].Name < r.layouts[j].Name })
	for i, l := range r.layouts {
		r.index[l.Name] = i
	}

	r.chains = make([][]int, len(r.layouts))
	for i := range r.layouts {
		chain, err := r.resolve(i)
		if err != nil {
			return nil, err
		}
		r.chains[i] = chain
	}
	return r, nil
}

// resolve walks parent links from start, tracking visited indexes.
func (r *Registry) resolve(start int) ([]int, error) {
	seen := map[int]int{} // layout index -> position in chain
	var chain []int
	cur := start
	for {
		if pos, ok := seen[cur]; ok {
			names := make([]string, 0, len(chain)-pos+1)
			for _, idx := range chain[pos:] {
				names = append(names, r.layouts[idx].Name)
			}
			names = append(names, r.layouts[cur].Name)
			return nil, &CycleError{Chain: names}
		}
		seen[cur] = len(chain)
		chain = append(chain, cur)

		parent := r.layouts[cur].Parent
		if parent == "" {
			return chain, nil
		}
		next, ok := r.index[parent]
		if !ok {
			return nil, &NotFoundError{Name: parent, Referrer: r.layouts[cur].SourcePath}
		}
		cur = next
	}
}

// Len returns the number of layouts.
func (r *Registry) Len() int { return len(r.layouts) }

// Layouts returns all layouts ordered by name.
func (r *Registry) Layouts() []content.Layout {
	return append([]content.Layout(nil), r.layouts...)
}

// Lookup returns a layout by name.
func (r *Registry) Lookup(name string) (content.Layout, bool) {
	i, ok := r.index[name]
	if !ok {
		return content.Layout{}, false
	}
	return r.layouts[i], true
}

// Chain returns the named layout followed by its ancestors, innermost first.
// referrer names whoever asked for the layout and is reported when it is missing.
func (r *Registry) Chain(name, referrer string) ([]content.Layout, error) {
	i, ok := r.index[name]
	if !ok {
		return nil, &NotFoundError{Name: name, Referrer: referrer}
	}
	out := make([]content.Layout, len(r.chains[i]))
	for pos, idx := range r.chains[i] {
		out[pos] = r.layouts[idx]
	}
	return out, nil
}
