package navigation

import "sort"

// Expansion is the set of expanded section titles
type Expansion map[string]bool

// NewExpansion builds an Expansion from titles
func NewExpansion(titles ...string) Expansion {
	e := make(Expansion, len(titles))
	for _, t := range titles {
		e[t] = true
	}
	return e
}

// Titles returns the expanded titles, sorted
func (e Expansion) Titles() []string {
	out := make([]string, 0, len(e))
	for t, open := range e {
		if open {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// Reconcile returns expanded restricted to sections present in layout, with
// the section containing active opened. Pass the filtered layout so a hidden
// section can never stay expanded.
func Reconcile(layout Layout, expanded Expansion, active string) Expansion {
	out := make(Expansion, len(layout.Sections))
	for _, s := range layout.Sections {
		if expanded[s.Title] {
			out[s.Title] = true
		}
	}
	if title, ok := layout.SectionFor(active); ok {
		out[title] = true
	}
	return out
}
