package navigation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/platinummonkey/venuedesk/pkg/modules"
	"github.com/platinummonkey/venuedesk/pkg/rbac"
)

// Entry is one sidebar link
type Entry struct {
	Label  string     `yaml:"label" json:"label"`
	Path   string     `yaml:"path" json:"path"`
	Module modules.ID `yaml:"module" json:"module"`
	Icon   string     `yaml:"icon,omitempty" json:"icon,omitempty"`
}

// Section is a titled group of entries
type Section struct {
	Title string  `yaml:"title" json:"title"`
	Icon  string  `yaml:"icon,omitempty" json:"icon,omitempty"`
	Items []Entry `yaml:"items" json:"items"`
}

// Layout is the full navigation tree
type Layout struct {
	Items    []Entry   `yaml:"items" json:"items"`
	Sections []Section `yaml:"sections" json:"sections"`
}

// Matches reports whether pathname falls under the entry's route
func (e Entry) Matches(pathname string) bool {
	return modules.BasePath(e.Path) == modules.BasePath(pathname)
}

// Filter returns the part of layout visible with allowed. Sections with no
// visible entries are omitted.
func Filter(layout Layout, allowed modules.Set) Layout {
	out := Layout{
		Items:    filterEntries(layout.Items, allowed),
		Sections: make([]Section, 0, len(layout.Sections)),
	}
	for _, s := range layout.Sections {
		items := filterEntries(s.Items, allowed)
		if len(items) == 0 {
			continue
		}
		out.Sections = append(out.Sections, Section{Title: s.Title, Icon: s.Icon, Items: items})
	}
	return out
}

func filterEntries(entries []Entry, allowed modules.Set) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if rbac.CanAccessModule(allowed, e.Module) {
			out = append(out, e)
		}
	}
	return out
}

// SectionFor returns the title of the section holding the entry for
// pathname
func (l Layout) SectionFor(pathname string) (string, bool) {
	for _, s := range l.Sections {
		for _, e := range s.Items {
			if e.Matches(pathname) {
				return s.Title, true
			}
		}
	}
	return "", false
}

// Modules returns every module referenced by the layout
func (l Layout) Modules() modules.Set {
	set := modules.NewSet()
	for _, e := range l.Items {
		set.Add(e.Module)
	}
	for _, s := range l.Sections {
		for _, e := range s.Items {
			set.Add(e.Module)
		}
	}
	return set
}

// ErrInvalidLayout wraps every layout validation failure
var ErrInvalidLayout = errors.New("invalid navigation layout")

// Validate checks that every entry names a known module and that its path
// resolves to that module. Section titles must be present and unique.
func Validate(layout Layout) error {
	var errs []error
	check := func(where string, e Entry) {
		if strings.TrimSpace(e.Label) == "" {
			errs = append(errs, fmt.Errorf("%s: entry %q has no label", where, e.Path))
		}
		if !e.Module.Valid() {
			errs = append(errs, fmt.Errorf("%s: entry %q names unknown module %q", where, e.Label, e.Module))
			return
		}
		if id, ok := modules.ForPath(e.Path); !ok || id != e.Module {
			errs = append(errs, fmt.Errorf("%s: entry %q path %q does not belong to module %q", where, e.Label, e.Path, e.Module))
		}
	}

	for _, e := range layout.Items {
		check("items", e)
	}
	seen := make(map[string]bool, len(layout.Sections))
	for i, s := range layout.Sections {
		title := strings.TrimSpace(s.Title)
		switch {
		case title == "":
			errs = append(errs, fmt.Errorf("sections[%d]: missing title", i))
		case seen[strings.ToLower(title)]:
			errs = append(errs, fmt.Errorf("sections[%d]: duplicate title %q", i, title))
		}
		seen[strings.ToLower(title)] = true
		for _, e := range s.Items {
			check(fmt.Sprintf("section %q", title), e)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidLayout, errors.Join(errs...))
}
