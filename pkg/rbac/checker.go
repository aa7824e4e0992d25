package rbac

import (
	"github.com/platinummonkey/venuedesk/pkg/modules"
)

// Checker evaluates module access for a permission set
type Checker interface {
	CanAccessModule(allowed modules.Set, id modules.ID) bool
	CanAccessRoute(allowed modules.Set, pathname string) bool
}

// Evaluator is the default Checker
type Evaluator struct{}

// CanAccessModule implements Checker
func (Evaluator) CanAccessModule(allowed modules.Set, id modules.ID) bool {
	return CanAccessModule(allowed, id)
}

// CanAccessRoute implements Checker
func (Evaluator) CanAccessRoute(allowed modules.Set, pathname string) bool {
	return CanAccessRoute(allowed, pathname)
}

// CanAccessModule reports whether allowed contains id
func CanAccessModule(allowed modules.Set, id modules.ID) bool {
	return allowed.Has(id)
}

// CanAccessRoute reports whether allowed contains the module pathname maps
// to. Unmapped paths are denied.
func CanAccessRoute(allowed modules.Set, pathname string) bool {
	id, ok := modules.ForPath(pathname)
	if !ok {
		return false
	}
	return allowed.Has(id)
}

// Accessible returns the modules in allowed, in registry order
func Accessible(allowed modules.Set) []modules.Module {
	var out []modules.Module
	for _, m := range modules.All() {
		if allowed.Has(m.ID) {
			out = append(out, m)
		}
	}
	return out
}
