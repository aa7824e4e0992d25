package modules

import "strings"

// ID identifies a functional area of the back office. The set of IDs is
// closed: anything not declared below is not a module.
type ID string

const (
	Dashboard ID = "dashboard"
	Events    ID = "events"
	Calendar  ID = "calendar"
	Equipment ID = "equipment"
	Customers ID = "customers"
	Messaging ID = "messaging"
	Quotes    ID = "quotes"
	Invoices  ID = "invoices"
	Discounts ID = "discounts"
	Staff     ID = "staff"
	Analytics ID = "analytics"
	Settings  ID = "settings"
	Billing   ID = "billing"
)

// Category groups modules for display
type Category string

const (
	CategoryOverview       Category = "Overview"
	CategoryEvents         Category = "Event Management"
	CategoryCustomers      Category = "Customer Management"
	CategoryFinancial      Category = "Financial Management"
	CategoryStaff          Category = "Staff Management"
	CategoryInsights       Category = "Insights"
	CategoryAdministration Category = "Administration"
)

// categoryOrder is the display order used by ByCategory
var categoryOrder = []Category{
	CategoryOverview,
	CategoryEvents,
	CategoryCustomers,
	CategoryFinancial,
	CategoryStaff,
	CategoryInsights,
	CategoryAdministration,
}

// Module describes a module and the route it owns
type Module struct {
	ID          ID       `json:"id"`
	DisplayName string   `json:"name"`
	Category    Category `json:"category"`
	Description string   `json:"description"`
	Path        string   `json:"path"`
}

// registry is ordered; the order is used for display and for Set encoding
var registry = []Module{
	{Dashboard, "Dashboard", CategoryOverview, "Overview of upcoming events and key figures", "/"},
	{Events, "Events", CategoryEvents, "Create and manage events and bookings", "/events"},
	{Calendar, "Calendar", CategoryEvents, "Calendar view of scheduled events", "/calendar"},
	{Equipment, "Equipment", CategoryEvents, "Equipment inventory and assignments", "/equipment"},
	{Customers, "Customers", CategoryCustomers, "Customer records and history", "/customers"},
	{Messaging, "Messaging", CategoryCustomers, "Email and message threads with customers", "/messages"},
	{Quotes, "Quotes", CategoryFinancial, "Prepare and send quotes", "/quotes"},
	{Invoices, "Invoices", CategoryFinancial, "Issue invoices and track payments", "/invoices"},
	{Discounts, "Discounts", CategoryFinancial, "Discount codes and promotions", "/discounts"},
	{Staff, "Staff", CategoryStaff, "Staff members and schedules", "/staff"},
	{Analytics, "Analytics", CategoryInsights, "Reports and performance metrics", "/analytics"},
	{Settings, "Settings", CategoryAdministration, "Venue settings, roles and permissions", "/settings"},
	{Billing, "Billing", CategoryAdministration, "Subscription plan and payment details", "/billing"},
}

var (
	byID    = make(map[ID]int, len(registry))
	byRoute = make(map[string]ID, len(registry))
)

func init() {
	for i, m := range registry {
		byID[m.ID] = i
		byRoute[m.Path] = m.ID
	}
}

// ForPath returns the module gating pathname. Only the first path segment
// is significant, so "/customers/123" and "/customers" resolve the same way.
// The second return value is false for paths no module owns.
func ForPath(pathname string) (ID, bool) {
	id, ok := byRoute[BasePath(pathname)]
	return id, ok
}

// BasePath reduces pathname to its first segment. Query strings and
// fragments are dropped and an empty path becomes "/".
func BasePath(pathname string) string {
	if i := strings.IndexAny(pathname, "?#"); i >= 0 {
		pathname = pathname[:i]
	}
	trimmed := strings.TrimLeft(pathname, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		trimmed = trimmed[:i]
	}
	return "/" + trimmed
}

// Lookup returns the metadata for id
func Lookup(id ID) (Module, bool) {
	i, ok := byID[id]
	if !ok {
		return Module{}, false
	}
	return registry[i], true
}

// All returns every module in registry order
func All() []Module {
	out := make([]Module, len(registry))
	copy(out, registry)
	return out
}

// Valid reports whether id is a declared module
func (id ID) Valid() bool {
	_, ok := byID[id]
	return ok
}

func (id ID) String() string {
	return string(id)
}

// Parse converts a raw string into a module ID. Surrounding whitespace is
// ignored; matching is exact otherwise.
func Parse(s string) (ID, bool) {
	id := ID(strings.TrimSpace(s))
	if !id.Valid() {
		return "", false
	}
	return id, true
}

// PathFor returns the route owned by id
func PathFor(id ID) string {
	if m, ok := Lookup(id); ok {
		return m.Path
	}
	return ""
}

// CategoryGroup is one category and its modules
type CategoryGroup struct {
	Category Category `json:"category"`
	Modules  []Module `json:"modules"`
}

// ByCategory groups the registry by category in display order
func ByCategory() []CategoryGroup {
	groups := make([]CategoryGroup, 0, len(categoryOrder))
	for _, c := range categoryOrder {
		group := CategoryGroup{Category: c}
		for _, m := range registry {
			if m.Category == c {
				group.Modules = append(group.Modules, m)
			}
		}
		if len(group.Modules) > 0 {
			groups = append(groups, group)
		}
	}
	return groups
}
