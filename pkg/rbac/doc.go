// Package rbac provides module-based access control and role administration
// for the venue console.
//
// # Overview
//
// Access is granted per module. A session carries an allowed-modules set
// snapshotted at login or validation; nothing in this package changes it.
//
// The evaluator is two pure predicates:
//
//	rbac.CanAccessModule(allowed, modules.Events) // allowed.Has(events)
//	rbac.CanAccessRoute(allowed, "/customers/42") // module of /customers
//
// A path with no module is denied. Whether a path needs a check at all is
// decided by where it is mounted, not here.
//
// # Roles
//
// Roles live in the backend. RoleService wraps the role endpoints and adds
// the checks the console enforces before any call is made:
//
//	Delete of the admin role       ErrProtectedRole, no network call
//	Update of the admin role       name and modules are ignored
//	Create or rename to "admin"    ErrReservedName
//	Delete of a role still in use  ErrRoleInUse
//	Create past the plan quota     ErrRoleLimit
//
// Every successful mutation refetches the list; there is no optimistic
// patching of local state.
//
// # HTTP
//
// Handlers serves the role administration API:
//
//	GET    /settings/api/roles        overview with member counts
//	POST   /settings/api/roles        create
//	PUT    /settings/api/roles/{id}   update
//	DELETE /settings/api/roles/{id}   delete
//	GET    /settings/api/modules      module catalogue by category
//
// RequireModule gates these routes with a JSON 403 for sessions without the
// settings module.
package rbac
