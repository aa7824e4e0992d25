// Package middleware gates the console's HTTP surface on the browser's
// session.
//
// # Overview
//
// Clients maps a browser to its auth.Service using two cookies: a durable
// device cookie and a tab cookie that dies with the browser session. Guard
// uses that service to decide every protected request:
//
//	router.Use(guard.Attach)
//	router.PathPrefix("/").Handler(guard.Protect(spa))
//	shell.Use(guard.RequireSession)
//
// # Decisions
//
// Decide is pure and is what Protect acts on:
//
//	Unknown / Validating          -> Loading
//	Anonymous                     -> RedirectLogin (/login?next=<path>)
//	route allowed                 -> Render
//	route denied, dashboard held  -> RedirectDefault (/)
//	route denied, no dashboard    -> NoAccess (/no-access)
//
// Paths no module owns are denied.
//
// # Rate Limiting
//
// Login and registration are limited per client IP. RateLimiter is an
// in-process token bucket; DistributedRateLimiter shares a fixed window
// across instances through Redis. Both satisfy Limiter.
//
//	Login (default): 10 req/min, 5 burst
//
// # Related Packages
//
//   - pkg/auth: the per-browser session state machine
//   - pkg/rbac: route and module predicates
package middleware
