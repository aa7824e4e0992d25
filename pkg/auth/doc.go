// Package auth owns the console's session lifecycle.
//
// # Overview
//
// A Service is the only component allowed to establish or tear down a
// session. There is one Service per browser (device and tab cookie pair),
// built with its Store and backend API injected:
//
//	svc := auth.NewService(store, client,
//		auth.WithLogger(logger),
//		auth.WithAuditLogger(auditLogger),
//		auth.WithMetrics(metrics),
//	)
//
// # State machine
//
//	Unknown ──Start──> Validating ──ok──> Authenticated
//	   │                   └──any error──> Anonymous
//	   └──no token──────────────────────> Anonymous
//	Anonymous ──Login/Register──> Authenticated
//	Authenticated ──Logout/Invalidate──> Anonymous
//
// A failed validation, a logout and any 401 from the backend all clear every
// persisted key before the state becomes Anonymous.
//
// # Errors
//
// Login and Register return *Error. Its Message is safe to show: for
// credential failures it is the backend's message unchanged, for transport
// failures it is NetworkErrorMessage.
//
// # Concurrency
//
// Service methods are safe for concurrent use. Start runs once; Begin runs it
// in the background so callers can Await a bounded amount of time and render
// a loading page instead of blocking on the backend.
package auth
