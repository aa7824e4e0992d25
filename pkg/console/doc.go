// Package console serves the venue back office.
//
// Routes:
//
//	GET  /login, /register          sign-in and tenant registration pages
//	POST /login, /register          rate limited per client IP
//	POST /logout                     ends the session
//	GET  /no-access                  shown to users with no reachable module
//	GET  /shell/session              current user and plan (JSON)
//	GET  /shell/navigation           sidebar filtered to the user's modules
//	GET  /shell/events               server-sent events, closed on logout
//	ANY  /backend/...                venue API proxy with the session token
//	     /settings/api/...           role administration (settings module)
//	GET  /assets/...                 static assets, never gated
//	GET  /...                        the app shell, gated by module
//
// Every route shares one auth.Service per browser, resolved from the
// device and tab cookies by middleware.Clients.
package console
