// Package session persists the console's authentication state.
//
// A browser has two storage scopes. The durable scope outlives the browser
// and is keyed by the device cookie; the session scope is keyed by the tab
// cookie and is meant to die with the browser session. A Store joins one
// Backend per scope and guarantees the token lives in at most one of them.
//
// Backends:
//
//	MemoryBackend  in-process map with optional TTL
//	FileBackend    one file per key on local disk
//	RedisBackend   go-redis, shared across console instances
//	SQLBackend     postgres or sqlite3 table session_kv
//
// Backends that can expire entries implement Purger and may be swept by a
// Janitor on a cron schedule.
package session
