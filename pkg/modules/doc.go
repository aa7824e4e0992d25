// Package modules is the static registry of back-office modules.
//
// A module is the unit of access control. Every protected route belongs to
// exactly one module, decided by the first segment of its path:
//
//	modules.ForPath("/customers/123") // customers, true
//	modules.ForPath("/")              // dashboard, true
//	modules.ForPath("/no-access")     // "", false
//
// Allowed-module lists coming from the API are decoded into a Set, which
// keeps only declared IDs.
package modules
