// Package navigation computes the sidebar a user sees.
//
// A Layout has top-level items and titled sections. Filter keeps the entries
// whose module the user may open and drops sections that end up empty.
// Reconcile trims the set of expanded sections so it only names sections
// that survived filtering.
//
// Layouts come from an embedded default or a YAML file. Every entry's path
// must map to the module it declares; Source rejects a file that breaks this
// and keeps serving the last good layout while watching for edits.
package navigation
