// Package settings reads tenant settings and the subscription plan from the
// venue API.
//
// Plan limits bound how many custom roles and staff accounts a tenant may
// create. They never grant or remove module access; that is decided only by
// the allowedModules list on the signed-in user.
//
// Settings are cached per tenant in an expirable LRU so role administration
// does not refetch them on every request.
package settings
