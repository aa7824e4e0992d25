// Package backend is the client for the venue-management REST API.
//
// Client speaks JSON over HTTP, applies a rate limit and per-request timeout,
// and records latency per endpoint. Non-2xx responses become *APIError; a
// request that never produced a response becomes *NetworkError. Any 401
// matches ErrUnauthorized.
//
// Authorized wraps a Doer for one session: it attaches the bearer token,
// reports identity headers, and fires a hook when the backend rejects the
// token.
package backend
