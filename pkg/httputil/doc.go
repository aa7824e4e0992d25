// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Helpers
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteForbidden(w, "the admin role cannot be deleted")
//
// Every error body has the shape {"error": "..."}.
//
// # Request Parsing
//
//	var in rbac.RoleInput
//	if !httputil.ParseJSONOrError(w, r, &in) {
//		return // Error response already written
//	}
//
// # Middleware
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//	)(router)
package httputil
