// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// Every error response has the shape {"error": "..."}; the admin UI shows the
// field verbatim.
//
// # Response Helpers
//
//	httputil.WriteSuccess(w, plugins)
//	httputil.WriteMessage(w, `Plugin "chat" enabled`)
//	httputil.WriteNotFoundError(w, "Plugin not found")
//	httputil.WriteTooManyRequests(w, "Too many requests, please try again later")
//
// # Request Parsing
//
//	var cfg map[string]any
//	if !httputil.ParseJSONOrError(w, r, &cfg) {
//		return // Error response already written
//	}
//	name, ok := httputil.ParsePathStringOrError(w, r, "name")
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.RecoveryMiddleware(logger),
//		httputil.LoggingMiddleware(logger),
//		httputil.CORSMiddleware([]string{cfg.AllowedOrigin}),
//	)
//
// # Related Packages
//
//   - pkg/middleware: rate limiting and signed-request authentication
package httputil
