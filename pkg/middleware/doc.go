// Package middleware provides HTTP middleware for the signed control API.
//
// # Overview
//
// Control requests pass through rate limiting first and signature
// verification second, so every request consumes rate limit budget whether
// or not it authenticates.
//
// # Middleware Components
//
// RateLimitMiddleware: sliding window per client IP
//
//	limiter := middleware.NewSlidingWindowLimiter(middleware.DefaultRateLimitConfig())
//	limiter.StartCleanup(ctx)
//	router.Use(middleware.NewRateLimitMiddleware(limiter, log, metrics).Handler)
//
// DistributedRateLimiter: the same window in Redis sorted sets, shared across instances
//
//	limiter := middleware.NewDistributedRateLimiter(redisClient, nil, "")
//
// SignatureMiddleware: HMAC request authentication
//
//	router.Use(middleware.NewSignatureMiddleware(verifier, log, metrics).Handler)
//
// # Rate Limiting
//
// Default: 30 requests per 60 second window. Rejected requests get HTTP 429,
// a Retry-After header and {"error": "Too many requests, please try again later"}.
// The Redis limiter fails open: when Redis is unreachable requests are allowed
// and the error is logged.
//
// # Related Packages
//
//   - pkg/signing: request signing and verification
//   - pkg/observability: metrics implementing the recorder interfaces
package middleware
