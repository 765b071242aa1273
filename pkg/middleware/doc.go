// Package middleware provides HTTP rate limiting for the API surface.
//
// Two limiter implementations share one keying scheme: signed-in
// principals are limited per user id, anonymous callers per client IP,
// and elevated roles get a wider budget. The in-memory limiter is a
// token bucket suitable for single-instance deployments; the Redis
// limiter shares a fixed window across instances and fails open when
// Redis is unreachable.
package middleware
