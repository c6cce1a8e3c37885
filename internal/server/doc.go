// Package server implements the HTTP surface of the portfolio site.
//
// Every request passes the same middleware chain, outermost first:
//   - request id (UUIDv4) and client IP resolution
//   - a deferred completion log line, written on every exit path
//   - panic recovery into the uniform 500 response
//   - request counting per normalized route
//   - X-Request-Id and the fixed security headers
//   - the per-client sliding-window rate limiter
//
// Handlers return an error instead of writing failures themselves; any
// returned error becomes a 500 internal_error response, is counted in
// errorsTotal and is logged with the request id.
//
// Routes:
//   - GET /healthz, GET /metrics, GET /api/projects
//   - POST /api/contact (validated, forwarded to the notifier)
//   - GET / (pre-rendered HTML shell)
//   - POST /telegram/webhook, only when a bot and webhook secret are set
package server
