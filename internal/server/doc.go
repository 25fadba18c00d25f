// Package server hosts the ReelShare REST API behind a single HTTP server.
//
// The server builds a consistent middleware chain of request IDs, logging,
// audit, metrics, security headers, CORS, rate limiting, and auth so handlers
// all share common protections and instrumentation.
package server
