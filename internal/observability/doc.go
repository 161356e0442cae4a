// Package observability owns Prometheus collectors and admin HTTP middleware.
//
// Recorders register lazily, so packages may record without a setup step.
package observability
