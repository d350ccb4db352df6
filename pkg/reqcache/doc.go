// Package reqcache implements the HTTP request-cache middleware: policy
// resolution, eligibility filtering, canonical key derivation, response
// buffering, and hit rendering, fronting a cachify.Orchestrator either in
// exact mode or, via pkg/similarity, near-duplicate mode.
package reqcache
