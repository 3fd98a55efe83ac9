// Package api serves schema compilation and validation over HTTP.
//
// # Routes
//
//	POST   /v1/schemas                                     compile {"source": "..."}
//	GET    /v1/schemas/{key}                               describe a cached schema
//	DELETE /v1/schemas/{key}                               evict a cached schema
//	POST   /v1/schemas/{key}/messages/{message}/validate   validate a JSON document
//	GET    /v1/cache/stats                                 cache hit/miss counters
//	GET    /healthz                                        liveness and store reachability
//	GET    /metrics                                        Prometheus metrics (optional)
//
// Compiled schemas are keyed by the hash of their source (see cache.Key), so
// compiling the same source twice returns the same key without recompiling.
//
// Malformed source is rejected with 400 and the error position in "details".
// Unresolved types in strict mode and over-deep nesting are rejected with 422.
// A document that fails validation is answered with 422 and every violation.
//
// When the cache has a source store, a key missing from memory is restored
// from the store before answering 404, and store failures are reported as 503.
package api
