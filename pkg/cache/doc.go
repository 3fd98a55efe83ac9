// Package cache keeps compiled validator sets so repeated schemas compile once.
//
// Entries are keyed by the SHA-256 of the schema source (see Key) and held
// in an expiring LRU from hashicorp/golang-lru. Concurrent requests for the
// same uncached source share a single compilation. Compilation errors are
// returned to every waiting caller and are not stored.
//
//	c, err := cache.New(&cache.Config{MaxEntries: 128, TTL: time.Hour}, compiler.New())
//	set, err := c.Get(ctx, source)
//	fmt.Println(c.Stats().HitRate)
//
// WithStore attaches a store.SourceStore. Newly compiled sources are written
// to it, and Lookup rebuilds sets the LRU no longer holds from the stored
// source, so schema keys survive eviction and restarts.
//
// A cache is bound to one Compiler, so every entry was built with the same options.
package cache
