// Package store persists protobuf schema sources under their cache keys.
//
// The compiled-schema cache is in memory and bounded. With a SourceStore
// attached, a key that was evicted, compiled before a restart, or compiled
// by another replica is rebuilt from its stored source on lookup.
//
// # Backends
//
//	memory    process-local map (tests, single instance)
//	sqlite    schema_sources table in a local file (mattn/go-sqlite3)
//	postgres  schema_sources table shared by replicas (lib/pq)
//	redis     one string per key, optional TTL (go-redis)
//	s3        one object per key, prefix/<key>.proto (aws-sdk-go-v2)
//
// Open selects a backend from Config and wraps it with OpenTelemetry spans:
//
//	s, err := store.Open(ctx, store.Config{Type: store.TypeRedis, URL: "redis://localhost:6379/0"})
//	if err != nil {
//		return err
//	}
//	if s != nil {
//		defer s.Close()
//	}
//
// The PostgreSQL integration test needs Docker and runs with
// go test -tags integration ./pkg/store/...
package store
