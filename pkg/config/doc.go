// Package config loads protorules configuration from a YAML file and the environment.
//
// # Overview
//
// Load starts from Default, merges an optional YAML file (unknown keys are
// rejected), then applies PROTORULES_* environment variables and validates.
//
// # File Format
//
//	compiler:
//	  empty_matchers: ["", "regex:^\\s+$"]
//	  enums_as_integers: false
//	  strict_types: false
//	  cycle_guard: parent        # parent or ancestors
//	  max_depth: 64
//	cache:
//	  max_entries: 256
//	  ttl: 10m
//	store:
//	  type: ""                  # memory, sqlite, postgres, redis, s3
//	  url: ""                   # sqlite path, postgres DSN or redis URL
//	  key_prefix: protorules/
//	  ttl: 0                    # redis only
//	  s3_bucket: ""
//	  s3_region: us-east-1
//	observability:
//	  log_level: info
//	  metrics_enabled: false
//	  metrics_addr: ":9090"
//
// # Environment
//
//	PROTORULES_EMPTY_MATCHERS='["", "N/A"]'   # YAML list
//	PROTORULES_ENUMS_AS_INTEGERS=true
//	PROTORULES_STRICT_TYPES=true
//	PROTORULES_CYCLE_GUARD=ancestors
//	PROTORULES_MAX_DEPTH=32
//	PROTORULES_CACHE_MAX_ENTRIES=512
//	PROTORULES_CACHE_TTL=1h
//	PROTORULES_STORE_TYPE=redis
//	PROTORULES_STORE_URL=redis://localhost:6379/0
//	PROTORULES_S3_BUCKET=schemas
//	PROTORULES_LOG_LEVEL=debug
//	PROTORULES_METRICS_ENABLED=true
//	PROTORULES_METRICS_ADDR=:9090
//
// # Usage
//
//	cfg, err := config.Load(path)
//	opts, err := cfg.CompilerOptions()
//	c := compiler.New(opts...)
package config
