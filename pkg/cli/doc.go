// Package cli provides the protorules command-line interface.
//
// # Commands
//
// compile: Print the validation rules derived from one or more proto files
//
//	protorules compile [-workers 4] [-enums-as-integers] [-strict] \
//		[-empty ""] [-empty "regex:^\s*$"] order.proto user.proto
//
// Each file is written to stdout as a YAML document holding the rule tree
// of every top-level message.
//
// validate: Check a YAML or JSON document against a message
//
//	protorules validate -schema order.proto -message Order -data order.json
//	cat order.yaml | protorules validate -schema order.proto -message Order
//
// On success the normalized document (defaults filled in) is printed. On
// failure every violation is printed with its code and the command returns
// ErrValidationFailed.
//
// watch: Recompile proto files under a directory as they change
//
//	protorules watch -dir ./proto -metrics-addr :9090
//
// Compiled rule sets are cached by source hash so unchanged files are not
// recompiled.
//
// serve: Serve compilation and validation over HTTP (see package api)
//
//	protorules serve -addr :8080
//
// With a store configured (PROTORULES_STORE_TYPE and friends, see package
// store) watch and serve persist every compiled source, and serve restores
// schemas the cache no longer holds.
//
// # Configuration
//
// All commands accept -config pointing at a YAML file (see package config).
// PROTORULES_* environment variables override the file, and flags given on
// the command line override both.
package cli
