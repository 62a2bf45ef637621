// Package util provides shared helpers for backend.KVBackend
// implementations: hashing/sharding primitives and glob matching.
//
// The package contains:
//   - functions: hash functions and a seed generator used to shard keys
//   - glob: glob-pattern matching ('*') and SQL LIKE translation
//
// Each component works with any backend.KVBackend implementation,
// allowing for consistent sharding and pattern matching across
// different storage backends.
package util
