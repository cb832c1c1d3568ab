// Package store defines the store adapter consumed by the generic repository
// and provides a Bun-backed implementation with a unit of work: an identity
// map of loaded entities, staged changes and a transactional flush.
package store
