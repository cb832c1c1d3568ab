// Package repository provides a generic repository built on Bun: CRUD
// operations, predicate-based querying, expression and field-name ordering,
// and server-side grid pagination for any entity type.
package repository
