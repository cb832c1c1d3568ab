// Package entity describes entity types managed by the generic repository:
// their field table, identity field and relations, resolved once per type.
package entity
