// Package registry binds entity types to repositories and hands them out
// according to a lifetime: a fresh repository per call (Transient), one per
// logical session (Scoped) or one per process (Singleton).
package registry
