// Package cache stores derived, caller-independent values such as query
// embeddings.
//
// Keys are built from a namespace plus hashed parts and never carry caller
// identity. Event records are never cached: every read of an event goes
// through the entitlement-scoped store query.
package cache
