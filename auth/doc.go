// Package auth turns opaque bearer credentials into caller contexts and
// answers entitlement questions about them.
//
// A Resolver hashes the presented credential, looks it up in a
// CredentialStore and returns a CallerContext. Resolution never fails: a
// missing, unknown or expired credential yields a context with no
// entitlements, and every outcome is written to the audit trail.
//
// IsAuthorizedFor and FilterClause are pure functions over a CallerContext
// and are the single source of truth for tenant scoping.
package auth
