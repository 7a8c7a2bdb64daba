// Package events is the query gate in front of event storage.
//
// Every read goes through a Gate operation that takes the caller's
// auth.CallerContext as its final argument. The gate derives the tenant
// filter from the caller, hands it to the Store as a mandatory scope,
// post-checks each returned record, and writes exactly one audit entry per
// operation. Keyword and similarity search share one scope path so the two
// modes cannot diverge on authorization.
//
// Single-record lookups return a Lookup, which is either found or not found.
// A record owned by a tenant outside the caller's entitlements is reported
// exactly like a record that does not exist.
package events
