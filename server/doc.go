// Package server exposes the event query tools over HTTP.
//
// POST /tools/call takes {"name", "arguments", "_meta": {"authToken"}}. The
// credential is resolved once per call and the resulting caller is handed to
// the gate explicitly; tool failures come back as a result with isError set
// rather than as an HTTP error, and a lookup outside the caller's
// entitlements renders exactly like a lookup of an absent event.
//
// GET /tools/list returns the catalog, /metrics the Prometheus scrape, and
// /healthz, /readyz and /health the health reports.
package server
