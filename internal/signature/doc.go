// Package signature implements the authenticated request envelope shared
// between the portal and the admin panel.
//
// Every cross-service call is signed with HMAC-SHA256 over a canonical
// payload of method, path, timestamp and the exact serialized body, keyed by
// a shared service key configured at startup. The receiving side verifies
// the presented key with a constant-time comparison, enforces a freshness
// window on the timestamp, and recomputes the MAC over the raw received
// body bytes.
//
// The freshness window bounds replay exposure but does not prevent replay
// within it; there is deliberately no nonce store, and callers must treat
// signed operations as non-idempotent.
package signature
