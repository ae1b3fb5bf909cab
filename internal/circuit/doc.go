// Package circuit reconstructs anonymity-network circuits from skeind's
// diagnostic stream.
//
// # Overview
//
// skeind reports circuit lifecycle events as loosely correlated log lines:
// an id sighting here, a hop fingerprint there, a status token several lines
// later. This package turns that stream into typed state in two stages:
//
//	Parser:  raw line          -> zero or one Signal
//	Store:   Signal            -> circuit records + derived state
//
// # Parsing
//
// Lines may embed a structured envelope, EVENT:<json>:ENDEVENT, which is
// authoritative and carries the full ordered relay list. Everything else is
// heuristic: a "Circuit <id>" token moves the parser's cursor, and
// cursor-relative detail lines (hop fingerprints marked with "$", relay
// IPs) attach to whichever circuit the cursor points at. Malformed
// envelopes are logged and skipped; unrecognized lines are silently
// ignored. Neither reaches the caller as an error.
//
// # Store semantics
//
// The store is idempotent under replay: appends are membership-checked and
// the "ready" announcement for a completed path fires at most once per
// circuit until a different circuit completes. Status transitions are
// last-write-wins because the upstream format has no sequence numbers;
// out-of-order lines can therefore leave a stale status, which is a known
// upstream limitation rather than something this package papers over.
//
// Expiry (CreatedAt + idle timeout) and the in-use designation (newest
// LastUsedAt) are derived on read and never written by signals.
//
// One Parser/Store pair serves one operating mode (client or relay); the
// two modes share no circuit-id namespace.
package circuit
