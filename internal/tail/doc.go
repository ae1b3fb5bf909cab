// Package tail delivers newly appended skeind log lines exactly once.
//
// # Overview
//
// skeind writes its diagnostic stream to a growing text file per operating
// mode. This package watches such a file and forwards only the appended
// content, decoded into whole lines, in order, to whoever drains the
// source. It is the entry point of the circuit pipeline:
//
//	tail.Source -> circuit.Parser -> circuit.Store -> bus.Hub
//
// # Offset discipline
//
// FileSource tracks a byte offset. On every wake-up it reads from the
// last-known offset to the file's current size and advances the offset to
// that size. Wake-ups therefore commute: inotify notifications that
// coalesce, fire twice for one write, or race the polling ticker can never
// re-deliver a byte. A shrinking file is treated as truncation and restarts
// the offset from zero.
//
// # Partial lines
//
// A read ending mid-line does not forward the fragment. It is retained and
// prefixed onto the next read, so a line split across two writes arrives
// downstream exactly once, whole, after its terminating newline lands.
//
// # Wake-up sources
//
// On Linux an inotify watch on the log directory wakes the reader promptly
// (and notices the file being created after startup). Everywhere else, and
// whenever the watch cannot be established, a polling ticker drives the
// same drain path.
//
// The stream-backed counterpart of this package - discrete lines pushed
// over a network transport - lives with the Redis transport in
// internal/bus, where the connection it rides already exists. It needs no
// offset bookkeeping because the transport delivers whole units.
package tail
