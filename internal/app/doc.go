// Package app wires the skein components together and owns their
// lifecycle.
//
// Run composes the pipeline in dependency order: configuration, then the
// event transport, then the hub, then the mode controller, and finally
// the TUI, which blocks until exit. Teardown runs in reverse through
// defers: both pipelines are paused before the hub (and any transport
// behind it) is closed.
//
// Two source arrangements exist behind one factory type. The default
// tails skeind's per-mode log files directly. With the stream option the
// daemon's Redis endpoint supplies both halves instead: log lines arrive
// over per-mode push channels, and published events are mirrored to any
// other skein instance on the same endpoint. The endpoint is probed once
// at startup so a dead daemon fails fast rather than rendering an empty
// UI.
package app
