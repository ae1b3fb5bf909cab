// Package engine ties the pipeline together: it tails skeind's
// diagnostic stream, folds each line into per-mode circuit state, and
// publishes the resulting updates on the bus.
//
// The Controller runs one pipeline per daemon mode, client and relay,
// each fully independent: its own parser cursor, its own circuit store,
// its own journal. Pausing a mode tears down only its tail source; the
// accumulated state stays put and the next resume continues from it.
// Both modes start paused so nothing streams until asked.
package engine
