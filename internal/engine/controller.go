package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/skein-net/skein/internal/bus"
	"github.com/skein-net/skein/internal/circuit"
	"github.com/skein-net/skein/internal/journal"
	"github.com/skein-net/skein/internal/tail"
)

// SourceFactory builds a fresh tail source for a mode each time it
// resumes. File-backed factories return a FileSource on the mode's log
// path; stream-backed ones return the transport's log channel source.
type SourceFactory func(mode bus.Mode) (tail.Source, error)

// HistoryFunc fetches the daemon's recent-history buffer for a mode,
// oldest first. Nil when the source is file-backed: a file tailer resumes
// from its own position and has nothing to re-request.
type HistoryFunc func(ctx context.Context, mode bus.Mode, n int64) ([]string, error)

// historyPrime is how many buffered lines a stream-backed mode replays on
// resume to rebuild UI state after a (re)connection.
const historyPrime = 200

// Controller supervises the client and relay pipelines. Each mode owns a
// parser, a circuit store, and a journal that survive pause/resume; only
// the tail source and its goroutine are torn down. Both modes start
// paused.
type Controller struct {
	hub       *bus.Hub
	newSource SourceFactory
	history   HistoryFunc
	now       func() time.Time

	mu    sync.Mutex
	modes map[bus.Mode]*modeState
}

type modeState struct {
	parser  *circuit.Parser
	store   *circuit.Store
	journal *journal.Log
	pipe    *pipeline // nil while paused
}

// pipeline is the running half of a mode: one goroutine draining one
// source. The state it feeds lives in modeState and outlives it.
type pipeline struct {
	source tail.Source
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a controller with both modes paused. hops configures the
// expected path length for ready detection; historyLimit bounds each
// mode's journal (0 means journal.DefaultLimit).
func New(hub *bus.Hub, factory SourceFactory, history HistoryFunc, hops, historyLimit int) *Controller {
	c := &Controller{
		hub:       hub,
		newSource: factory,
		history:   history,
		now:       time.Now,
		modes:     make(map[bus.Mode]*modeState),
	}
	for _, mode := range []bus.Mode{bus.ModeClient, bus.ModeRelay} {
		c.modes[mode] = &modeState{
			parser:  circuit.NewParser(),
			store:   circuit.NewStore(hops),
			journal: journal.NewLog(historyLimit),
		}
	}
	return c
}

// Resume starts mode's pipeline. A no-op while the mode is already
// running. Stream-backed modes first replay the daemon's recent-history
// buffer to prime state; the journal's dedup keeps replayed lines from
// showing twice.
func (c *Controller) Resume(ctx context.Context, mode bus.Mode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.modes[mode]
	if !ok {
		return fmt.Errorf("unknown mode %q", mode)
	}
	if st.pipe != nil {
		return nil
	}

	source, err := c.newSource(mode)
	if err != nil {
		return fmt.Errorf("create %s source: %w", mode, err)
	}
	if err := source.Start(ctx); err != nil {
		return fmt.Errorf("start %s source: %w", mode, err)
	}

	if c.history != nil {
		lines, err := c.history(ctx, mode, historyPrime)
		if err != nil {
			log.Printf("engine: %s history prime failed: %v", mode, err)
		}
		for _, line := range lines {
			c.consume(mode, st, line)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	p := &pipeline{source: source, cancel: cancel, done: make(chan struct{})}
	st.pipe = p
	go c.run(runCtx, mode, st, p)

	c.hub.Publish(bus.Event{Name: bus.EventConnection, Mode: mode, Connected: true})
	return nil
}

// Pause stops mode's pipeline without touching the other mode. Safe to
// call while already paused. An in-flight read may complete inside the
// source but its lines are discarded, never applied.
func (c *Controller) Pause(mode bus.Mode) {
	c.mu.Lock()
	st, ok := c.modes[mode]
	if !ok || st.pipe == nil {
		c.mu.Unlock()
		return
	}
	p := st.pipe
	st.pipe = nil
	c.mu.Unlock()

	p.cancel()
	p.source.Stop()
	<-p.done

	c.hub.Publish(bus.Event{Name: bus.EventConnection, Mode: mode, Connected: false})
}

// Running reports whether mode's pipeline is active.
func (c *Controller) Running(mode bus.Mode) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.modes[mode]
	return ok && st.pipe != nil
}

// Snapshot returns mode's current circuit set.
func (c *Controller) Snapshot(mode bus.Mode) []circuit.Circuit {
	if st, ok := c.modes[mode]; ok {
		return st.store.Snapshot()
	}
	return nil
}

// CircuitInUse returns mode's current best-guess active circuit.
func (c *Controller) CircuitInUse(mode bus.Mode) *circuit.Circuit {
	if st, ok := c.modes[mode]; ok {
		return st.store.CircuitInUse()
	}
	return nil
}

// Journal returns mode's retained log history, oldest first. Used to
// prime a consumer that subscribed after lines already flowed.
func (c *Controller) Journal(mode bus.Mode) []journal.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.modes[mode]; ok {
		return st.journal.Entries()
	}
	return nil
}

func (c *Controller) run(ctx context.Context, mode bus.Mode, st *modeState, p *pipeline) {
	defer close(p.done)

	for {
		if ctx.Err() != nil {
			return
		}
		select {
		case line := <-p.source.Lines():
			// The select can pick a buffered line even after cancellation;
			// lines in flight at pause time are discarded, not applied.
			if ctx.Err() != nil {
				return
			}
			c.consume(mode, st, line)
		case err := <-p.source.Errs():
			// Surface the disconnect once; reconnection is the
			// operator's call, not an internal retry loop.
			log.Printf("engine: %s source error: %v", mode, err)
			c.hub.Publish(bus.Event{Name: bus.EventConnection, Mode: mode, Connected: false})
		case <-ctx.Done():
			return
		}
	}
}

// consume applies one line: journal it for display, parse it, fold the
// signal into the store, and publish whatever notifications the apply
// earned. Runs only on the mode's pipeline goroutine (or sequentially
// before it starts, during history priming), so the parser needs no lock;
// the journal and store carry their own for concurrent readers.
func (c *Controller) consume(mode bus.Mode, st *modeState, line string) {
	entry := journal.ParseEntry(line, "skeind", string(mode), c.now())
	if st.journal.Append(entry) {
		c.hub.Publish(bus.Event{Name: bus.EventLogEntry, Mode: mode, Entry: &entry})
	}

	sig, ok := st.parser.ParseLine(line)
	if !ok {
		return
	}
	out := st.store.Apply(sig)
	if out.Updated {
		c.hub.Publish(bus.Event{Name: bus.EventCircuitsUpdated, Mode: mode, Circuits: st.store.Snapshot()})
	}
	if out.InUseChanged {
		c.hub.Publish(bus.Event{Name: bus.EventCircuitInUse, Mode: mode, Circuit: st.store.CircuitInUse()})
	}
}
