package circuit

import (
	"sync"
	"time"
)

// DefaultHopCount is the path length skeind builds unless configured
// otherwise: guard, middle, exit.
const DefaultHopCount = 3

// Outcome tells the caller which downstream notifications an Apply earned.
// Replayed signals that change nothing earn nothing.
type Outcome struct {
	// Updated is true when the circuit set changed.
	Updated bool
	// Ready is the circuit that just became announceable (full path with
	// fingerprints and IPs observed), nil otherwise. A circuit is announced
	// at most once until a different circuit becomes ready.
	Ready *Circuit
	// InUseChanged is true when the in-use designation moved.
	InUseChanged bool
}

// Store folds signals into circuit records for one mode. Records are
// created on first sighting of an id, updated in place, and never deleted;
// closed and failed circuits stay queryable for the life of the process.
//
// Status updates are last-write-wins. The upstream stream carries no
// sequence numbers, so a reordered pair of status lines can leave a stale
// status; the store tolerates this rather than inventing ordering the
// daemon does not provide.
type Store struct {
	mu        sync.RWMutex
	circuits  map[int64]*Circuit
	order     []int64
	hops      int
	announced int64 // id of the last circuit surfaced as ready
	inUse     int64 // id of the circuit with the newest LastUsedAt
	now       func() time.Time
}

// NewStore returns an empty store expecting hops relays per full path.
// Non-positive hops falls back to DefaultHopCount.
func NewStore(hops int) *Store {
	if hops <= 0 {
		hops = DefaultHopCount
	}
	return &Store{
		circuits: make(map[int64]*Circuit),
		hops:     hops,
		now:      time.Now,
	}
}

// Apply folds one signal into the store. Idempotent under replay:
// fingerprints and IPs are membership-checked before appending, and a
// circuit whose full path was already announced is not announced again.
func (s *Store) Apply(sig Signal) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sig.CircuitID == 0 {
		return Outcome{}
	}

	var out Outcome
	c, created := s.record(sig)
	out.Updated = created

	switch sig.Kind {
	case SignalOpened:
		// Record creation above is the whole effect.

	case SignalBuilt:
		if c.Status != StatusBuilt {
			c.Status = StatusBuilt
			out.Updated = true
		}
		for _, relay := range sig.Relays {
			if relay.Fingerprint != "" && !c.HasFingerprint(relay.Fingerprint) {
				c.Fingerprints = append(c.Fingerprints, relay.Fingerprint)
				out.Updated = true
			}
			if relay.IP != "" && !c.HasIP(relay.IP) {
				c.IPs = append(c.IPs, relay.IP)
				out.Updated = true
			}
			if s.mergeRelay(c, relay) {
				out.Updated = true
			}
		}

	case SignalStatus:
		if c.Status != sig.Status {
			c.Status = sig.Status
			out.Updated = true
		}

	case SignalCreated:
		if c.IdleTimeoutSec != sig.IdleTimeoutSec || c.BuildTimeSec != sig.BuildTimeSec {
			c.IdleTimeoutSec = sig.IdleTimeoutSec
			c.BuildTimeSec = sig.BuildTimeSec
			// The creation diagnostic's timestamp is authoritative, but
			// only alongside new numbers; a replayed line re-parsed at a
			// later wall clock must not shift the derived expiry.
			c.CreatedAt = sig.At
			out.Updated = true
		}
		if c.Status == StatusUnknown {
			c.Status = StatusBuilding
		}

	case SignalFingerprint:
		if !c.HasFingerprint(sig.Fingerprint) && len(c.Fingerprints) < s.hops {
			c.Fingerprints = append(c.Fingerprints, sig.Fingerprint)
			out.Updated = true
		}

	case SignalIP:
		if !c.HasIP(sig.IP) && len(c.IPs) < s.hops {
			c.IPs = append(c.IPs, sig.IP)
			out.Updated = true
		}

	case SignalUsed:
		if sig.At.After(c.LastUsedAt) {
			c.LastUsedAt = sig.At
			out.InUseChanged = s.recomputeInUse()
		}
	}

	if ready := s.maybeAnnounce(c, sig.At); ready != nil {
		out.Ready = ready
		out.Updated = true
		if s.recomputeInUse() {
			out.InUseChanged = true
		}
	}

	return out
}

// Snapshot returns derived copies of every tracked circuit in first-seen
// order, including incomplete, closed, and failed ones.
func (s *Store) Snapshot() []Circuit {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	snap := make([]Circuit, 0, len(s.order))
	for _, id := range s.order {
		c := s.circuits[id].Clone()
		c.derive(now)
		snap = append(snap, c)
	}
	return snap
}

// CircuitInUse returns the circuit with the most recent usage timestamp,
// or nil when no circuit has carried traffic yet.
func (s *Store) CircuitInUse() *Circuit {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.circuits[s.inUse]
	if !ok {
		return nil
	}
	dup := c.Clone()
	dup.derive(s.now())
	return &dup
}

// record returns the circuit for the signal's id, creating it on first
// sighting. CreatedAt defaults to the first observation; a later creation
// diagnostic overwrites it with the authoritative timestamp.
func (s *Store) record(sig Signal) (*Circuit, bool) {
	if c, ok := s.circuits[sig.CircuitID]; ok {
		return c, false
	}
	c := &Circuit{
		ID:        sig.CircuitID,
		Status:    StatusUnknown,
		CreatedAt: sig.At,
	}
	s.circuits[sig.CircuitID] = c
	s.order = append(s.order, sig.CircuitID)
	return c, true
}

// mergeRelay updates the ordered relay descriptor matching fp, or appends
// a new one, keeping envelope order.
func (s *Store) mergeRelay(c *Circuit, relay Relay) bool {
	if relay.Fingerprint == "" {
		return false
	}
	for i := range c.Relays {
		if c.Relays[i].Fingerprint != relay.Fingerprint {
			continue
		}
		changed := false
		if relay.Nickname != "" && c.Relays[i].Nickname != relay.Nickname {
			c.Relays[i].Nickname = relay.Nickname
			changed = true
		}
		if relay.IP != "" && c.Relays[i].IP != relay.IP {
			c.Relays[i].IP = relay.IP
			changed = true
		}
		if relay.RateMsat != 0 && c.Relays[i].RateMsat != relay.RateMsat {
			c.Relays[i].RateMsat = relay.RateMsat
			changed = true
		}
		return changed
	}
	c.Relays = append(c.Relays, relay)
	return true
}

// maybeAnnounce surfaces c as ready when its full path has been observed.
// The announced marker resets only when a different circuit becomes ready,
// so replaying the lines that completed a path cannot re-announce it.
// Becoming ready also primes LastUsedAt: a freshly usable path is skein's
// best guess for the one about to carry traffic.
func (s *Store) maybeAnnounce(c *Circuit, at time.Time) *Circuit {
	if c.Status != StatusBuilt && c.Status != StatusExtended {
		return nil
	}
	if len(c.Fingerprints) < s.hops || len(c.IPs) < s.hops {
		return nil
	}
	if s.announced == c.ID {
		return nil
	}
	s.announced = c.ID
	if at.After(c.LastUsedAt) {
		c.LastUsedAt = at
	}
	dup := c.Clone()
	dup.derive(s.now())
	return &dup
}

// recomputeInUse rescans LastUsedAt across all circuits and reports
// whether the designation moved.
func (s *Store) recomputeInUse() bool {
	var best int64
	var bestAt time.Time
	for id, c := range s.circuits {
		if c.LastUsedAt.After(bestAt) {
			best = id
			bestAt = c.LastUsedAt
		}
	}
	if best == s.inUse {
		return false
	}
	s.inUse = best
	return true
}
