package circuit

import (
	"reflect"
	"testing"
	"time"
)

var t0 = time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

func builtSignal(id int64, at time.Time) Signal {
	return Signal{
		Kind:      SignalBuilt,
		CircuitID: id,
		At:        at,
		Relays: []Relay{
			{Fingerprint: "F1", IP: "1.1.1.1"},
			{Fingerprint: "F2", IP: "2.2.2.2"},
			{Fingerprint: "F3", IP: "3.3.3.3"},
		},
	}
}

func TestApply_BuiltEnvelope(t *testing.T) {
	s := NewStore(3)

	out := s.Apply(builtSignal(42, t0))
	if !out.Updated {
		t.Fatal("Updated = false, want true")
	}
	if out.Ready == nil || out.Ready.ID != 42 {
		t.Fatalf("Ready = %#v, want circuit 42", out.Ready)
	}
	if !out.InUseChanged {
		t.Fatal("InUseChanged = false, want true on first ready circuit")
	}

	snap := s.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("len(Snapshot()) = %d, want 1", len(snap))
	}
	c := snap[0]
	if c.Status != StatusBuilt {
		t.Fatalf("Status = %v, want built", c.Status)
	}
	if want := []string{"F1", "F2", "F3"}; !reflect.DeepEqual(c.Fingerprints, want) {
		t.Fatalf("Fingerprints = %v, want %v", c.Fingerprints, want)
	}
	if want := []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"}; !reflect.DeepEqual(c.IPs, want) {
		t.Fatalf("IPs = %v, want %v", c.IPs, want)
	}
}

func TestApply_IdempotentReplay(t *testing.T) {
	s := NewStore(3)

	s.Apply(builtSignal(42, t0))
	first := s.Snapshot()[0]

	out := s.Apply(builtSignal(42, t0.Add(time.Second)))
	if out.Updated {
		t.Fatal("replay reported Updated = true")
	}
	if out.Ready != nil {
		t.Fatal("replay re-announced an already announced circuit")
	}
	if out.InUseChanged {
		t.Fatal("replay moved the in-use designation")
	}

	second := s.Snapshot()[0]
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("replay changed the record:\n first = %#v\nsecond = %#v", first, second)
	}
}

func TestApply_AnnounceResetsOnDifferentCircuit(t *testing.T) {
	s := NewStore(3)

	if out := s.Apply(builtSignal(1, t0)); out.Ready == nil {
		t.Fatal("circuit 1 not announced")
	}
	if out := s.Apply(builtSignal(2, t0.Add(time.Second))); out.Ready == nil {
		t.Fatal("circuit 2 not announced after circuit 1")
	}
	// Circuit 1 completing again is announceable again now that a
	// different circuit holds the marker.
	if out := s.Apply(builtSignal(1, t0.Add(2*time.Second))); out.Ready == nil {
		t.Fatal("circuit 1 not re-announced after marker moved to 2")
	}
}

func TestApply_OrderInsensitiveStatus(t *testing.T) {
	created := Signal{Kind: SignalCreated, CircuitID: 5, IdleTimeoutSec: 60, BuildTimeSec: 10, At: t0}
	built := Signal{Kind: SignalStatus, CircuitID: 5, Status: StatusBuilt, At: t0.Add(time.Second)}

	forward := NewStore(3)
	forward.Apply(created)
	forward.Apply(built)

	reverse := NewStore(3)
	reverse.Apply(built) // forward reference: status before creation
	reverse.Apply(created)

	f, r := forward.Snapshot()[0], reverse.Snapshot()[0]
	if f.Status != StatusBuilt || r.Status != StatusBuilt {
		t.Fatalf("status forward/reverse = %v/%v, want built/built", f.Status, r.Status)
	}
	if f.IdleTimeoutSec != 60 || r.IdleTimeoutSec != 60 {
		t.Fatalf("idle timeout forward/reverse = %d/%d, want 60/60", f.IdleTimeoutSec, r.IdleTimeoutSec)
	}
}

func TestApply_LastWriteWinsStatus(t *testing.T) {
	s := NewStore(3)
	s.Apply(Signal{Kind: SignalStatus, CircuitID: 5, Status: StatusClosed, At: t0})
	s.Apply(Signal{Kind: SignalStatus, CircuitID: 5, Status: StatusBuilt, At: t0.Add(time.Second)})

	if got := s.Snapshot()[0].Status; got != StatusBuilt {
		t.Fatalf("Status = %v, want built (last write wins)", got)
	}
}

func TestApply_HeuristicAppendsDeduplicated(t *testing.T) {
	s := NewStore(3)
	s.Apply(Signal{Kind: SignalOpened, CircuitID: 9, At: t0})
	for i := 0; i < 3; i++ {
		s.Apply(Signal{Kind: SignalFingerprint, CircuitID: 9, Fingerprint: "AAAA", At: t0})
		s.Apply(Signal{Kind: SignalIP, CircuitID: 9, IP: "4.4.4.4", At: t0})
	}

	c := s.Snapshot()[0]
	if len(c.Fingerprints) != 1 || len(c.IPs) != 1 {
		t.Fatalf("fingerprints/ips = %v/%v, want one of each", c.Fingerprints, c.IPs)
	}
}

func TestApply_HopCountCapsHeuristics(t *testing.T) {
	s := NewStore(3)
	s.Apply(Signal{Kind: SignalOpened, CircuitID: 9, At: t0})
	for _, fp := range []string{"A", "B", "C", "D"} {
		s.Apply(Signal{Kind: SignalFingerprint, CircuitID: 9, Fingerprint: fp, At: t0})
	}
	if got := s.Snapshot()[0].Fingerprints; len(got) != 3 {
		t.Fatalf("Fingerprints = %v, want capped at 3", got)
	}
}

// A history re-prime re-parses the creation diagnostic at a later wall
// clock. The replay must be a no-op: same numbers, same CreatedAt, same
// derived expiry.
func TestApply_CreationReplayKeepsExpiryAnchor(t *testing.T) {
	s := NewStore(3)
	created := Signal{Kind: SignalCreated, CircuitID: 5, IdleTimeoutSec: 60, BuildTimeSec: 10, At: t0}

	if out := s.Apply(created); !out.Updated {
		t.Fatal("first creation diagnostic reported Updated = false")
	}

	replay := created
	replay.At = t0.Add(30 * time.Minute)
	if out := s.Apply(replay); out.Updated {
		t.Fatal("replayed creation diagnostic reported Updated = true")
	}

	s.now = func() time.Time { return t0 }
	c := s.Snapshot()[0]
	if !c.CreatedAt.Equal(t0) {
		t.Fatalf("CreatedAt = %v, want %v", c.CreatedAt, t0)
	}
	if want := t0.Add(60 * time.Second); !c.ExpiresAt.Equal(want) {
		t.Fatalf("ExpiresAt = %v, want %v", c.ExpiresAt, want)
	}
}

func TestSnapshot_ExpiryDerivation(t *testing.T) {
	s := NewStore(3)
	s.Apply(Signal{Kind: SignalCreated, CircuitID: 1, IdleTimeoutSec: 60, At: t0})

	s.now = func() time.Time { return t0.Add(59 * time.Second) }
	if c := s.Snapshot()[0]; c.Expired {
		t.Fatal("Expired = true at T+59s, want false")
	}

	s.now = func() time.Time { return t0.Add(61 * time.Second) }
	c := s.Snapshot()[0]
	if !c.Expired {
		t.Fatal("Expired = false at T+61s, want true")
	}
	if want := t0.Add(60 * time.Second); !c.ExpiresAt.Equal(want) {
		t.Fatalf("ExpiresAt = %v, want %v", c.ExpiresAt, want)
	}
}

func TestSnapshot_NoTimeoutNeverExpires(t *testing.T) {
	s := NewStore(3)
	s.Apply(Signal{Kind: SignalOpened, CircuitID: 1, At: t0})
	s.now = func() time.Time { return t0.Add(24 * time.Hour) }

	c := s.Snapshot()[0]
	if c.Expired || !c.ExpiresAt.IsZero() {
		t.Fatalf("circuit without idle timeout derived expiry: %#v", c)
	}
}

func TestCircuitInUse_Recency(t *testing.T) {
	s := NewStore(3)
	s.Apply(Signal{Kind: SignalOpened, CircuitID: 1, At: t0})
	s.Apply(Signal{Kind: SignalOpened, CircuitID: 2, At: t0})

	if s.CircuitInUse() != nil {
		t.Fatal("CircuitInUse() != nil before any usage")
	}

	s.Apply(Signal{Kind: SignalUsed, CircuitID: 1, At: t0.Add(time.Second)})
	s.Apply(Signal{Kind: SignalUsed, CircuitID: 2, At: t0.Add(2 * time.Second)})
	if got := s.CircuitInUse(); got == nil || got.ID != 2 {
		t.Fatalf("CircuitInUse() = %#v, want circuit 2", got)
	}

	// A later usage signal moves the designation back.
	out := s.Apply(Signal{Kind: SignalUsed, CircuitID: 1, At: t0.Add(3 * time.Second)})
	if !out.InUseChanged {
		t.Fatal("InUseChanged = false, want true")
	}
	if got := s.CircuitInUse(); got == nil || got.ID != 1 {
		t.Fatalf("CircuitInUse() = %#v, want circuit 1", got)
	}

	// Stale usage for circuit 2 changes nothing.
	out = s.Apply(Signal{Kind: SignalUsed, CircuitID: 2, At: t0.Add(time.Second)})
	if out.InUseChanged {
		t.Fatal("stale usage moved the in-use designation")
	}
}

func TestApply_IncompleteCircuitRetainedNotReady(t *testing.T) {
	s := NewStore(3)
	s.Apply(Signal{Kind: SignalStatus, CircuitID: 7, Status: StatusBuilt, At: t0})
	out := s.Apply(Signal{Kind: SignalFingerprint, CircuitID: 7, Fingerprint: "F1", At: t0})

	if out.Ready != nil {
		t.Fatal("two-signal circuit announced as ready")
	}
	if len(s.Snapshot()) != 1 {
		t.Fatal("incomplete circuit missing from snapshot")
	}
}

func TestSnapshot_Clones(t *testing.T) {
	s := NewStore(3)
	s.Apply(builtSignal(42, t0))

	snap := s.Snapshot()
	snap[0].Fingerprints[0] = "mutated"
	if got := s.Snapshot()[0].Fingerprints[0]; got != "F1" {
		t.Fatalf("Snapshot aliases store internals: %q", got)
	}
}
