package bus

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/skein-net/skein/internal/circuit"
)

func waitFor(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestRedisTransport_PublishAndRelay(t *testing.T) {
	srv := miniredis.RunT(t)
	ctx := context.Background()

	sender := NewRedisTransport(srv.Addr())
	receiver := NewRedisTransport(srv.Addr())
	defer sender.Close()
	defer receiver.Close()

	got := make(chan Event, 8)
	if err := receiver.Start(ctx, func(ev Event) { got <- ev }); err != nil {
		t.Fatalf("receiver Start() error = %v", err)
	}
	// The sender subscribes too so the loopback drop is exercised.
	senderGot := make(chan Event, 8)
	if err := sender.Start(ctx, func(ev Event) { senderGot <- ev }); err != nil {
		t.Fatalf("sender Start() error = %v", err)
	}

	ev := Event{
		Name:    EventCircuitInUse,
		Mode:    ModeClient,
		Circuit: &circuit.Circuit{ID: 42, Status: circuit.StatusBuilt},
	}
	if err := sender.Publish(ctx, ev); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	relayed := waitFor(t, got)
	if relayed.Name != EventCircuitInUse || relayed.Circuit == nil || relayed.Circuit.ID != 42 {
		t.Fatalf("relayed event = %#v, want circuit 42 in use", relayed)
	}
	if relayed.Origin != sender.Origin() {
		t.Fatalf("Origin = %q, want sender origin %q", relayed.Origin, sender.Origin())
	}

	// The sender must not reconsume its own event.
	select {
	case ev := <-senderGot:
		t.Fatalf("sender received its own event: %#v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRedisTransport_History(t *testing.T) {
	srv := miniredis.RunT(t)
	ctx := context.Background()

	tr := NewRedisTransport(srv.Addr())
	defer tr.Close()

	for _, line := range []string{"one", "two", "three", "four"} {
		srv.RPush(historyKeyPrefix+"client", line)
	}

	lines, err := tr.History(ctx, ModeClient, 3)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	want := []string{"two", "three", "four"}
	if len(lines) != 3 || lines[0] != want[0] || lines[2] != want[2] {
		t.Fatalf("History() = %v, want %v", lines, want)
	}

	if lines, err := tr.History(ctx, ModeClient, 0); err != nil || lines != nil {
		t.Fatalf("History(0) = (%v, %v), want (nil, nil)", lines, err)
	}
}

func TestRedisTransport_Ping(t *testing.T) {
	srv := miniredis.RunT(t)
	tr := NewRedisTransport(srv.Addr())
	defer tr.Close()

	if err := tr.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestStreamSource_ForwardsLinesInOrder(t *testing.T) {
	srv := miniredis.RunT(t)
	ctx := context.Background()

	tr := NewRedisTransport(srv.Addr())
	defer tr.Close()

	src := tr.LogSource(ModeRelay)
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer src.Stop()

	publisher := NewRedisTransport(srv.Addr())
	defer publisher.Close()
	for _, line := range []string{"Circuit 1 launched", "Circuit 1 (BUILT)"} {
		if err := publisher.client.Publish(ctx, logChannelPrefix+"relay", line).Err(); err != nil {
			t.Fatalf("publish line: %v", err)
		}
	}

	for _, want := range []string{"Circuit 1 launched", "Circuit 1 (BUILT)"} {
		select {
		case got := <-src.Lines():
			if got != want {
				t.Fatalf("line = %q, want %q", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestStreamSource_StopIsIdempotent(t *testing.T) {
	srv := miniredis.RunT(t)
	tr := NewRedisTransport(srv.Addr())
	defer tr.Close()

	src := tr.LogSource(ModeClient)
	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	src.Stop()
	src.Stop()
}
