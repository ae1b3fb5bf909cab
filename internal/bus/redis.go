package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/skein-net/skein/internal/tail"
)

// Redis key and channel layout shared with skeind.
const (
	eventsChannel    = "skein:events"
	logChannelPrefix = "skein:log:"     // + mode: daemon pushes raw lines
	historyKeyPrefix = "skein:history:" // + mode: daemon keeps recent lines
)

// RedisTransport is the network push transport: it republishes hub events
// on a shared channel, relays remote events back to local subscribers, and
// exposes skeind's per-mode log-line channels and recent-history buffer.
// Every transport instance carries a random origin id; events stamped with
// the instance's own origin are dropped on receipt so a process never
// reconsumes what it published.
type RedisTransport struct {
	client *redis.Client
	origin string
	pubsub *redis.PubSub
}

// NewRedisTransport connects lazily to the Redis endpoint skeind publishes
// on. No I/O happens until Start or a helper is called.
func NewRedisTransport(addr string) *RedisTransport {
	return &RedisTransport{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		origin: uuid.NewString(),
	}
}

// Origin returns the instance id stamped onto published events.
func (t *RedisTransport) Origin() string { return t.origin }

// Start subscribes to the event channel and relays remote events through
// deliver until the transport is closed.
func (t *RedisTransport) Start(ctx context.Context, deliver func(Event)) error {
	t.pubsub = t.client.Subscribe(ctx, eventsChannel)
	if _, err := t.pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe events: %w", err)
	}

	go func() {
		for msg := range t.pubsub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("bus: malformed remote event skipped: %v", err)
				continue
			}
			if ev.Origin == t.origin {
				continue
			}
			deliver(ev)
		}
	}()
	return nil
}

// Publish stamps the event with this instance's origin and pushes it to
// remote consumers.
func (t *RedisTransport) Publish(ctx context.Context, ev Event) error {
	ev.Origin = t.origin
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := t.client.Publish(ctx, eventsChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Close tears down the subscription and the connection pool.
func (t *RedisTransport) Close() error {
	if t.pubsub != nil {
		_ = t.pubsub.Close()
	}
	return t.client.Close()
}

// Ping reports whether the daemon's Redis endpoint is reachable; the UI's
// connected indicator hangs off this.
func (t *RedisTransport) Ping(ctx context.Context) error {
	if err := t.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping daemon endpoint: %w", err)
	}
	return nil
}

// History returns the last n lines skeind buffered for mode, oldest first.
// Used to prime state when a mode resumes on the stream transport.
func (t *RedisTransport) History(ctx context.Context, mode Mode, n int64) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	lines, err := t.client.LRange(ctx, historyKeyPrefix+string(mode), -n, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch %s history: %w", mode, err)
	}
	return lines, nil
}

// LogSource returns the stream-backed tail source for mode: whole lines
// pushed by skeind over the mode's log channel, forwarded in arrival
// order. No offset bookkeeping is needed; the transport delivers whole
// units.
func (t *RedisTransport) LogSource(mode Mode) *StreamSource {
	return &StreamSource{
		client:  t.client,
		channel: logChannelPrefix + string(mode),
		lines:   make(chan string, 256),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
	}
}

// StreamSource adapts a Redis log channel to the tail.Source contract.
type StreamSource struct {
	client  *redis.Client
	channel string

	lines chan string
	errs  chan error

	pubsub   *redis.PubSub
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

var _ tail.Source = (*StreamSource)(nil)

// Start subscribes to the log channel and begins forwarding lines.
func (s *StreamSource) Start(ctx context.Context) error {
	s.pubsub = s.client.Subscribe(ctx, s.channel)
	if _, err := s.pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.channel, err)
	}
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		defer close(s.done)
		ch := s.pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					// Subscription dropped: surface it once and let
					// the controller decide; no auto-reconnect here.
					select {
					case s.errs <- fmt.Errorf("log stream %s disconnected", s.channel):
					default:
					}
					return
				}
				select {
				case s.lines <- msg.Payload:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (s *StreamSource) Lines() <-chan string { return s.lines }
func (s *StreamSource) Errs() <-chan error   { return s.errs }

// Stop cancels forwarding and closes the subscription.
func (s *StreamSource) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		if s.pubsub != nil {
			_ = s.pubsub.Close()
		}
		if s.cancel != nil {
			<-s.done
		}
	})
}
