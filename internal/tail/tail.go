package tail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Source is a growing stream of whole diagnostic lines. Implementations
// deliver newly appended lines exactly once, in order, and never emit a
// partial trailing line.
type Source interface {
	// Start begins delivery. It returns immediately; lines arrive on
	// Lines() until the context is cancelled or Stop is called.
	Start(ctx context.Context) error
	Lines() <-chan string
	Errs() <-chan error
	// Stop halts delivery and releases resources. Safe to call more
	// than once.
	Stop()
}

const (
	// DefaultPollInterval paces the fallback scan of the log file. On
	// Linux inotify wakes the reader sooner; the ticker only covers
	// platforms and edge cases notifications miss.
	DefaultPollInterval = time.Second

	lineChanBuffer = 256
)

// FileSource tails a skeind log file by byte offset. Each wake-up reads
// exactly the appended range and advances the offset, so coalesced or
// repeated notifications never re-deliver bytes. A partial line at the end
// of a read is held back and prefixed onto the next read.
type FileSource struct {
	path string
	poll time.Duration

	lines chan string
	errs  chan error

	offset  int64
	pending []byte

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewFileSource returns an unstarted tailer for path. Non-positive poll
// falls back to DefaultPollInterval.
func NewFileSource(path string, poll time.Duration) *FileSource {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &FileSource{
		path:  path,
		poll:  poll,
		lines: make(chan string, lineChanBuffer),
		errs:  make(chan error, 1),
		done:  make(chan struct{}),
	}
}

// Start launches the tail loop. The file may not exist yet; it is picked
// up on the first wake-up after it appears.
func (s *FileSource) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	// A failed watcher (unsupported platform, unreadable directory) is not
	// fatal: the polling ticker covers delivery, just with more latency.
	w, err := newWatcher(s.path)
	if err != nil {
		w = nil
	}

	go s.run(ctx, w)
	return nil
}

// errWatchUnsupported is returned by newWatcher on platforms without
// filesystem change notifications.
var errWatchUnsupported = errors.New("tail: change notifications unsupported")

func (s *FileSource) Lines() <-chan string { return s.lines }
func (s *FileSource) Errs() <-chan error   { return s.errs }

// Stop cancels the loop and waits for it to exit. In-flight reads finish
// but their lines are no longer delivered once the consumer stops
// draining.
func (s *FileSource) Stop() {
	// A never-started source has no loop to wait for.
	if s.cancel == nil {
		return
	}
	s.stopOnce.Do(func() {
		s.cancel()
		<-s.done
	})
}

func (s *FileSource) run(ctx context.Context, w *watcher) {
	defer close(s.done)
	if w != nil {
		defer w.close()
	}

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	var wake <-chan struct{}
	if w != nil {
		wake = w.events
	}

	for {
		if err := s.drain(ctx); err != nil {
			select {
			case s.errs <- err:
			default:
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-wake:
		}
	}
}

// drain reads from the last-known offset to the current size and forwards
// whole lines. Truncation (size below offset) restarts from the top of the
// file.
func (s *FileSource) drain(ctx context.Context) error {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat log: %w", err)
	}

	size := info.Size()
	if size < s.offset {
		s.offset = 0
		s.pending = nil
	}
	if size == s.offset {
		return nil
	}

	file, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(s.offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek log: %w", err)
	}
	chunk, err := io.ReadAll(io.LimitReader(file, size-s.offset))
	if err != nil {
		return fmt.Errorf("read log: %w", err)
	}
	s.offset += int64(len(chunk))

	buf := append(s.pending, chunk...)
	lines, rest := splitLines(buf)
	s.pending = rest

	for _, line := range lines {
		select {
		case s.lines <- line:
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

// splitLines cuts buf into complete newline-terminated lines and returns
// the unterminated remainder. Carriage returns are stripped.
func splitLines(buf []byte) ([]string, []byte) {
	var lines []string
	start := 0
	for i, b := range buf {
		if b != '\n' {
			continue
		}
		line := buf[start:i]
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		lines = append(lines, string(line))
		start = i + 1
	}
	if start == len(buf) {
		return lines, nil
	}
	rest := make([]byte, len(buf)-start)
	copy(rest, buf[start:])
	return lines, rest
}
