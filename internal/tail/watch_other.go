//go:build !linux

package tail

// Without inotify the tailer relies on its polling ticker alone.
type watcher struct {
	events chan struct{}
}

func newWatcher(string) (*watcher, error) {
	return nil, errWatchUnsupported
}

func (w *watcher) close() {}
