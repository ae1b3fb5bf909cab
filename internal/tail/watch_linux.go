//go:build linux

package tail

import (
	"path/filepath"

	"golang.org/x/sys/unix"
)

// watcher surfaces inotify activity on the log file's directory as
// coalescing wake-ups. Watching the directory rather than the file means
// the log being created after startup is noticed too.
type watcher struct {
	fd     int
	events chan struct{}
}

func newWatcher(path string) (*watcher, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC)
	if err != nil {
		return nil, err
	}
	mask := uint32(unix.IN_MODIFY | unix.IN_CREATE | unix.IN_MOVED_TO | unix.IN_CLOSE_WRITE)
	if _, err := unix.InotifyAddWatch(fd, filepath.Dir(path), mask); err != nil {
		unix.Close(fd)
		return nil, err
	}

	w := &watcher{fd: fd, events: make(chan struct{}, 1)}
	go w.read()
	return w, nil
}

// read blocks on the inotify descriptor and collapses bursts into a single
// pending wake-up. Closing the descriptor ends the loop.
func (w *watcher) read() {
	buf := make([]byte, 4096)
	for {
		n, err := unix.Read(w.fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil || n <= 0 {
			return
		}
		select {
		case w.events <- struct{}{}:
		default:
		}
	}
}

func (w *watcher) close() {
	unix.Close(w.fd)
}
