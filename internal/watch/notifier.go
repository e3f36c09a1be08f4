// Package watch turns filesystem activity under the scan root into wake-up
// signals for the local pipeline.
package watch

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// NotifierOption configures a Notifier
type NotifierOption func(*Notifier)

// WithDebounce sets how long to wait for a burst of events to settle
func WithDebounce(d time.Duration) NotifierOption {
	return func(n *Notifier) {
		n.debounce = d
	}
}

// WithFilter skips directories for which excluded returns true
func WithFilter(excluded func(path string) bool) NotifierOption {
	return func(n *Notifier) {
		n.excluded = excluded
	}
}

// Notifier watches a set of directories. Any create, write or rename in
// them produces at most one pending signal on Wake.
type Notifier struct {
	watcher  *fsnotify.Watcher
	wake     chan struct{}
	done     chan struct{}
	debounce time.Duration
	excluded func(path string) bool

	mu      sync.Mutex
	dirs    map[string]struct{}
	started bool
	closed  bool
}

// NewNotifier creates a notifier. Call Start to begin delivering signals.
func NewNotifier(opts ...NotifierOption) (*Notifier, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	n := &Notifier{
		watcher:  w,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		debounce: 500 * time.Millisecond,
		dirs:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Add starts watching dir. Adding a directory twice is a no-op. Errors are
// logged; a directory that cannot be watched is still rescanned on the
// regular interval.
func (n *Notifier) Add(dir string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	if _, ok := n.dirs[dir]; ok {
		return
	}
	if n.excluded != nil && n.excluded(dir) {
		return
	}
	if err := n.watcher.Add(dir); err != nil {
		log.Printf("WARN: cannot watch %s: %v", dir, err)
		return
	}
	n.dirs[dir] = struct{}{}
}

// Len reports how many directories are watched
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.dirs)
}

// Wake returns the signal channel
func (n *Notifier) Wake() <-chan struct{} {
	return n.wake
}

// Start runs the event loop in the background. Later calls do nothing.
func (n *Notifier) Start() {
	n.mu.Lock()
	if n.started || n.closed {
		n.mu.Unlock()
		return
	}
	n.started = true
	n.mu.Unlock()

	go n.loop()
}

func (n *Notifier) loop() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-n.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					n.Add(event.Name)
				}
			}
			if timer == nil {
				timer = time.NewTimer(n.debounce)
			} else {
				timer.Reset(n.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			select {
			case n.wake <- struct{}{}:
			default:
			}

		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("WARN: watcher error: %v", err)
		}
	}
}

// Close stops the event loop and releases all watches
func (n *Notifier) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.mu.Unlock()

	close(n.done)
	return n.watcher.Close()
}
