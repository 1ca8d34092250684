// Package watcher monitors site source directories for changes and emits
// rebuild triggers. Events are filtered (build output excluded, extension
// allow-list) and throttled: an event is accepted only when a full debounce
// interval has passed since the last accepted event; events inside the
// window are dropped, not queued.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventType represents the type of file change
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// ChangeEvent is one accepted file change.
type ChangeEvent struct {
	Type EventType
	Path string
	Time time.Time
}

// FileFilter reports whether a changed path should be considered at all.
type FileFilter func(path string) bool

// FileWatcher watches a set of directory trees and delivers debounced
// rebuild triggers on Triggers(). The watch loop never blocks on trigger
// consumption; if the consumer is busy the trigger is dropped (the
// consumer's pending slot covers that case).
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	filters  []FileFilter
	triggers chan ChangeEvent
	interval time.Duration

	mu           sync.Mutex
	lastAccepted time.Time

	started  bool
	stopOnce sync.Once
	loopDone chan struct{}
}

// NewFileWatcher creates a watcher with the given debounce interval.
func NewFileWatcher(debounce time.Duration) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FileWatcher{
		watcher:  w,
		triggers: make(chan ChangeEvent, 1),
		interval: debounce,
		loopDone: make(chan struct{}),
	}, nil
}

// AddFilter adds a file filter. All filters must accept a path for its
// events to produce triggers.
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.filters = append(fw.filters, filter)
}

// AddRecursive adds a directory and all its subdirectories to the watch
// set. Missing roots are skipped; the caller decides whether that matters.
func (fw *FileWatcher) AddRecursive(root string) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.watcher.Add(path)
		}
		return nil
	})
}

// Triggers returns the channel of accepted change events.
func (fw *FileWatcher) Triggers() <-chan ChangeEvent {
	return fw.triggers
}

// Start runs the watch loop until the context is cancelled or Stop is
// called.
func (fw *FileWatcher) Start(ctx context.Context) {
	fw.mu.Lock()
	fw.started = true
	fw.mu.Unlock()
	go fw.watchLoop(ctx)
}

// Stop closes the underlying watcher and blocks until the watch loop has
// fully quiesced.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		err = fw.watcher.Close()
		fw.mu.Lock()
		started := fw.started
		fw.mu.Unlock()
		if started {
			<-fw.loopDone
		}
	})
	return err
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	defer close(fw.loopDone)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)
		case _, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are transient; keep watching.
		}
	}
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	// New directories under a watched root are not watched automatically;
	// add them so edits inside keep triggering rebuilds.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = fw.watcher.Add(event.Name)
			return
		}
	}

	for _, filter := range fw.filters {
		if !filter(event.Name) {
			return
		}
	}

	ev := ChangeEvent{Path: event.Name, Time: time.Now()}
	switch {
	case event.Has(fsnotify.Create):
		ev.Type = EventTypeCreated
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		ev.Type = EventTypeDeleted
	default:
		ev.Type = EventTypeModified
	}

	if !fw.accept(ev.Time) {
		return
	}

	select {
	case fw.triggers <- ev:
	default:
		// Consumer busy; the pending rebuild slot already covers this change.
	}
}

// accept applies the debounce policy: a change is accepted only if the
// debounce interval has fully elapsed since the previous accepted change.
func (fw *FileWatcher) accept(now time.Time) bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if now.Sub(fw.lastAccepted) < fw.interval {
		return false
	}
	fw.lastAccepted = now
	return true
}

// ExtensionFilter accepts only paths whose extension is in the given set.
func ExtensionFilter(exts ...string) FileFilter {
	allowed := make(map[string]bool, len(exts))
	for _, ext := range exts {
		allowed[ext] = true
	}
	return func(path string) bool {
		return allowed[filepath.Ext(path)]
	}
}

// ExcludeDirFilter rejects paths inside the given directory. Used to keep
// the pipeline's own writes to the build root from triggering rebuilds.
func ExcludeDirFilter(dir string) FileFilter {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = filepath.Clean(dir)
	}
	prefix := abs + string(filepath.Separator)
	return func(path string) bool {
		p, err := filepath.Abs(path)
		if err != nil {
			p = filepath.Clean(path)
		}
		return p != abs && !strings.HasPrefix(p, prefix)
	}
}
