// Package watch reruns a job when source files change.
//
// A Watcher follows the directories holding the files it is given and
// collects create, write, rename and remove events. Once the tree has been
// quiet for the debounce delay, the changed paths are handed to the job as
// one batch.
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Common errors returned by watcher operations.
var (
	ErrWatcherClosed = errors.New("watcher is closed")
	ErrPathNotExist  = errors.New("path does not exist")
)

// Op represents the type of file system operation.
type Op uint32

const (
	// OpCreate indicates a file or directory was created.
	OpCreate Op = 1 << iota
	// OpWrite indicates a file was written to.
	OpWrite
	// OpRemove indicates a file or directory was removed.
	OpRemove
	// OpRename indicates a file or directory was renamed.
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	var parts []string
	for _, p := range []struct {
		op   Op
		name string
	}{{OpCreate, "CREATE"}, {OpWrite, "WRITE"}, {OpRemove, "REMOVE"}, {OpRename, "RENAME"}} {
		if op&p.op != 0 {
			parts = append(parts, p.name)
		}
	}
	if len(parts) == 0 {
		return "UNKNOWN"
	}
	return strings.Join(parts, "|")
}

// Change is one changed path with every operation seen on it during the
// debounce window.
type Change struct {
	Path string
	Op   Op
}

// Job is run for every batch of changes. A returned error is logged and
// does not stop the watcher.
type Job func(ctx context.Context, changes []Change) error

// Option configures a Watcher.
type Option func(*Watcher)

// WithDelay sets the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithExtensions restricts events to files with these extensions.
func WithExtensions(exts ...string) Option {
	return func(w *Watcher) { w.exts = exts }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// Watcher coalesces file system events into job runs.
type Watcher struct {
	fs     *fsnotify.Watcher
	delay  time.Duration
	exts   []string
	logger *zap.Logger

	mu     sync.Mutex
	dirs   map[string]bool
	closed bool
}

// New creates a watcher. Nothing is watched until Add.
func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fs:     fsw,
		delay:  200 * time.Millisecond,
		logger: zap.NewNop(),
		dirs:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Add watches each directory, or the directory holding each file.
func (w *Watcher) Add(paths ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		info, err := os.Stat(abs)
		if err != nil {
			if os.IsNotExist(err) {
				return ErrPathNotExist
			}
			return err
		}
		if !info.IsDir() {
			abs = filepath.Dir(abs)
		}
		if w.dirs[abs] {
			continue
		}
		if err := w.fs.Add(abs); err != nil {
			return err
		}
		w.dirs[abs] = true
	}
	return nil
}

// Dirs returns the watched directories, sorted.
func (w *Watcher) Dirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	dirs := make([]string, 0, len(w.dirs))
	for d := range w.dirs {
		dirs = append(dirs, d)
	}
	slices.Sort(dirs)
	return dirs
}

// Run calls job after each quiet period that follows a change, until ctx is
// done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context, job Job) error {
	pending := make(map[string]Op)
	var fire <-chan time.Time
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			op := convertOp(ev.Op)
			if op == 0 || !w.relevant(ev.Name) {
				continue
			}
			pending[ev.Name] |= op
			if timer == nil {
				timer = time.NewTimer(w.delay)
			} else {
				timer.Reset(w.delay)
			}
			fire = timer.C

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-fire:
			fire = nil
			changes := drain(pending)
			w.logger.Info("change detected", zap.Int("files", len(changes)))
			if err := job(ctx, changes); err != nil {
				w.logger.Error("run failed", zap.Error(err))
			}
		}
	}
}

// Close stops the watcher. Run returns once Close completes.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.fs.Close()
}

func (w *Watcher) relevant(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if len(w.exts) == 0 {
		return true
	}
	return slices.Contains(w.exts, filepath.Ext(path))
}

func drain(pending map[string]Op) []Change {
	changes := make([]Change, 0, len(pending))
	for path, op := range pending {
		changes = append(changes, Change{Path: path, Op: op})
		delete(pending, path)
	}
	slices.SortFunc(changes, func(a, b Change) int { return strings.Compare(a.Path, b.Path) })
	return changes
}

// convertOp converts fsnotify.Op to watch.Op. Chmod is dropped.
func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	return op
}
