// Package watch reports changes to localisation files under a directory
// tree. Bursts of filesystem events are collapsed into one Batch after a
// quiet period, so an editor that writes a file in several steps causes
// one refresh.
package watch

import (
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a batch is emitted.
const DefaultDebounce = 300 * time.Millisecond

// Batch is the set of paths that changed during one burst.
type Batch struct {
	// Paths are absolute and sorted.
	Paths []string
	At    time.Time
}

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	// Match selects the files worth reporting. Defaults to *.yml.
	Match  func(path string) bool
	Logger *slog.Logger
}

// Watcher monitors a directory tree.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	root      string
	debounce  time.Duration
	match     func(string) bool
	log       *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	dirs    int
	stopped bool

	events chan Batch
	errors chan error
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// IsLocalisation reports whether path names a .yml file.
func IsLocalisation(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".yml")
}

// New creates a watcher for root. Nothing is watched until Start.
func New(root string, opts Options) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsWatcher: fsWatcher,
		root:      abs,
		debounce:  opts.Debounce,
		match:     opts.Match,
		log:       opts.Logger,
		pending:   make(map[string]struct{}),
		events:    make(chan Batch, 16),
		errors:    make(chan error, 10),
		done:      make(chan struct{}),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.match == nil {
		w.match = IsLocalisation
	}
	if w.log == nil {
		w.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return w, nil
}

// Events returns the channel of change batches.
func (w *Watcher) Events() <-chan Batch {
	return w.events
}

// Errors returns the channel of watch errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Root returns the absolute watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// Dirs returns the number of directories being watched.
func (w *Watcher) Dirs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dirs
}

// Start adds root and every non-hidden directory below it, then begins
// delivering batches.
func (w *Watcher) Start() error {
	info, err := os.Stat(w.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &fs.PathError{Op: "watch", Path: w.root, Err: fs.ErrInvalid}
	}
	if err := w.addTree(w.root); err != nil {
		return err
	}

	w.wg.Add(1)
	go w.eventLoop()
	return nil
}

// Stop shuts the watcher down and closes the channels. Later calls do
// nothing.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() { err = w.stop() })
	return err
}

func (w *Watcher) stop() error {
	close(w.done)
	w.wg.Wait()

	w.mu.Lock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	close(w.events)
	close(w.errors)
	w.mu.Unlock()

	return w.fsWatcher.Close()
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsWatcher.Add(path); err != nil {
			return err
		}
		w.mu.Lock()
		w.dirs++
		w.mu.Unlock()
		w.log.Debug("watching directory", "path", path)
		return nil
	})
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.report(err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	// New directories are watched too. Files written into them before
	// the watch is added are not seen, so the directory itself is
	// reported.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if strings.HasPrefix(filepath.Base(event.Name), ".") {
				return
			}
			if err := w.addTree(event.Name); err != nil {
				w.report(err)
			}
			w.mark(event.Name)
			return
		}
	}

	if !w.match(event.Name) {
		return
	}
	w.mark(event.Name)
}

func (w *Watcher) mark(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped || len(w.pending) == 0 {
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	select {
	case w.events <- Batch{Paths: paths, At: time.Now()}:
		w.pending = make(map[string]struct{})
		w.log.Debug("change batch", "paths", len(paths))
	default:
		// consumer is behind; keep the paths and retry
		w.log.Debug("events full, deferring batch", "paths", len(paths))
		w.timer = time.AfterFunc(w.debounce, w.flush)
	}
}

func (w *Watcher) report(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	select {
	case w.errors <- err:
	default:
	}
}
