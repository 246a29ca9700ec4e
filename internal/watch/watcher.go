// Package watch reduces C# files as they change on disk.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/lcr/internal/config"
	"github.com/standardbeagle/lcr/internal/debug"
	"github.com/standardbeagle/lcr/internal/pipeline"
)

// Reducer reduces one file, writing it back when it changed
type Reducer interface {
	ReduceFile(ctx context.Context, path string, sel pipeline.Selection, write bool) (*pipeline.Outcome, error)
}

// Watcher monitors the project tree and reduces files that match the
// configuration once their events settle.
type Watcher struct {
	watcher   *fsnotify.Watcher
	config    *config.Config
	reducer   Reducer
	debouncer *eventDebouncer
	write     bool

	// content hashes of the files this watcher wrote, so the events caused
	// by its own writes are ignored
	writtenMu sync.Mutex
	written   map[string]uint64

	wg sync.WaitGroup

	// OnOutcome is called after every reduction
	OnOutcome func(*pipeline.Outcome)
	// OnError is called when reducing a file fails
	OnError func(path string, err error)
}

// New creates a watcher over cfg.Project.Root. With write unset outcomes
// are reported but files are left alone.
func New(cfg *config.Config, reducer Reducer, write bool) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	debounce := time.Duration(cfg.Performance.DebounceMs) * time.Millisecond
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	return &Watcher{
		watcher:   w,
		config:    cfg,
		reducer:   reducer,
		debouncer: newEventDebouncer(debounce),
		write:     write,
		written:   make(map[string]uint64),
	}, nil
}

// Run watches until ctx is done, then waits for in-flight reductions
func (fw *Watcher) Run(ctx context.Context) error {
	root := fw.config.Project.Root
	debug.LogCLI("Starting file watcher for directory: %s\n", root)
	if err := fw.addWatches(root); err != nil {
		fw.watcher.Close()
		return fmt.Errorf("failed to add watches starting from %s: %w", root, err)
	}

	batches := make(chan []string)
	done := make(chan struct{})
	fw.wg.Add(1)
	go func() {
		defer fw.wg.Done()
		for {
			select {
			case paths := <-batches:
				fw.reduceBatch(ctx, paths)
			case <-done:
				return
			}
		}
	}()
	fw.debouncer.setOnFlush(func(paths []string) {
		select {
		case batches <- paths:
		case <-done:
		}
	})

	defer func() {
		fw.debouncer.stop()
		fw.watcher.Close()
		close(done)
		fw.wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return nil
			}
			fw.handleEvent(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return nil
			}
			debug.LogCLI("File watcher error: %v\n", err)
		}
	}
}

// addWatches adds a watch for every directory under root that is not
// excluded
func (fw *Watcher) addWatches(root string) error {
	visited := make(map[string]bool)
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() {
			return nil
		}
		resolved, err := filepath.EvalSymlinks(path)
		if err != nil || visited[resolved] {
			return filepath.SkipDir
		}
		visited[resolved] = true
		if path != root && fw.ignoredDir(path) {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			debug.LogCLI("Warning: failed to add watch for %s: %v\n", path, err)
		}
		return nil
	})
}

// ignoredDir reports a directory no included file can live under
func (fw *Watcher) ignoredDir(path string) bool {
	return !fw.config.Matches(filepath.Join(path, "x.cs")) && !fw.config.Matches(path)
}

func (fw *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Op&fsnotify.Create != 0 && !fw.ignoredDir(path) {
			if err := fw.addWatches(path); err != nil {
				debug.LogCLI("Warning: failed to watch new directory %s: %v\n", path, err)
			}
		}
		return
	}
	if !fw.config.Matches(path) {
		return
	}
	debug.LogCLI("FileWatcher: %v %s\n", event.Op, path)
	fw.debouncer.addEvent(path)
}

func (fw *Watcher) reduceBatch(ctx context.Context, paths []string) {
	for _, path := range paths {
		if ctx.Err() != nil {
			return
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		sum := xxhash.Sum64(data)
		fw.writtenMu.Lock()
		own := fw.written[path] == sum
		fw.writtenMu.Unlock()
		if own {
			continue
		}

		out, err := fw.reducer.ReduceFile(ctx, path, pipeline.Selection{All: true}, fw.write)
		if err != nil {
			if fw.OnError != nil {
				fw.OnError(path, err)
			}
			continue
		}
		if out.Written {
			fw.writtenMu.Lock()
			fw.written[path] = xxhash.Sum64String(out.Reduced)
			fw.writtenMu.Unlock()
		}
		if fw.OnOutcome != nil {
			fw.OnOutcome(out)
		}
	}
}

// eventDebouncer batches file events until they have been quiet for the
// debounce interval
type eventDebouncer struct {
	mu       sync.Mutex
	paths    map[string]struct{}
	debounce time.Duration
	timer    *time.Timer
	stopped  bool
	onFlush  func(paths []string)
}

func newEventDebouncer(debounce time.Duration) *eventDebouncer {
	return &eventDebouncer{
		paths:    make(map[string]struct{}),
		debounce: debounce,
	}
}

func (d *eventDebouncer) setOnFlush(fn func(paths []string)) {
	d.mu.Lock()
	d.onFlush = fn
	d.mu.Unlock()
}

func (d *eventDebouncer) addEvent(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.paths[path] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.debounce, d.flush)
}

func (d *eventDebouncer) flush() {
	d.mu.Lock()
	if d.stopped || len(d.paths) == 0 {
		d.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(d.paths))
	for p := range d.paths {
		paths = append(paths, p)
	}
	d.paths = make(map[string]struct{})
	onFlush := d.onFlush
	d.mu.Unlock()

	sort.Strings(paths)
	debug.LogCLI("Processing %d debounced file events\n", len(paths))
	if onFlush != nil {
		onFlush(paths)
	}
}

// stop drops pending events. Events pending at shutdown are lost.
func (d *eventDebouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
