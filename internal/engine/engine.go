// Package engine implements the concurrent scan-hash-group core: it walks
// a directory tree in waves, digests every regular file under bounded
// concurrency, and groups paths by content digest.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/mwhitmore/dupehound/internal/event"
	"github.com/mwhitmore/dupehound/internal/filter"
	"github.com/mwhitmore/dupehound/internal/platform"
	"github.com/mwhitmore/dupehound/internal/stats"
)

// Config describes one duplicate scan.
type Config struct {
	Root           string
	IgnoreSymlinks bool
	MaxSymlinks    int
	DirPermits     int64
	FilePermits    int64
	HashTimeout    time.Duration
	UseIOURing     bool
	BWLimit        int64 // bytes/sec, 0 = unlimited
	UseCache       bool
	Filter         *filter.Set
	Events         chan<- event.Event
	Stats          *stats.Collector
}

// Result is the outcome of a scan. Groups holds every digest shared by at
// least two distinct paths; partial failures reduce coverage but never
// empty the result.
type Result struct {
	Groups []Group
	Stats  stats.Snapshot
	Err    error
}

// Run executes a scan, blocking until the tree converges: no queued
// directories and no outstanding scan or hash operations. Per-directory
// and per-file failures are reported and absorbed; only an unusable root
// or a cancelled context surfaces in Result.Err.
func Run(ctx context.Context, cfg Config) Result {
	collector := cfg.Stats
	if collector == nil {
		collector = stats.NewCollector()
	}

	root, err := canonicalize(cfg.Root)
	if err != nil {
		return Result{Err: fmt.Errorf("root %s: %w", cfg.Root, err)}
	}
	info, err := os.Stat(root)
	if err != nil {
		return Result{Err: fmt.Errorf("root %s: %w", cfg.Root, err)}
	}
	if !info.IsDir() {
		return Result{Err: fmt.Errorf("root %s is not a directory", cfg.Root)}
	}

	maxSymlinks := cfg.MaxSymlinks
	if maxSymlinks <= 0 {
		maxSymlinks = DefaultMaxSymlinks
	}

	filePermits := cfg.FilePermits
	if filePermits <= 0 {
		filePermits = DefaultFilePermits
	}
	filePermits = clampFilePermits(filePermits)

	var limiter *rate.Limiter
	if cfg.BWLimit > 0 {
		limiter = NewBWLimiter(cfg.BWLimit)
	}

	var ring *platform.Ring
	if cfg.UseIOURing {
		ring, err = platform.NewRing(64)
		if err != nil {
			slog.Warn("io_uring unavailable, using plain reads", "error", err)
		} else if ring == nil {
			slog.Debug("kernel too old for io_uring, using plain reads")
		}
	}
	defer func() {
		if ring != nil {
			_ = ring.Close()
		}
	}()

	var cache *HashCache
	if cfg.UseCache {
		cache, err = OpenCache(root)
		if err != nil {
			slog.Warn("digest cache unavailable", "error", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	index := NewIndex()
	state := &runState{}
	s := &scanner{
		root:        root,
		maxSymlinks: maxSymlinks,
		followLinks: !cfg.IgnoreSymlinks,
		gov:         NewGovernor(cfg.DirPermits, filePermits),
		state:       state,
		index:       index,
		cache:       cache,
		filter:      cfg.Filter,
		stats:       collector,
		events:      cfg.Events,
		limiter:     limiter,
		ring:        ring,
		timeout:     cfg.HashTimeout,
	}

	s.emit(event.Event{Type: event.ScanStarted, Path: root})

	// Wave-based convergence. visited is owned by this loop alone: a
	// directory is marked exactly once, before its scan is launched, so
	// symlink aliases and cycles cannot re-enter a subtree. Work spawned
	// during a wave lands in shared state and is taken by the next one.
	visited := make(map[string]struct{})
	state.pushDir(root)

	for {
		dirs, ops := state.take()
		if len(dirs) == 0 && len(ops) == 0 {
			break
		}

		for _, dir := range dirs {
			if _, seen := visited[dir]; seen {
				slog.Debug("skipping already visited directory", "path", dir)
				continue
			}
			visited[dir] = struct{}{}

			dir := dir
			state.spawn("scan", dir, func() error {
				return s.scanDir(ctx, dir)
			})
		}

		for _, o := range ops {
			if err := <-o.done; err != nil {
				collector.AddTaskErrors(1)
				slog.Warn("task failed", "kind", o.kind, "path", o.path, "error", err)
			}
		}
	}

	s.emit(event.Event{Type: event.ScanComplete, Path: root})

	if cache != nil {
		if err := cache.Flush(); err != nil {
			slog.Warn("cache flush failed", "error", err)
		}
	}

	return Result{
		Groups: index.Groups(2),
		Stats:  collector.Snapshot(),
		Err:    ctx.Err(),
	}
}
