package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/mwhitmore/dupehound/internal/event"
	"github.com/mwhitmore/dupehound/internal/filter"
	"github.com/mwhitmore/dupehound/internal/platform"
	"github.com/mwhitmore/dupehound/internal/stats"
)

// DefaultMaxSymlinks is the symlink chain depth guard. It bounds link
// hops per entry; it is not full cycle detection. Aliased directories are
// caught separately by the visited set.
const DefaultMaxSymlinks = 128

// scanner lists one directory at a time and dispatches what it finds:
// subdirectories back into the frontier, regular files into hash tasks.
type scanner struct {
	root        string
	maxSymlinks int
	followLinks bool

	gov     *Governor
	state   *runState
	index   *Index
	cache   *HashCache  // may be nil
	filter  *filter.Set // may be nil
	stats   *stats.Collector
	events  chan<- event.Event
	limiter *rate.Limiter
	ring    *platform.Ring
	timeout time.Duration
}

// scanDir lists dir under a directory permit and processes every entry.
// A listing failure abandons this directory only; per-entry failures are
// warnings and never stop the listing.
func (s *scanner) scanDir(ctx context.Context, dir string) error {
	if err := s.gov.AcquireDir(ctx); err != nil {
		return fmt.Errorf("directory permit: %w", err)
	}
	defer s.gov.ReleaseDir()

	s.stats.ListingStarted()
	defer s.stats.ListingFinished()

	entries, err := os.ReadDir(dir)
	if err != nil {
		s.stats.AddDirsFailed(1)
		s.emit(event.Event{Type: event.DirFailed, Path: dir, Error: err})
		return fmt.Errorf("list %s: %w", dir, err)
	}

	for _, entry := range entries {
		s.processEntry(ctx, filepath.Join(dir, entry.Name()))
	}

	s.stats.AddDirsScanned(1)
	s.emit(event.Event{Type: event.DirScanned, Path: dir})
	return nil
}

// processEntry classifies one directory entry, following symlink chains
// up to the depth guard, and dispatches it. All failures here are
// per-entry: logged, counted, and skipped.
func (s *scanner) processEntry(ctx context.Context, path string) {
	info, err := os.Lstat(path)
	if err != nil {
		s.skipEntry(path, "stat failed", err)
		return
	}

	current := path
	links := 0
	for {
		mode := info.Mode()

		switch {
		case mode&os.ModeSymlink != 0:
			if !s.followLinks {
				slog.Debug("ignoring symlink", "path", path)
				s.stats.AddEntriesSkipped(1)
				s.emit(event.Event{Type: event.EntrySkipped, Path: path})
				return
			}
			if links >= s.maxSymlinks {
				s.skipEntry(path, "too many levels of symbolic links", nil)
				return
			}
			links++

			target, err := os.Readlink(current)
			if err != nil {
				s.skipEntry(path, "readlink failed", err)
				return
			}
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(current), target)
			}

			info, err = os.Lstat(target)
			if err != nil {
				s.skipEntry(path, fmt.Sprintf("broken symlink target %s", target), err)
				return
			}
			current = target
			// Still possibly a link; go around again.

		case mode.IsDir():
			s.dispatchDir(path, current)
			return

		case mode.IsRegular():
			s.dispatchFile(ctx, path, current, info)
			return

		default:
			slog.Debug("skipping non-regular file", "path", path, "mode", mode.String())
			s.stats.AddEntriesSkipped(1)
			s.emit(event.Event{Type: event.EntrySkipped, Path: path})
			return
		}
	}
}

// dispatchDir canonicalizes a resolved directory and feeds it into the
// frontier. The drive loop decides whether it was already visited.
func (s *scanner) dispatchDir(path, resolved string) {
	if s.filter != nil {
		if rel, err := filepath.Rel(s.root, path); err == nil {
			if !s.filter.Allows(rel, true, 0) {
				slog.Debug("filtered directory", "path", path)
				s.stats.AddEntriesSkipped(1)
				return
			}
		}
	}

	canon, err := canonicalize(resolved)
	if err != nil {
		s.skipEntry(path, "canonicalize failed", err)
		return
	}
	s.state.pushDir(canon)
}

// dispatchFile acquires a file permit and spawns an asynchronous hashing
// task for a resolved regular file. The permit travels with the task and
// is released on every exit path.
func (s *scanner) dispatchFile(ctx context.Context, path, resolved string, info os.FileInfo) {
	size := info.Size()

	// Zero-length files all share one digest; grouping them would emit a
	// meaningless universal group, so they are excluded up front.
	if size == 0 {
		slog.Debug("skipping empty file", "path", path)
		s.stats.AddFilesSkipped(1)
		s.emit(event.Event{Type: event.FileSkipped, Path: path})
		return
	}

	if s.filter != nil {
		if rel, err := filepath.Rel(s.root, path); err == nil {
			if !s.filter.Allows(rel, false, size) {
				slog.Debug("filtered file", "path", path)
				s.stats.AddFilesSkipped(1)
				s.emit(event.Event{Type: event.FileSkipped, Path: path})
				return
			}
		}
	}

	mtime := info.ModTime().UnixNano()
	if s.cache != nil {
		if d, ok := s.cache.Lookup(path, size, mtime); ok {
			s.index.Add(d, path, size)
			s.stats.AddFilesCached(1)
			s.emit(event.Event{Type: event.FileCached, Path: path, Size: size})
			return
		}
	}

	if err := s.gov.AcquireFile(ctx); err != nil {
		s.skipEntry(path, "file permit", err)
		return
	}

	src := resolved
	s.state.spawn("hash", path, func() error {
		defer s.gov.ReleaseFile()

		d, err := hashFile(ctx, src, hashOpts{
			timeout: s.timeout,
			limiter: s.limiter,
			ring:    s.ring,
		})
		if err != nil {
			s.stats.AddFilesFailed(1)
			s.emit(event.Event{Type: event.FileFailed, Path: path, Error: err})
			return fmt.Errorf("hash %s: %w", path, err)
		}

		s.index.Add(d, path, size)
		s.stats.AddFilesHashed(1)
		s.stats.AddBytesHashed(size)
		s.emit(event.Event{Type: event.FileHashed, Path: path, Size: size})

		if s.cache != nil {
			if err := s.cache.Put(path, size, mtime, d); err != nil {
				slog.Warn("cache write failed", "path", path, "error", err)
			}
		}
		return nil
	})
}

func (s *scanner) skipEntry(path, reason string, err error) {
	if err != nil {
		slog.Warn("skipping entry", "path", path, "reason", reason, "error", err)
	} else {
		slog.Warn("skipping entry", "path", path, "reason", reason)
	}
	s.stats.AddEntriesSkipped(1)
	s.emit(event.Event{Type: event.EntrySkipped, Path: path, Error: err})
}

func (s *scanner) emit(e event.Event) {
	if s.events == nil {
		return
	}
	e.Timestamp = time.Now()
	select {
	case s.events <- e:
	default:
	}
}

// canonicalize resolves a directory to its unique absolute path so the
// visited set catches the same directory reached through different names.
func canonicalize(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
