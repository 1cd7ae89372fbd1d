package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeebo/blake3"
	"golang.org/x/time/rate"

	"github.com/mwhitmore/dupehound/internal/platform"
)

// hashChunkSize is the read granularity for hashing. The watchdog fires
// only if a single chunk makes no progress for the full timeout.
const hashChunkSize = 32 * 1024

// DefaultHashTimeout is the per-step no-progress limit for open and read.
const DefaultHashTimeout = 120 * time.Second

var hashBufPool = sync.Pool{
	New: func() any {
		b := make([]byte, hashChunkSize)
		return &b
	},
}

// errHashTimeout marks a file abandoned because an open or read step made
// no progress within the configured window.
var errHashTimeout = errors.New("no progress before timeout")

// hashOpts carries the optional knobs for one hashing task.
type hashOpts struct {
	timeout time.Duration  // no-progress watchdog, 0 = DefaultHashTimeout
	limiter *rate.Limiter  // aggregate read throttle, may be nil
	ring    *platform.Ring // io_uring read backend, may be nil
}

// watchdog aborts a stalled file operation by closing its descriptor.
// Kick must be called after every unit of progress.
type watchdog struct {
	timer   *time.Timer
	d       time.Duration
	fired   atomic.Bool
	stopped atomic.Bool
}

func newWatchdog(d time.Duration, abort func()) *watchdog {
	w := &watchdog{d: d}
	w.timer = time.AfterFunc(d, func() {
		if w.stopped.Load() {
			return
		}
		w.fired.Store(true)
		abort()
	})
	return w
}

func (w *watchdog) Kick() {
	if !w.fired.Load() {
		w.timer.Reset(w.d)
	}
}

func (w *watchdog) Stop() {
	w.stopped.Store(true)
	w.timer.Stop()
}

func (w *watchdog) Fired() bool {
	return w.fired.Load()
}

// hashFile streams the file at path through BLAKE3 and returns its
// 16-byte digest. Reads happen in hashChunkSize steps; each step must
// progress within opts.timeout or the file is abandoned. The digest
// depends only on file content, never on chunking or backend.
func hashFile(ctx context.Context, path string, opts hashOpts) (Digest, error) {
	var d Digest

	timeout := opts.timeout
	if timeout <= 0 {
		timeout = DefaultHashTimeout
	}

	f, err := openTimeout(path, timeout)
	if err != nil {
		return d, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	// The watchdog closes the descriptor to break a stalled read; the
	// read then fails and Fired() distinguishes timeout from plain I/O
	// error.
	w := newWatchdog(timeout, func() { _ = f.Close() })
	defer w.Stop()

	read := readerFor(f, opts.ring)

	h := blake3.New()
	bufp := hashBufPool.Get().(*[]byte)
	defer hashBufPool.Put(bufp)
	buf := *bufp

	for {
		if err := ctx.Err(); err != nil {
			return d, err
		}

		n, err := read(buf)
		if n > 0 {
			if opts.limiter != nil {
				if werr := opts.limiter.WaitN(ctx, n); werr != nil {
					return d, werr
				}
			}
			_, _ = h.Write(buf[:n])
			w.Kick()
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			if w.Fired() {
				return d, fmt.Errorf("read %s: %w", path, errHashTimeout)
			}
			return d, fmt.Errorf("read %s: %w", path, err)
		}
	}

	_, _ = io.ReadFull(h.Digest(), d[:])
	return d, nil
}

// openTimeout opens path with the same no-progress bound the read loop
// gets. An open on a hung mount or a writer-less FIFO can block
// indefinitely and there is no descriptor to close yet, so the open runs
// in its own goroutine and expiry abandons it for this file only.
func openTimeout(path string, d time.Duration) (*os.File, error) {
	type result struct {
		f   *os.File
		err error
	}
	ch := make(chan result, 1)
	go func() {
		f, err := os.Open(path)
		ch <- result{f: f, err: err}
	}()

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case r := <-ch:
		return r.f, r.err
	case <-t.C:
		// The open may still complete later; reap the descriptor so it
		// does not leak.
		go func() {
			if r := <-ch; r.f != nil {
				_ = r.f.Close()
			}
		}()
		return nil, errHashTimeout
	}
}

// readerFor returns a chunk-read function over either plain file reads or
// the io_uring backend. Both report io.EOF at end of stream.
func readerFor(f *os.File, ring *platform.Ring) func([]byte) (int, error) {
	if ring == nil {
		return f.Read
	}

	fd := int32(f.Fd())
	var offset uint64
	return func(p []byte) (int, error) {
		n, err := ring.Pread(fd, p, offset)
		offset += uint64(n)
		if err == nil && n == 0 {
			err = io.EOF
		}
		return n, err
	}
}
