package engine

import "sync"

// op is the join handle for one spawned scan or hash task. done carries
// the task's terminal error (nil on success) and is buffered so the task
// never blocks on a slow drive loop.
type op struct {
	kind string // "scan" or "hash"
	path string
	done chan error
}

// runState is the shared mutable scan state: the directory frontier and
// the outstanding operations not yet awaited. Spawned work only appends;
// the drive loop swaps both out wholesale at each wave boundary. Critical
// sections are pure append/swap and never span I/O.
type runState struct {
	mu       sync.Mutex
	frontier []string
	ops      []op
}

// pushDir enqueues a canonical directory path for a later wave.
func (st *runState) pushDir(dir string) {
	st.mu.Lock()
	st.frontier = append(st.frontier, dir)
	st.mu.Unlock()
}

// spawn launches fn in its own goroutine and registers its join handle.
func (st *runState) spawn(kind, path string, fn func() error) {
	o := op{kind: kind, path: path, done: make(chan error, 1)}
	st.mu.Lock()
	st.ops = append(st.ops, o)
	st.mu.Unlock()

	go func() {
		o.done <- fn()
	}()
}

// take atomically swaps out the current frontier and outstanding
// operations, leaving both empty. Work discovered after the swap lands in
// the next wave.
func (st *runState) take() ([]string, []op) {
	st.mu.Lock()
	defer st.mu.Unlock()
	dirs, ops := st.frontier, st.ops
	st.frontier, st.ops = nil, nil
	return dirs, ops
}
