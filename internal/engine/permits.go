package engine

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Default admission limits. Directory listings and file hashes are bounded
// independently so tree shape cannot drive descriptor or memory use.
const (
	DefaultDirPermits  = 256
	DefaultFilePermits = 512
)

// Governor bounds concurrent directory listings and file hashes with two
// independent weighted semaphores. A permit is owned by exactly one
// operation and must be released on every exit path.
type Governor struct {
	dirs  *semaphore.Weighted
	files *semaphore.Weighted
}

// NewGovernor creates a governor with the given limits. Non-positive
// limits fall back to the defaults.
func NewGovernor(dirPermits, filePermits int64) *Governor {
	if dirPermits <= 0 {
		dirPermits = DefaultDirPermits
	}
	if filePermits <= 0 {
		filePermits = DefaultFilePermits
	}
	return &Governor{
		dirs:  semaphore.NewWeighted(dirPermits),
		files: semaphore.NewWeighted(filePermits),
	}
}

// AcquireDir blocks until a directory-listing permit is available.
func (g *Governor) AcquireDir(ctx context.Context) error {
	return g.dirs.Acquire(ctx, 1)
}

// ReleaseDir returns a directory-listing permit.
func (g *Governor) ReleaseDir() {
	g.dirs.Release(1)
}

// AcquireFile blocks until a file-hashing permit is available.
func (g *Governor) AcquireFile(ctx context.Context) error {
	return g.files.Acquire(ctx, 1)
}

// ReleaseFile returns a file-hashing permit.
func (g *Governor) ReleaseFile() {
	g.files.Release(1)
}
