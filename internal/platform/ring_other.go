//go:build !linux

package platform

import "errors"

// Ring is unavailable off Linux; NewRing always reports no support.
type Ring struct{}

// NewRing returns (nil, nil); io_uring is Linux-only.
func NewRing(uint) (*Ring, error) {
	return nil, nil
}

// Close is a no-op.
func (rg *Ring) Close() error { return nil }

// Pread always fails; callers must not reach this on a nil ring.
func (rg *Ring) Pread(int32, []byte, uint64) (int, error) {
	return 0, errors.New("io_uring not supported on this platform")
}

// KernelSupportsIOURing reports false off Linux.
func KernelSupportsIOURing() bool { return false }
