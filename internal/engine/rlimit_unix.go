//go:build unix

package engine

import "golang.org/x/sys/unix"

// fdHeadroom is the number of descriptors reserved for everything that is
// not file hashing: listings, the cache DB, logging, stdio.
const fdHeadroom = 64

// clampFilePermits lowers requested so that hashing can never exhaust the
// process descriptor limit. It never raises requested.
func clampFilePermits(requested int64) int64 {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return requested
	}

	ceiling := int64(lim.Cur) - fdHeadroom
	if ceiling < 1 {
		ceiling = 1
	}
	if requested > ceiling {
		return ceiling
	}
	return requested
}
