//go:build !unix

package engine

// clampFilePermits is a no-op where RLIMIT_NOFILE is unavailable.
func clampFilePermits(requested int64) int64 {
	return requested
}
