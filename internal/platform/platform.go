// Package platform provides the optional io_uring read backend used for
// file hashing on Linux. Callers fall back to plain reads when the ring
// is unavailable.
package platform
