package engine

import "golang.org/x/time/rate"

// NewBWLimiter creates a rate.Limiter that caps aggregate hash-read
// throughput to bytesPerSec. The burst is set to 1 MB so natural
// chunk-size reads pass without unnecessary blocking.
func NewBWLimiter(bytesPerSec int64) *rate.Limiter {
	burst := 1 << 20 // 1 MB
	if bytesPerSec < int64(burst) {
		burst = int(bytesPerSec)
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}
