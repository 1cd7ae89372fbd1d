package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const ringSize = 60

// Collector tracks scan statistics using lock-free atomic counters.
type Collector struct {
	dirsScanned    atomic.Int64
	dirsFailed     atomic.Int64
	filesHashed    atomic.Int64
	filesCached    atomic.Int64
	filesFailed    atomic.Int64
	filesSkipped   atomic.Int64
	entriesSkipped atomic.Int64
	bytesHashed    atomic.Int64
	taskErrors     atomic.Int64

	// Concurrent-listing gauge. activeListings reflects directories whose
	// listing is in flight right now; peakListings is the high-water mark.
	activeListings atomic.Int64
	peakListings   atomic.Int64

	startTime time.Time

	// Ring buffer — written only by the presenter's Tick(), not workers.
	mu         sync.Mutex
	throughput [ringSize]int64 // hashed-bytes delta per second
	ringIdx    int
	ringCount  int
	lastBytes  int64
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	DirsScanned    int64
	DirsFailed     int64
	FilesHashed    int64
	FilesCached    int64
	FilesFailed    int64
	FilesSkipped   int64
	EntriesSkipped int64
	BytesHashed    int64
	TaskErrors     int64
	PeakListings   int64
	Elapsed        time.Duration
}

func (c *Collector) AddDirsScanned(n int64)    { c.dirsScanned.Add(n) }
func (c *Collector) AddDirsFailed(n int64)     { c.dirsFailed.Add(n) }
func (c *Collector) AddFilesHashed(n int64)    { c.filesHashed.Add(n) }
func (c *Collector) AddFilesCached(n int64)    { c.filesCached.Add(n) }
func (c *Collector) AddFilesFailed(n int64)    { c.filesFailed.Add(n) }
func (c *Collector) AddFilesSkipped(n int64)   { c.filesSkipped.Add(n) }
func (c *Collector) AddEntriesSkipped(n int64) { c.entriesSkipped.Add(n) }
func (c *Collector) AddBytesHashed(n int64)    { c.bytesHashed.Add(n) }
func (c *Collector) AddTaskErrors(n int64)     { c.taskErrors.Add(n) }

// ListingStarted marks one directory listing as in flight and updates the
// high-water mark. Call only while the listing permit is held.
func (c *Collector) ListingStarted() {
	active := c.activeListings.Add(1)
	for {
		peak := c.peakListings.Load()
		if active <= peak || c.peakListings.CompareAndSwap(peak, active) {
			return
		}
	}
}

// ListingFinished marks one directory listing as complete.
func (c *Collector) ListingFinished() {
	c.activeListings.Add(-1)
}

// PeakListings returns the maximum number of listings that were ever in
// flight at the same time.
func (c *Collector) PeakListings() int64 {
	return c.peakListings.Load()
}

// Snapshot returns a consistent point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		DirsScanned:    c.dirsScanned.Load(),
		DirsFailed:     c.dirsFailed.Load(),
		FilesHashed:    c.filesHashed.Load(),
		FilesCached:    c.filesCached.Load(),
		FilesFailed:    c.filesFailed.Load(),
		FilesSkipped:   c.filesSkipped.Load(),
		EntriesSkipped: c.entriesSkipped.Load(),
		BytesHashed:    c.bytesHashed.Load(),
		TaskErrors:     c.taskErrors.Load(),
		PeakListings:   c.peakListings.Load(),
		Elapsed:        c.Elapsed(),
	}
}

// Tick snapshots the hashed-bytes delta into the ring buffer. Called 1/sec
// by the presenter.
func (c *Collector) Tick() {
	currentBytes := c.bytesHashed.Load()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.throughput[c.ringIdx] = currentBytes - c.lastBytes
	c.lastBytes = currentBytes
	c.ringIdx = (c.ringIdx + 1) % ringSize
	if c.ringCount < ringSize {
		c.ringCount++
	}
}

// RollingSpeed returns average hashed bytes/sec over the last n seconds of
// samples.
func (c *Collector) RollingSpeed(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := seconds
	if count > c.ringCount {
		count = c.ringCount
	}
	if count == 0 {
		return 0
	}
	var sum int64
	for i := range count {
		idx := (c.ringIdx - 1 - i + ringSize) % ringSize
		sum += c.throughput[idx]
	}
	return float64(sum) / float64(count)
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"dirs=%d hashed=%d cached=%d failed=%d skipped=%d bytes=%d",
		s.DirsScanned, s.FilesHashed, s.FilesCached, s.FilesFailed,
		s.FilesSkipped, s.BytesHashed,
	)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
