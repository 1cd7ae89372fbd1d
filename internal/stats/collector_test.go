package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollectorCounters(t *testing.T) {
	c := NewCollector()

	c.AddDirsScanned(3)
	c.AddFilesHashed(5)
	c.AddFilesCached(1)
	c.AddFilesFailed(2)
	c.AddFilesSkipped(4)
	c.AddEntriesSkipped(1)
	c.AddBytesHashed(1024)
	c.AddTaskErrors(1)
	c.AddDirsFailed(1)

	snap := c.Snapshot()
	assert.Equal(t, int64(3), snap.DirsScanned)
	assert.Equal(t, int64(5), snap.FilesHashed)
	assert.Equal(t, int64(1), snap.FilesCached)
	assert.Equal(t, int64(2), snap.FilesFailed)
	assert.Equal(t, int64(4), snap.FilesSkipped)
	assert.Equal(t, int64(1), snap.EntriesSkipped)
	assert.Equal(t, int64(1024), snap.BytesHashed)
	assert.Equal(t, int64(1), snap.TaskErrors)
	assert.Equal(t, int64(1), snap.DirsFailed)
	assert.Greater(t, snap.Elapsed.Nanoseconds(), int64(0))
}

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				c.AddFilesHashed(1)
				c.AddBytesHashed(10)
			}
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	assert.Equal(t, int64(1000), snap.FilesHashed)
	assert.Equal(t, int64(10000), snap.BytesHashed)
}

func TestListingGauge(t *testing.T) {
	c := NewCollector()

	c.ListingStarted()
	c.ListingStarted()
	c.ListingStarted()
	c.ListingFinished()
	c.ListingStarted()
	c.ListingFinished()
	c.ListingFinished()
	c.ListingFinished()

	assert.Equal(t, int64(3), c.PeakListings())
	assert.Equal(t, int64(3), c.Snapshot().PeakListings)
}

func TestRollingSpeed(t *testing.T) {
	c := NewCollector()

	assert.Zero(t, c.RollingSpeed(10))

	c.AddBytesHashed(100)
	c.Tick()
	c.AddBytesHashed(300)
	c.Tick()

	// Two samples: 100 then 300.
	assert.InDelta(t, 200.0, c.RollingSpeed(10), 0.001)
	assert.InDelta(t, 300.0, c.RollingSpeed(1), 0.001)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.0 KiB", FormatBytes(1024))
	assert.Equal(t, "1.5 MiB", FormatBytes(3*512*1024))
	assert.Equal(t, "2.0 GiB", FormatBytes(2*1024*1024*1024))
}
