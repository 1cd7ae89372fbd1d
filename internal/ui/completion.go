package ui

import (
	"fmt"

	"github.com/mwhitmore/dupehound/internal/stats"
)

// completionSummary builds a final summary line from a snapshot.
// Format: done ✓  dirs 1,204  files 48,917  hashed 2.1 GB  avg 641 MB/s  time 3m 17s  errors 0
func completionSummary(snap stats.Snapshot) string {
	avgSpeed := 0.0
	if snap.Elapsed.Seconds() > 0 {
		avgSpeed = float64(snap.BytesHashed) / snap.Elapsed.Seconds()
	}

	errs := snap.DirsFailed + snap.FilesFailed
	icon := "✓"
	if errs > 0 {
		icon = "✗"
	}

	return fmt.Sprintf("done %s  dirs %s  files %s  hashed %s  avg %s  time %s  errors %d",
		icon,
		FormatCount(snap.DirsScanned),
		FormatCount(snap.FilesHashed+snap.FilesCached),
		FormatBytes(snap.BytesHashed),
		FormatRate(avgSpeed),
		FormatDuration(snap.Elapsed),
		errs,
	)
}
