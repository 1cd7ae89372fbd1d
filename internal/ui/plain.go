package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/mwhitmore/dupehound/internal/stats"
)

// plainPresenter writes per-file lines (verbose only) and periodic
// progress to its writer. Group output goes to stdout elsewhere; this
// presenter is stderr-only so results stay pipeable.
type plainPresenter struct {
	w        io.Writer
	stats    *stats.Collector
	root     string
	verbose  bool
	progress bool
}

func (p *plainPresenter) Run(events <-chan Event) error {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.handleEvent(ev)
		case <-ticker.C:
			p.stats.Tick()
			if p.progress {
				p.printProgress()
			}
		}
	}
}

func (p *plainPresenter) handleEvent(ev Event) {
	path := StripRoot(p.root, ev.Path)
	switch ev.Type {
	case FileHashed:
		if p.verbose {
			fmt.Fprintf(p.w, "%s  %s\n", path, FormatBytes(ev.Size))
		}
	case FileCached:
		if p.verbose {
			fmt.Fprintf(p.w, "%s  %s  cached\n", path, FormatBytes(ev.Size))
		}
	case FileFailed:
		errMsg := "error"
		if ev.Error != nil {
			errMsg = ev.Error.Error()
		}
		fmt.Fprintf(p.w, "%s  %s\n", path, errMsg)
	case DirFailed:
		errMsg := "error"
		if ev.Error != nil {
			errMsg = ev.Error.Error()
		}
		fmt.Fprintf(p.w, "%s/  %s\n", path, errMsg)
	case FileSkipped, EntrySkipped:
		if p.verbose {
			fmt.Fprintf(p.w, "%s  skipped\n", path)
		}
	case ScanStarted, ScanComplete, DirScanned:
		// counted by the collector, silent here
	}
}

func (p *plainPresenter) printProgress() {
	snap := p.stats.Snapshot()
	speed := p.stats.RollingSpeed(10)
	fmt.Fprintf(p.w, "progress: %s dirs %s files %s hashed %s\n",
		FormatCount(snap.DirsScanned),
		FormatCount(snap.FilesHashed+snap.FilesCached),
		FormatBytes(snap.BytesHashed),
		FormatRate(speed),
	)
}

func (p *plainPresenter) Summary() string {
	return completionSummary(p.stats.Snapshot())
}
