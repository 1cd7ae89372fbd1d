package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mwhitmore/dupehound/internal/event"
	"github.com/mwhitmore/dupehound/internal/stats"
)

func TestPlainPresenterVerboseFileLines(t *testing.T) {
	var out bytes.Buffer
	collector := stats.NewCollector()

	p := &plainPresenter{w: &out, stats: collector, root: "/scan", verbose: true}

	events := make(chan Event, 10)
	events <- Event{Type: event.FileHashed, Path: "/scan/dir/file.txt", Size: 1024}
	events <- Event{Type: event.FileCached, Path: "/scan/dir/other.bin", Size: 2048}
	close(events)

	assert.NoError(t, p.Run(events))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "dir/file.txt")
	assert.Contains(t, lines[1], "dir/other.bin")
	assert.Contains(t, lines[1], "cached")
}

func TestPlainPresenterQuietOnSuccessByDefault(t *testing.T) {
	var out bytes.Buffer
	collector := stats.NewCollector()

	p := &plainPresenter{w: &out, stats: collector}

	events := make(chan Event, 10)
	events <- Event{Type: event.FileHashed, Path: "ok.txt", Size: 10}
	events <- Event{Type: event.DirScanned, Path: "dir"}
	close(events)

	assert.NoError(t, p.Run(events))
	assert.Empty(t, out.String())
}

func TestPlainPresenterReportsFailures(t *testing.T) {
	var out bytes.Buffer
	collector := stats.NewCollector()

	p := &plainPresenter{w: &out, stats: collector}

	events := make(chan Event, 10)
	events <- Event{Type: event.FileFailed, Path: "fail.txt", Error: assert.AnError}
	events <- Event{Type: event.DirFailed, Path: "baddir", Error: assert.AnError}
	close(events)

	assert.NoError(t, p.Run(events))
	assert.Contains(t, out.String(), "fail.txt")
	assert.Contains(t, out.String(), "baddir/")
	assert.Contains(t, out.String(), assert.AnError.Error())
}

func TestPlainPresenterSummary(t *testing.T) {
	collector := stats.NewCollector()
	collector.AddDirsScanned(3)
	collector.AddFilesHashed(10)
	collector.AddBytesHashed(1024)

	p := &plainPresenter{w: &bytes.Buffer{}, stats: collector}

	s := p.Summary()
	assert.Contains(t, s, "done")
	assert.Contains(t, s, "dirs 3")
	assert.Contains(t, s, "files 10")
	assert.Contains(t, s, "errors 0")
}

func TestQuietPresenterDrainsSilently(t *testing.T) {
	p := NewPresenter(Config{Quiet: true})

	events := make(chan Event, 3)
	events <- Event{Type: event.FileHashed, Path: "a"}
	events <- Event{Type: event.FileFailed, Path: "b", Error: assert.AnError}
	close(events)

	assert.NoError(t, p.Run(events))
	assert.Empty(t, p.Summary())
}
