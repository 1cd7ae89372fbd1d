package ui

import "github.com/mwhitmore/dupehound/internal/event"

// Event is re-exported so presenters and their callers share one type.
type Event = event.Event

// Re-export event types for convenience.
const (
	ScanStarted  = event.ScanStarted
	ScanComplete = event.ScanComplete
	DirScanned   = event.DirScanned
	DirFailed    = event.DirFailed
	EntrySkipped = event.EntrySkipped
	FileHashed   = event.FileHashed
	FileCached   = event.FileCached
	FileFailed   = event.FileFailed
	FileSkipped  = event.FileSkipped
)
