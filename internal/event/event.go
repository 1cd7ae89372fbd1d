package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	ScanStarted Type = iota + 1
	ScanComplete
	DirScanned
	DirFailed
	EntrySkipped
	FileHashed
	FileCached
	FileFailed
	FileSkipped
)

var typeNames = [...]string{
	ScanStarted:  "ScanStarted",
	ScanComplete: "ScanComplete",
	DirScanned:   "DirScanned",
	DirFailed:    "DirFailed",
	EntrySkipped: "EntrySkipped",
	FileHashed:   "FileHashed",
	FileCached:   "FileCached",
	FileFailed:   "FileFailed",
	FileSkipped:  "FileSkipped",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single progress event from the engine.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string
	Size      int64 // file size (FileHashed/FileCached/FileSkipped)
	Error     error
}
