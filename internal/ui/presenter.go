package ui

import (
	"io"

	"github.com/mwhitmore/dupehound/internal/stats"
)

// Presenter consumes scan events and displays progress.
type Presenter interface {
	// Run consumes events until the channel closes. Blocks until done.
	Run(events <-chan Event) error
	// Summary returns the final summary line.
	Summary() string
}

// Config configures a Presenter.
type Config struct {
	Writer     io.Writer
	Stats      *stats.Collector
	Root       string
	IsTTY      bool
	Quiet      bool
	Verbose    bool
	NoProgress bool
}

// NewPresenter creates the appropriate presenter based on configuration.
//
//nolint:ireturn // factory function returns interface by design
func NewPresenter(cfg Config) Presenter {
	if cfg.Quiet {
		return &quietPresenter{}
	}
	return &plainPresenter{
		w:        cfg.Writer,
		stats:    cfg.Stats,
		root:     cfg.Root,
		verbose:  cfg.Verbose,
		progress: !cfg.NoProgress,
	}
}
