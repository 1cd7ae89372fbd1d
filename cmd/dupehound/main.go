package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mwhitmore/dupehound/internal/config"
	"github.com/mwhitmore/dupehound/internal/engine"
	"github.com/mwhitmore/dupehound/internal/event"
	"github.com/mwhitmore/dupehound/internal/filter"
	"github.com/mwhitmore/dupehound/internal/report"
	"github.com/mwhitmore/dupehound/internal/stats"
	"github.com/mwhitmore/dupehound/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run())
}

// filterFlag is a custom pflag.Value that preserves CLI ordering of
// --exclude and --include rules by appending to a shared filter.Set.
type filterFlag struct {
	set     *filter.Set
	include bool
}

func (*filterFlag) String() string { return "" }
func (*filterFlag) Type() string   { return "string" }

func (f *filterFlag) Set(val string) error {
	if f.include {
		return f.set.Include(val)
	}
	return f.set.Exclude(val)
}

//nolint:gocyclo,revive // cyclomatic,cognitive-complexity: main CLI entry point orchestrates all flag parsing and mode selection
func run() int {
	var (
		ignoreSymlinks bool
		maxSymlinks    int
		keepShortest   bool
		pretend        bool
		execProg       string
		dirPermits     int
		filePermits    int
		hashTimeout    time.Duration
		useCache       bool
		minSizeStr     string
		maxSizeStr     string
		bwLimitStr     string
		useIOURing     bool
		logFile        string
		noProgress     bool
		quiet          bool
		verbose        bool
		showVersion    bool
	)

	fset := filter.New()

	rootCmd := &cobra.Command{
		Use:   "dupehound [flags] [root]",
		Short: "Find duplicate files by content, fast",
		Args: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				return nil
			}
			return cobra.MaximumNArgs(1)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintf(os.Stdout, "dupehound %s\n", version)
				return nil
			}

			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			// Reject incoherent action combinations before any scanning.
			reportOpts := report.Options{
				KeepShortest: keepShortest,
				Exec:         execProg,
				Pretend:      pretend,
			}
			if err := reportOpts.Validate(); err != nil {
				return err
			}

			// Load optional config file.
			cfg, err := config.Load()
			if err != nil {
				slog.Warn("failed to load config", "error", err)
			}
			if err := applyConfigDefaults(cmd, cfg.Defaults,
				&dirPermits, &filePermits, &maxSymlinks, &useCache); err != nil {
				return err
			}
			if !cmd.Flags().Changed("hash-timeout") && cfg.Defaults.HashTimeout != nil {
				d, derr := time.ParseDuration(*cfg.Defaults.HashTimeout)
				if derr != nil {
					return fmt.Errorf("config hash_timeout: %w", derr)
				}
				hashTimeout = d
			}
			if !cmd.Flags().Changed("bwlimit") && cfg.Defaults.BWLimit != nil {
				bwLimitStr = *cfg.Defaults.BWLimit
			}

			var bwLimit int64
			if bwLimitStr != "" {
				bwLimit, err = filter.ParseSize(bwLimitStr)
				if err != nil {
					return fmt.Errorf("invalid --bwlimit: %w", err)
				}
			}

			if minSizeStr != "" {
				n, err := filter.ParseSize(minSizeStr)
				if err != nil {
					return fmt.Errorf("invalid --min-size: %w", err)
				}
				fset.SetMinSize(n)
			}
			if maxSizeStr != "" {
				n, err := filter.ParseSize(maxSizeStr)
				if err != nil {
					return fmt.Errorf("invalid --max-size: %w", err)
				}
				fset.SetMaxSize(n)
			}

			// Configure logging.
			logLevel := slog.LevelWarn
			if verbose {
				logLevel = slog.LevelDebug
			} else if !quiet {
				logLevel = slog.LevelInfo
			}
			textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: logLevel,
			})
			var logHandler slog.Handler = textHandler
			if logFile != "" {
				lf, lfErr := os.Create(logFile)
				if lfErr != nil {
					return fmt.Errorf("open log file: %w", lfErr)
				}
				defer lf.Close()
				jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})
				logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
			}
			logger := slog.New(logHandler).With("run", uuid.NewString())
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			collector := stats.NewCollector()
			events := make(chan event.Event, 256)

			// When --log is set, tee events through a logging goroutine
			// that writes structured records before forwarding to the presenter.
			presenterEvents := (<-chan event.Event)(events)
			if logFile != "" {
				teed := make(chan event.Event, 256)
				go func() {
					for ev := range events {
						attrs := []slog.Attr{
							slog.String("type", ev.Type.String()),
							slog.String("path", ev.Path),
							slog.Int64("size", ev.Size),
						}
						if ev.Error != nil {
							attrs = append(attrs, slog.String("error", ev.Error.Error()))
						}
						slog.LogAttrs(context.Background(), slog.LevelInfo, "dupehound.event", attrs...)
						teed <- ev
					}
					close(teed)
				}()
				presenterEvents = teed
			}

			presenter := ui.NewPresenter(ui.Config{
				Writer:     os.Stderr,
				Stats:      collector,
				Root:       root,
				IsTTY:      ui.IsTTY(os.Stderr.Fd()),
				Quiet:      quiet,
				Verbose:    verbose,
				NoProgress: noProgress,
			})

			engineCfg := engine.Config{
				Root:           root,
				IgnoreSymlinks: ignoreSymlinks,
				MaxSymlinks:    maxSymlinks,
				DirPermits:     int64(dirPermits),
				FilePermits:    int64(filePermits),
				HashTimeout:    hashTimeout,
				UseIOURing:     useIOURing,
				BWLimit:        bwLimit,
				UseCache:       useCache,
				Events:         events,
				Stats:          collector,
			}
			if !fset.Empty() {
				engineCfg.Filter = fset
			}

			slog.Debug("starting scan",
				"root", root,
				"dir_permits", dirPermits,
				"file_permits", filePermits,
				"ignore_symlinks", ignoreSymlinks,
				"cache", useCache,
				"iouring", useIOURing,
			)

			var presenterErr error
			var presenterWg sync.WaitGroup
			presenterWg.Add(1)
			go func() {
				defer presenterWg.Done()
				presenterErr = presenter.Run(presenterEvents)
			}()

			result := engine.Run(ctx, engineCfg)
			stop()
			close(events)
			presenterWg.Wait()
			if presenterErr != nil {
				fmt.Fprintf(os.Stderr, "presenter: %v\n", presenterErr)
			}

			if result.Err != nil {
				slog.Error("scan failed", "error", result.Err)
				return &exitError{code: 2}
			}

			groups := make([]report.Group, len(result.Groups))
			for i, g := range result.Groups {
				groups[i] = report.Group{Digest: g.Digest.String(), Paths: g.Paths}
			}
			actionErr := report.Emit(os.Stdout, groups, reportOpts)

			if !quiet {
				if summary := presenter.Summary(); summary != "" {
					var reclaimable int64
					for _, g := range result.Groups {
						reclaimable += g.Reclaimable()
					}
					fmt.Fprintf(os.Stderr, "%s  groups %s  reclaimable %s\n",
						summary,
						ui.FormatCount(int64(len(result.Groups))),
						ui.FormatBytes(reclaimable))
				}
			}

			if actionErr != nil {
				slog.Error("actions failed", "error", actionErr)
				return &exitError{code: 1}
			}
			return nil
		},
	}

	// Version flag handled in RunE, but also register the flag.
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version and exit")

	rootCmd.Flags().
		BoolVarP(&ignoreSymlinks, "ignore-symlinks", "l", false, "do not follow symbolic links")
	rootCmd.Flags().
		IntVar(&maxSymlinks, "max-symlinks", engine.DefaultMaxSymlinks, "symlink chain depth limit per entry")
	rootCmd.Flags().
		BoolVar(&keepShortest, "keep-shortest", false, "keep the shortest path in each group, delete the rest")
	rootCmd.Flags().
		BoolVarP(&pretend, "pretend", "p", false, "show what --keep-shortest or --exec would do without doing it")
	rootCmd.Flags().
		StringVar(&execProg, "exec", "", "run PROGRAM once per group with the group's paths as arguments")
	rootCmd.Flags().
		IntVar(&dirPermits, "dir-permits", engine.DefaultDirPermits, "maximum concurrent directory listings")
	rootCmd.Flags().
		IntVar(&filePermits, "file-permits", engine.DefaultFilePermits, "maximum concurrent file hashes (capped by RLIMIT_NOFILE)")
	rootCmd.Flags().
		DurationVar(&hashTimeout, "hash-timeout", engine.DefaultHashTimeout, "per-step no-progress limit while hashing a file")
	rootCmd.Flags().
		BoolVar(&useCache, "cache", false, "reuse digests from previous runs (SQLite, keyed by size+mtime)")
	rootCmd.Flags().
		Var(&filterFlag{set: fset, include: false}, "exclude", "exclude entries matching PATTERN (repeatable)")
	rootCmd.Flags().
		Var(&filterFlag{set: fset, include: true}, "include", "include entries matching PATTERN (repeatable)")
	rootCmd.Flags().
		StringVar(&minSizeStr, "min-size", "", "skip files smaller than SIZE (e.g. 1M, 100K)")
	rootCmd.Flags().
		StringVar(&maxSizeStr, "max-size", "", "skip files larger than SIZE (e.g. 1G, 500M)")
	rootCmd.Flags().
		StringVar(&bwLimitStr, "bwlimit", "", "hash read throughput limit (e.g. 100M, 1G)")
	rootCmd.Flags().
		BoolVar(&useIOURing, "iouring", false, "use io_uring for file reads (Linux only)")
	rootCmd.Flags().
		StringVar(&logFile, "log", "", "write structured JSON log to FILE")
	rootCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable periodic progress output")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except group results")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(docsCmd)

	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(*exitError); ok {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	return 0
}

// applyConfigDefaults applies config file defaults for flags not explicitly set on the CLI.
func applyConfigDefaults(
	cmd *cobra.Command,
	defaults config.DefaultsConfig,
	dirPermits *int,
	filePermits *int,
	maxSymlinks *int,
	useCache *bool,
) error {
	if !cmd.Flags().Changed("dir-permits") && defaults.DirPermits != nil {
		*dirPermits = *defaults.DirPermits
	}
	if !cmd.Flags().Changed("file-permits") && defaults.FilePermits != nil {
		*filePermits = *defaults.FilePermits
	}
	if !cmd.Flags().Changed("max-symlinks") && defaults.MaxSymlinks != nil {
		*maxSymlinks = *defaults.MaxSymlinks
	}
	if !cmd.Flags().Changed("cache") && defaults.Cache != nil {
		*useCache = *defaults.Cache
	}
	return nil
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
