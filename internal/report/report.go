// Package report turns duplicate groups into user-facing output and
// actions: JSON lines by default, optional shortest-path pruning, and an
// optional per-group command hook.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"
)

// Options selects the action applied to each duplicate group. Exactly one
// of the built-in print, KeepShortest, or Exec behaviors runs; Pretend
// substitutes intent messages for destructive effects.
type Options struct {
	KeepShortest bool
	Exec         string // program invoked once per group with the group's paths
	Pretend      bool
}

// record is one duplicate group on the wire. Digest is hex so the output
// stays line-oriented and grep-friendly.
type record struct {
	Digest string   `json:"digest"`
	Paths  []string `json:"paths"`
}

// Validate rejects option combinations with no coherent meaning.
func (o Options) Validate() error {
	if o.KeepShortest && o.Exec != "" {
		return errors.New("--keep-shortest and --exec are mutually exclusive")
	}
	if o.Pretend && !o.KeepShortest && o.Exec == "" {
		return errors.New("--pretend requires --keep-shortest or --exec")
	}
	return nil
}

// Group is the minimal shape report needs from the scan engine.
type Group struct {
	Digest string
	Paths  []string
}

// Emit applies the configured action to every group, writing output to w.
// Per-group failures are reported and do not stop later groups; a non-nil
// return means at least one action failed.
func Emit(w io.Writer, groups []Group, opts Options) error {
	failed := 0
	for _, g := range groups {
		var err error
		switch {
		case opts.KeepShortest:
			err = keepShortest(w, g, opts.Pretend)
		case opts.Exec != "":
			err = execGroup(w, g, opts.Exec, opts.Pretend)
		default:
			err = printGroup(w, g)
		}
		if err != nil {
			failed++
			slog.Warn("group action failed", "digest", g.Digest, "error", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d group actions failed", failed, len(groups))
	}
	return nil
}

func printGroup(w io.Writer, g Group) error {
	line, err := json.Marshal(record{Digest: g.Digest, Paths: g.Paths})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(line))
	return err
}

// KeepShortest partitions a group's paths into the single member to keep
// and the rest. The survivor is the shortest path, ties broken
// lexicographically, so the choice is stable across runs.
func KeepShortest(paths []string) (keep string, remove []string) {
	if len(paths) == 0 {
		return "", nil
	}

	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) < len(sorted[j])
		}
		return sorted[i] < sorted[j]
	})
	return sorted[0], sorted[1:]
}

func keepShortest(w io.Writer, g Group, pretend bool) error {
	keep, remove := KeepShortest(g.Paths)
	if keep == "" {
		return nil
	}

	fmt.Fprintf(w, "keep %s\n", keep)

	var firstErr error
	for _, path := range remove {
		if pretend {
			fmt.Fprintf(w, "would delete %s\n", path)
			continue
		}
		if err := os.Remove(path); err != nil {
			slog.Warn("delete failed", "path", path, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		fmt.Fprintf(w, "deleted %s\n", path)
	}
	return firstErr
}

func execGroup(w io.Writer, g Group, prog string, pretend bool) error {
	if pretend {
		fmt.Fprintf(w, "would exec %s %v\n", prog, g.Paths)
		return nil
	}

	cmd := exec.Command(prog, g.Paths...)
	cmd.Stdout = w
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("exec %s: %w", prog, err)
	}
	return nil
}
