// Package filter restricts which files and directories take part in a scan.
// Rules are glob patterns evaluated in the order they were added; the first
// matching rule decides, later rules never override it.
package filter

// rule is a single include or exclude pattern.
type rule struct {
	pattern *pattern
	include bool
}

// Set holds an ordered list of include/exclude rules plus size bounds.
// Size bounds apply to regular files only.
type Set struct {
	rules   []rule
	minSize int64
	maxSize int64
}

// New creates an empty filter set. An empty set allows everything.
func New() *Set {
	return &Set{}
}

// Exclude adds an exclude rule for the given glob pattern.
func (s *Set) Exclude(glob string) error {
	p, err := compile(glob)
	if err != nil {
		return err
	}
	s.rules = append(s.rules, rule{pattern: p, include: false})
	return nil
}

// Include adds an include rule. An include placed before an exclude
// re-admits paths the exclude would otherwise drop.
func (s *Set) Include(glob string) error {
	p, err := compile(glob)
	if err != nil {
		return err
	}
	s.rules = append(s.rules, rule{pattern: p, include: true})
	return nil
}

// SetMinSize drops regular files smaller than n bytes.
func (s *Set) SetMinSize(n int64) { s.minSize = n }

// SetMaxSize drops regular files larger than n bytes.
func (s *Set) SetMaxSize(n int64) { s.maxSize = n }

// Empty reports whether the set has no rules and no size bounds.
func (s *Set) Empty() bool {
	return len(s.rules) == 0 && s.minSize == 0 && s.maxSize == 0
}

// Allows reports whether the path should take part in the scan. relPath is
// relative to the scan root; size is ignored for directories.
func (s *Set) Allows(relPath string, isDir bool, size int64) bool {
	if !isDir {
		if s.minSize > 0 && size < s.minSize {
			return false
		}
		if s.maxSize > 0 && size > s.maxSize {
			return false
		}
	}

	for _, r := range s.rules {
		if r.pattern.match(relPath, isDir) {
			return r.include
		}
	}
	return true
}
