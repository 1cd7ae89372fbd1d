package engine

import (
	"encoding/hex"
	"sort"
	"sync"
)

// DigestSize is the width of a content fingerprint in bytes.
const DigestSize = 16

// Digest is a fixed-size content fingerprint derived from a file's full
// byte stream. Equal content always yields an equal digest.
type Digest [DigestSize]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// ParseDigest decodes a hex-encoded digest.
func ParseDigest(s string) (Digest, bool) {
	var d Digest
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != DigestSize {
		return d, false
	}
	copy(d[:], b)
	return d, true
}

// Group is a set of distinct paths sharing one digest. Size is the byte
// length of each member (equal content implies equal length).
type Group struct {
	Digest Digest
	Paths  []string
	Size   int64
}

// Reclaimable returns the bytes freed by keeping a single member.
func (g Group) Reclaimable() int64 {
	if len(g.Paths) <= 1 {
		return 0
	}
	return g.Size * int64(len(g.Paths)-1)
}

// Index accumulates digest → path-set pairs during a scan. Insertion is
// the only mutation; reads happen once after the scan converges.
type Index struct {
	mu      sync.Mutex
	entries map[Digest]*indexEntry
}

type indexEntry struct {
	paths map[string]struct{}
	size  int64
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{entries: make(map[Digest]*indexEntry)}
}

// Add records that the file at path has the given digest and size.
// Duplicate paths for the same digest collapse into one membership.
func (ix *Index) Add(d Digest, path string, size int64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	e := ix.entries[d]
	if e == nil {
		e = &indexEntry{paths: make(map[string]struct{}), size: size}
		ix.entries[d] = e
	}
	e.paths[path] = struct{}{}
}

// Len returns the number of distinct digests recorded.
func (ix *Index) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.entries)
}

// Groups returns every path set with at least min members. Paths within a
// group are sorted, and groups are ordered by digest, so identical scans
// produce identical output.
func (ix *Index) Groups(min int) []Group {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	groups := make([]Group, 0, len(ix.entries))
	for d, e := range ix.entries {
		if len(e.paths) < min {
			continue
		}
		paths := make([]string, 0, len(e.paths))
		for p := range e.paths {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		groups = append(groups, Group{Digest: d, Paths: paths, Size: e.size})
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Digest.String() < groups[j].Digest.String()
	})
	return groups
}
