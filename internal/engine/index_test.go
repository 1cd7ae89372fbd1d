package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func digestOf(b byte) Digest {
	var d Digest
	d[0] = b
	return d
}

func TestIndexGroupsRequireTwoPaths(t *testing.T) {
	ix := NewIndex()
	ix.Add(digestOf(1), "/a/one", 10)
	ix.Add(digestOf(2), "/a/two", 10)
	ix.Add(digestOf(2), "/a/three", 10)

	groups := ix.Groups(2)
	require.Len(t, groups, 1)
	assert.Equal(t, digestOf(2), groups[0].Digest)
	assert.Equal(t, []string{"/a/three", "/a/two"}, groups[0].Paths)
	assert.Equal(t, int64(10), groups[0].Size)
}

func TestIndexDeduplicatesPaths(t *testing.T) {
	ix := NewIndex()
	ix.Add(digestOf(7), "/a/one", 4)
	ix.Add(digestOf(7), "/a/one", 4)

	assert.Empty(t, ix.Groups(2))
	assert.Equal(t, 1, ix.Len())
}

func TestIndexGroupsSorted(t *testing.T) {
	ix := NewIndex()
	ix.Add(digestOf(9), "/z", 1)
	ix.Add(digestOf(9), "/a", 1)
	ix.Add(digestOf(3), "/m", 1)
	ix.Add(digestOf(3), "/b", 1)

	groups := ix.Groups(2)
	require.Len(t, groups, 2)
	assert.Equal(t, digestOf(3), groups[0].Digest)
	assert.Equal(t, []string{"/b", "/m"}, groups[0].Paths)
	assert.Equal(t, []string{"/a", "/z"}, groups[1].Paths)
}

func TestGroupReclaimable(t *testing.T) {
	g := Group{Paths: []string{"/a", "/b", "/c"}, Size: 100}
	assert.Equal(t, int64(200), g.Reclaimable())
}

func TestDigestStringRoundTrip(t *testing.T) {
	d := digestOf(0xAB)
	s := d.String()
	assert.Len(t, s, 32)

	parsed, ok := ParseDigest(s)
	require.True(t, ok)
	assert.Equal(t, d, parsed)

	_, ok = ParseDigest("not-hex")
	assert.False(t, ok)
}
