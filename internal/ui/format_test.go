package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatRate(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0 B/s"},
		{-5, "0 B/s"},
		{1, "1.00 B/s"},
		{42, "42.0 B/s"},
		{512, "512 B/s"},
		{1024, "1.00 KB/s"},
		{1024 * 1024 * 5, "5.00 MB/s"},
		{1024 * 1024 * 1024 * 2.5, "2.50 GB/s"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, FormatRate(tc.in), "FormatRate(%v)", tc.in)
	}
}

func TestFormatCount(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{48917, "48,917"},
		{1234567, "1,234,567"},
		{-1234, "-1,234"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, FormatCount(tc.in), "FormatCount(%d)", tc.in)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "5s", FormatDuration(5*time.Second))
	assert.Equal(t, "3m 17s", FormatDuration(3*time.Minute+17*time.Second))
	assert.Equal(t, "1h 02m 03s", FormatDuration(time.Hour+2*time.Minute+3*time.Second))
}

func TestStripRoot(t *testing.T) {
	assert.Equal(t, "a/b", StripRoot("/root", "/root/a/b"))
	assert.Equal(t, "/root", StripRoot("/root", "/root"))
	assert.Equal(t, "/elsewhere/x", StripRoot("/root", "/elsewhere/x"))
	assert.Equal(t, "/a/b", StripRoot("", "/a/b"))
}
