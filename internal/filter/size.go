package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSize parses a human-readable size string into bytes. Accepts a
// plain number or a K/M/G/T suffix (powers of 1024, case-insensitive).
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	multiplier := int64(1)
	num := s
	switch strings.ToUpper(s[len(s)-1:]) {
	case "B":
		num = s[:len(s)-1]
	case "K":
		multiplier = 1 << 10
		num = s[:len(s)-1]
	case "M":
		multiplier = 1 << 20
		num = s[:len(s)-1]
	case "G":
		multiplier = 1 << 30
		num = s[:len(s)-1]
	case "T":
		multiplier = 1 << 40
		num = s[:len(s)-1]
	}
	if num == "" {
		return 0, fmt.Errorf("invalid size: %q", s)
	}

	if n, err := strconv.ParseInt(num, 10, 64); err == nil {
		return n * multiplier, nil
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size: %q", s)
	}
	return int64(f * float64(multiplier)), nil
}
