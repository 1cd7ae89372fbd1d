package filter

import (
	"regexp"
	"strings"
)

// pattern is a compiled glob. Follows rsync matching conventions: a
// trailing / restricts the rule to directories, a pattern containing /
// is anchored at the root, a bare name matches at any depth.
type pattern struct {
	re      *regexp.Regexp
	dirOnly bool
}

func compile(glob string) (*pattern, error) {
	p := &pattern{}

	if strings.HasSuffix(glob, "/") {
		p.dirOnly = true
		glob = strings.TrimSuffix(glob, "/")
	}

	anchored := strings.Contains(glob, "/")
	glob = strings.TrimPrefix(glob, "/")

	expr := globToRegexp(glob)
	if anchored {
		expr = "^" + expr + "$"
	} else {
		expr = "(^|/)" + expr + "$"
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	p.re = re
	return p, nil
}

func (p *pattern) match(relPath string, isDir bool) bool {
	if p.dirOnly && !isDir {
		return false
	}
	return p.re.MatchString(relPath)
}

// globToRegexp converts a glob into a regexp fragment. ** crosses path
// separators, * and ? do not.
func globToRegexp(glob string) string {
	var b strings.Builder
	for i := 0; i < len(glob); {
		switch c := glob[i]; c {
		case '*':
			if strings.HasPrefix(glob[i:], "**/") {
				b.WriteString("(.*/)?")
				i += 3
			} else if strings.HasPrefix(glob[i:], "**") {
				b.WriteString(".*")
				i += 2
			} else {
				b.WriteString("[^/]*")
				i++
			}
		case '?':
			b.WriteString("[^/]")
			i++
		case '[':
			end := strings.IndexByte(glob[i+1:], ']')
			if end < 0 {
				b.WriteString(regexp.QuoteMeta("["))
				i++
				break
			}
			class := glob[i+1 : i+1+end]
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			b.WriteString("[" + class + "]")
			i += end + 2
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}
	return b.String()
}
