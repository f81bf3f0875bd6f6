// Package keys builds the redis keys entities and the cell index are stored under.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// Area renders an area name safe for use inside a key. Names that had to be rewritten get
// a hash suffix so that distinct areas never share a segment.
func Area(area string) string {
	raw := strings.TrimSpace(area)
	safe := sanitize(raw)
	if safe == raw {
		return safe
	}
	return fmt.Sprintf("%s.%08x", safe, uint32(xxhash.Sum64String(raw)))
}

func Entity(area, id string) string {
	return "ent:" + Area(area) + ":" + strings.TrimSpace(id)
}

// EntityPrefix matches every entity key of an area.
func EntityPrefix(area string) string {
	return "ent:" + Area(area) + ":"
}

func Cell(area string, res int, cell string) string {
	return fmt.Sprintf("idx:%s:%d:%s", Area(area), res, cell)
}

// AreaMembers is the set of every entity id stored for an area.
func AreaMembers(area string) string {
	return "members:" + Area(area)
}

// Job identifies one import job for de-duplication.
func Job(area, path, version string) string {
	sum := xxhash.Sum64String(strings.Join([]string{area, path, version}, "\x00"))
	return fmt.Sprintf("job:%s:%016x", Area(area), sum)
}

func sanitize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-':
			out = r
		default:
			// ':' separates key segments, so it is rewritten too
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r < unicode.MaxASCII && unicode.IsDigit(r))
}
