package planfile

import (
	"errors"
	"fmt"
	"strings"
)

// Record fields are delimited rather than quoted, so a single escape
// character is enough to round-trip any byte a filename can contain. Newlines
// map to printable escapes to keep one record per line.
const (
	fieldDelimiter = '*'
	escapeChar     = '?'
)

func escapeField(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		switch r {
		case escapeChar:
			b.WriteString("??")
		case fieldDelimiter:
			b.WriteString("?*")
		case '\n':
			b.WriteString("?n")
		case '\r':
			b.WriteString("?r")
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}

// splitRecord undoes escapeField across one record line. Any malformed escape
// fails the whole record: a half-understood row is grounds to distrust the
// file, not to guess.
func splitRecord(line string) ([]string, error) {
	fields := make([]string, 0, 5)

	var b strings.Builder
	escaped := false

	for _, r := range line {
		if escaped {
			switch r {
			case escapeChar, fieldDelimiter:
				b.WriteRune(r)
			case 'n':
				b.WriteRune('\n')
			case 'r':
				b.WriteRune('\r')
			default:
				return nil, fmt.Errorf("stray escape before %q", r)
			}

			escaped = false

			continue
		}

		switch r {
		case escapeChar:
			escaped = true
		case fieldDelimiter:
			fields = append(fields, b.String())
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}

	if escaped {
		return nil, errors.New("unterminated escape at end of record")
	}

	fields = append(fields, b.String())

	return fields, nil
}
