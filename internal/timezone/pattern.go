package timezone

import (
	"strings"
	"sync"
)

var layouts sync.Map

// Layout translates a date-fns / Unicode date pattern (dd MMM yyyy, hh:mm a)
// into a Go reference layout. Text inside single quotes is copied verbatim;
// a doubled single quote yields a literal one.
func Layout(pattern string) string {
	if v, ok := layouts.Load(pattern); ok {
		return v.(string)
	}
	layout := translate(pattern)
	layouts.Store(pattern, layout)
	return layout
}

func translate(pattern string) string {
	var b strings.Builder
	runes := []rune(pattern)

	for i := 0; i < len(runes); {
		r := runes[i]

		if r == '\'' {
			if i+1 < len(runes) && runes[i+1] == '\'' {
				b.WriteRune('\'')
				i += 2
				continue
			}
			j := i + 1
			for j < len(runes) {
				if runes[j] == '\'' {
					if j+1 < len(runes) && runes[j+1] == '\'' {
						b.WriteRune('\'')
						j += 2
						continue
					}
					break
				}
				b.WriteRune(runes[j])
				j++
			}
			i = j + 1
			continue
		}

		n := 1
		for i+n < len(runes) && runes[i+n] == r {
			n++
		}

		if tok, ok := token(r, n); ok {
			b.WriteString(tok)
		} else {
			b.WriteString(string(runes[i : i+n]))
		}
		i += n
	}
	return b.String()
}

func token(r rune, n int) (string, bool) {
	switch r {
	case 'y':
		if n == 2 {
			return "06", true
		}
		return "2006", true
	case 'M':
		switch {
		case n >= 4:
			return "January", true
		case n == 3:
			return "Jan", true
		case n == 2:
			return "01", true
		default:
			return "1", true
		}
	case 'd':
		if n >= 2 {
			return "02", true
		}
		return "2", true
	case 'E':
		if n >= 4 {
			return "Monday", true
		}
		return "Mon", true
	case 'H':
		return "15", true
	case 'h':
		if n >= 2 {
			return "03", true
		}
		return "3", true
	case 'm':
		if n >= 2 {
			return "04", true
		}
		return "4", true
	case 's':
		if n >= 2 {
			return "05", true
		}
		return "5", true
	case 'S':
		return strings.Repeat("0", n), true
	case 'a':
		return "PM", true
	case 'X':
		switch n {
		case 1:
			return "Z07", true
		case 2:
			return "Z0700", true
		default:
			return "Z07:00", true
		}
	case 'x':
		switch n {
		case 1:
			return "-07", true
		case 2:
			return "-0700", true
		default:
			return "-07:00", true
		}
	case 'z':
		return "MST", true
	}
	return "", false
}
