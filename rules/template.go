package rules

import "strings"

type SegmentKind uint8

const (
	Literal SegmentKind = iota
	Placeholder
	GroupRef
)

// Segment of a replacement template. For placeholders Text is the whole
// marker including delimiters, for group references the group number or name.
type Segment struct {
	Kind SegmentKind
	Text string
}

type Template struct {
	Raw      string
	Segments []Segment
}

const colorCodeChars = "0123456789abcdefklmnorABCDEFKLMNORxX"

// ParseTemplate splits a template into literal text, %name% and {name}
// placeholders and $1 / ${name} group references. & color codes in literal
// text become § codes; $$ is a literal dollar.
func ParseTemplate(raw string) Template {
	t := Template{Raw: raw}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			t.Segments = append(t.Segments, Segment{Kind: Literal, Text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(raw); {
		c := raw[i]
		switch c {
		case '&':
			if i+1 < len(raw) && strings.IndexByte(colorCodeChars, raw[i+1]) >= 0 {
				lit.WriteString("§")
				lit.WriteByte(raw[i+1])
				i += 2
				continue
			}
		case '%', '{':
			closing := byte('%')
			if c == '{' {
				closing = '}'
			}
			if n := placeholderLen(raw[i+1:], closing); n > 0 {
				flush()
				t.Segments = append(t.Segments, Segment{Kind: Placeholder, Text: raw[i : i+n+2]})
				i += n + 2
				continue
			}
		case '$':
			if i+1 < len(raw) {
				next := raw[i+1]
				switch {
				case next == '$':
					lit.WriteByte('$')
					i += 2
					continue
				case next >= '0' && next <= '9':
					j := i + 1
					for j < len(raw) && raw[j] >= '0' && raw[j] <= '9' {
						j++
					}
					flush()
					t.Segments = append(t.Segments, Segment{Kind: GroupRef, Text: raw[i+1 : j]})
					i = j
					continue
				case next == '{':
					if n := strings.IndexByte(raw[i+2:], '}'); n > 0 && isName(raw[i+2:i+2+n]) {
						flush()
						t.Segments = append(t.Segments, Segment{Kind: GroupRef, Text: raw[i+2 : i+2+n]})
						i += n + 3
						continue
					}
				}
			}
		}
		lit.WriteByte(c)
		i++
	}
	flush()
	return t
}

// placeholderLen returns the length of a valid name before closing, or 0.
func placeholderLen(s string, closing byte) int {
	n := strings.IndexByte(s, closing)
	if n <= 0 || !isName(s[:n]) {
		return 0
	}
	return n
}

func isName(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_' || c == '.' || c == ':' || c == '-':
		default:
			return false
		}
	}
	return s != ""
}

func (t Template) HasPlaceholders() bool {
	for _, s := range t.Segments {
		if s.Kind == Placeholder {
			return true
		}
	}
	return false
}

// PlaceholderName strips the marker delimiters.
func PlaceholderName(marker string) string {
	if len(marker) >= 2 {
		switch {
		case marker[0] == '%' && marker[len(marker)-1] == '%',
			marker[0] == '{' && marker[len(marker)-1] == '}':
			return marker[1 : len(marker)-1]
		}
	}
	return marker
}
