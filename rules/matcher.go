package rules

import (
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// Match is the span of text a matcher selected, in byte offsets, plus the
// captured groups addressable by number or name.
type Match struct {
	Start, End int
	groups     map[string]string
}

func (m Match) Group(ref string) (string, bool) {
	s, ok := m.groups[ref]
	return s, ok
}

type Matcher interface {
	Match(text string) (Match, bool, error)
	String() string
}

// ExactText matches a whole field, case sensitive.
type ExactText string

func (e ExactText) Match(text string) (Match, bool, error) {
	if text != string(e) {
		return Match{}, false, nil
	}
	return Match{Start: 0, End: len(text), groups: map[string]string{"0": text}}, true, nil
}

func (e ExactText) String() string {
	return "exact:" + strconv.Quote(string(e))
}

// RegexPattern matches the first occurrence of a .NET style pattern.
type RegexPattern struct {
	re *regexp2.Regexp
}

const DefaultMatchTimeout = 20 * time.Millisecond

func CompileRegex(pattern string, timeout time.Duration) (*RegexPattern, error) {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultMatchTimeout
	}
	re.MatchTimeout = timeout
	return &RegexPattern{re: re}, nil
}

func (p *RegexPattern) Match(text string) (Match, bool, error) {
	m, err := p.re.FindStringMatch(text)
	if err != nil || m == nil {
		return Match{}, false, err
	}

	start := byteOffset(text, 0, m.Index)
	end := byteOffset(text, start, m.Length)

	groups := make(map[string]string)
	for _, g := range m.Groups() {
		if len(g.Captures) == 0 {
			continue
		}
		groups[g.Name] = g.String()
		if n := p.re.GroupNumberFromName(g.Name); n >= 0 {
			groups[strconv.Itoa(n)] = g.String()
		}
	}
	return Match{Start: start, End: end, groups: groups}, true, nil
}

// byteOffset advances n runes from byte offset off. regexp2 indexes runes
// and counts an invalid byte as one rune, like utf8.DecodeRuneInString.
func byteOffset(text string, off, n int) int {
	for ; n > 0 && off < len(text); n-- {
		_, size := utf8.DecodeRuneInString(text[off:])
		off += size
	}
	return off
}

func (p *RegexPattern) String() string {
	return "regex:" + p.re.String()
}
