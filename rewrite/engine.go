package rewrite

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Craftserve/msgproxy/rules"
)

// ViewerContext identifies who is going to see the text.
type ViewerContext struct {
	ConnectionID string
	PlayerUUID   uuid.UUID
	PlayerName   string
	Locale       string // empty until the client sends its settings
	Protocol     int
}

// Resolver expands one placeholder marker for a viewer. It returns the
// marker unchanged when it does not know the placeholder.
type Resolver interface {
	Resolve(template string, viewer ViewerContext) string
}

type ResolverFunc func(template string, viewer ViewerContext) string

func (f ResolverFunc) Resolve(template string, viewer ViewerContext) string {
	return f(template, viewer)
}

var (
	ErrResolverUnavailable = errors.New("placeholder resolver unavailable")
	ErrResolverTimeout     = errors.New("placeholder resolver timed out")
	ErrResolverPanic       = errors.New("placeholder resolver panicked")
)

// Fallback records a placeholder left as literal marker text.
type Fallback struct {
	Marker string
	Err    error
}

type Result struct {
	Original      string
	Final         string
	MatchedRuleID string   // first rule that matched
	Applied       []string // every rule that rewrote the text, in order
	Generation    uint64
	Fallbacks     []Fallback
	MatchErrors   []error
}

func (r Result) Changed() bool {
	return r.Final != r.Original
}

const DefaultResolverTimeout = 50 * time.Millisecond

// Engine applies a RuleSet to text. It keeps no state between calls and is
// safe for concurrent use.
type Engine struct {
	Resolver Resolver
	// Timeout bounds a single resolver call; zero calls the resolver inline.
	Timeout time.Duration
}

func NewEngine(resolver Resolver, timeout time.Duration) *Engine {
	return &Engine{Resolver: resolver, Timeout: timeout}
}

func (e *Engine) Rewrite(text string, kind rules.TextKind, viewer ViewerContext, set *rules.RuleSet) Result {
	res := Result{Original: text, Final: text, Generation: set.Generation()}
	chain := set.Rules(kind)
	if len(chain) == 0 {
		return res
	}

	current := text
	for _, rule := range chain {
		m, ok, err := rule.Matcher.Match(current)
		if err != nil {
			res.MatchErrors = append(res.MatchErrors, fmt.Errorf("rule %s: %w", rule.ID, err))
			continue
		}
		if !ok {
			continue
		}
		if m.Start < 0 || m.Start > m.End || m.End > len(current) {
			res.MatchErrors = append(res.MatchErrors, fmt.Errorf("rule %s: match span [%d:%d] outside text of %d bytes", rule.ID, m.Start, m.End, len(current)))
			continue
		}

		replacement := e.expand(rule.Template, m, viewer, &res)
		current = current[:m.Start] + replacement + current[m.End:]
		if res.MatchedRuleID == "" {
			res.MatchedRuleID = rule.ID
		}
		res.Applied = append(res.Applied, rule.ID)
		if rule.StopOnMatch {
			break
		}
	}
	res.Final = current
	return res
}

// captured text is spliced in verbatim, it never reaches the resolver
func (e *Engine) expand(tpl rules.Template, m rules.Match, viewer ViewerContext, res *Result) string {
	var b strings.Builder
	for _, seg := range tpl.Segments {
		switch seg.Kind {
		case rules.Literal:
			b.WriteString(seg.Text)
		case rules.GroupRef:
			g, _ := m.Group(seg.Text)
			b.WriteString(g)
		case rules.Placeholder:
			s, err := e.resolve(seg.Text, viewer)
			if err != nil {
				res.Fallbacks = append(res.Fallbacks, Fallback{Marker: seg.Text, Err: err})
				s = seg.Text
			}
			b.WriteString(s)
		}
	}
	return b.String()
}

type resolved struct {
	s   string
	err error
}

func (e *Engine) resolve(marker string, viewer ViewerContext) (string, error) {
	if e.Resolver == nil {
		return marker, ErrResolverUnavailable
	}
	if e.Timeout <= 0 {
		return e.call(marker, viewer)
	}

	done := make(chan resolved, 1)
	go func() {
		s, err := e.call(marker, viewer)
		done <- resolved{s, err}
	}()

	timer := time.NewTimer(e.Timeout)
	defer timer.Stop()
	select {
	case r := <-done:
		return r.s, r.err
	case <-timer.C:
		// the call keeps running, its result is dropped
		return marker, ErrResolverTimeout
	}
}

func (e *Engine) call(marker string, viewer ViewerContext) (s string, err error) {
	defer func() {
		if r := recover(); r != nil {
			s, err = marker, fmt.Errorf("%w: %v", ErrResolverPanic, r)
		}
	}()
	return e.Resolver.Resolve(marker, viewer), nil
}
