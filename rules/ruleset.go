package rules

import "sort"

// Rule binds a text kind to a matcher and a replacement template. Rules are
// never modified after they are put into a RuleSet.
type Rule struct {
	ID          string
	Kind        TextKind
	Matcher     Matcher
	Priority    int
	Template    Template
	StopOnMatch bool
}

// RuleSet is one immutable generation of rules, ordered per kind by
// priority with ties kept in declaration order.
type RuleSet struct {
	generation uint64
	byKind     [kindEnd][]*Rule
	count      int
}

func NewRuleSet(rules []*Rule) *RuleSet {
	s := &RuleSet{}
	for _, r := range rules {
		if !r.Kind.Valid() {
			continue
		}
		s.byKind[r.Kind] = append(s.byKind[r.Kind], r)
		s.count++
	}
	for k := range s.byKind {
		chain := s.byKind[k]
		sort.SliceStable(chain, func(i, j int) bool {
			return chain[i].Priority < chain[j].Priority
		})
	}
	return s
}

// Rules returns the evaluation order for kind. The slice must not be modified.
func (s *RuleSet) Rules(kind TextKind) []*Rule {
	if s == nil || !kind.Valid() {
		return nil
	}
	return s.byKind[kind]
}

func (s *RuleSet) Generation() uint64 {
	if s == nil {
		return 0
	}
	return s.generation
}

func (s *RuleSet) Len() int {
	if s == nil {
		return 0
	}
	return s.count
}

// Kinds lists the kinds that have at least one rule.
func (s *RuleSet) Kinds() []TextKind {
	var kinds []TextKind
	for _, k := range AllKinds() {
		if len(s.Rules(k)) > 0 {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
