package rules

import (
	"fmt"
	"sync"
	"sync/atomic"
)

type State uint32

const (
	Active State = iota
	Swapping
)

func (s State) String() string {
	if s == Swapping {
		return "swapping"
	}
	return "active"
}

// Loader produces a complete, validated rule set.
type Loader interface {
	Load() (*RuleSet, error)
}

type LoaderFunc func() (*RuleSet, error)

func (f LoaderFunc) Load() (*RuleSet, error) {
	return f()
}

// Store publishes the active RuleSet behind a single pointer. Readers take
// one Snapshot per packet; a reload replaces the pointer and never touches
// a published set.
type Store struct {
	current    atomic.Pointer[RuleSet]
	state      atomic.Uint32
	mu         sync.Mutex
	generation uint64
}

func NewStore(initial *RuleSet) *Store {
	s := &Store{}
	if initial == nil {
		initial = NewRuleSet(nil)
	}
	s.Swap(initial)
	return s
}

func (s *Store) Snapshot() *RuleSet {
	return s.current.Load()
}

func (s *Store) State() State {
	return State(s.state.Load())
}

// Swap stamps set with the next generation and publishes it. A set that
// was published before is copied so its readers keep their generation.
func (s *Store) Swap(set *RuleSet) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publish(set)
}

func (s *Store) publish(set *RuleSet) uint64 {
	if set.generation != 0 {
		c := *set
		set = &c
	}
	s.generation++
	set.generation = s.generation
	s.current.Store(set)
	return s.generation
}

// Reload runs loader and publishes its result. On error the previous
// generation stays active.
func (s *Store) Reload(loader Loader) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Store(uint32(Swapping))
	defer s.state.Store(uint32(Active))

	set, err := loader.Load()
	if err == nil && set == nil {
		err = fmt.Errorf("loader returned no rule set")
	}
	if err != nil {
		return s.current.Load().Generation(), fmt.Errorf("rule set reload rejected: %w", err)
	}
	return s.publish(set), nil
}
