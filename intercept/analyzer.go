package intercept

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Craftserve/msgproxy/rewrite"
	"github.com/Craftserve/msgproxy/rules"
)

const (
	AnalyzerTTL  = 15 * time.Minute
	AnalyzerSize = 4096
)

// Seen is one distinct text observed by the analyzer.
type Seen struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	Text     string    `json:"text"`
	Final    string    `json:"final,omitempty"`
	RuleID   string    `json:"rule,omitempty"`
	Count    int       `json:"count"`
	LastSeen time.Time `json:"last_seen"`
}

// Analyzer logs text of selected kinds with a stable message id, so rule
// authors can find what the server actually sends. A nil *Analyzer records
// nothing.
type Analyzer struct {
	kinds  map[rules.TextKind]bool
	mu     sync.Mutex
	recent *expirable.LRU[string, Seen]
	log    *logrus.Logger
	lines  *rate.Limiter
}

func NewAnalyzer(kinds []rules.TextKind, out io.Writer) *Analyzer {
	a := &Analyzer{
		kinds:  make(map[rules.TextKind]bool, len(kinds)),
		recent: expirable.NewLRU[string, Seen](AnalyzerSize, nil, AnalyzerTTL),
		log:    logrus.New(),
		lines:  rate.NewLimiter(rate.Limit(50), 200),
	}
	for _, k := range kinds {
		a.kinds[k] = true
	}
	if out == nil {
		out = io.Discard
	}
	a.log.SetOutput(out)
	a.log.SetFormatter(&logrus.JSONFormatter{})
	return a
}

// MessageID identifies a text independently of who sees it.
func MessageID(kind rules.TextKind, text string) string {
	return kind.String() + ":" + strconv.FormatUint(xxhash.Sum64String(text), 16)
}

func (a *Analyzer) Enabled(kind rules.TextKind) bool {
	return a != nil && a.kinds[kind]
}

func (a *Analyzer) Record(kind rules.TextKind, res rewrite.Result) {
	if !a.Enabled(kind) {
		return
	}
	id := MessageID(kind, res.Original)

	a.mu.Lock()
	seen, ok := a.recent.Get(id)
	if !ok {
		seen = Seen{ID: id, Kind: kind.String(), Text: res.Original}
	}
	seen.Count++
	seen.LastSeen = time.Now()
	seen.RuleID = res.MatchedRuleID
	seen.Final = ""
	if res.Changed() {
		seen.Final = res.Final
	}
	a.recent.Add(id, seen)
	a.mu.Unlock()

	// only the first sighting in the cache window is logged
	if !ok && a.lines.Allow() {
		a.log.WithFields(logrus.Fields{
			"id":   id,
			"kind": kind.String(),
			"rule": res.MatchedRuleID,
		}).Info(res.Original)
	}
}

// Recent returns the texts seen in the last AnalyzerTTL, newest first.
func (a *Analyzer) Recent() []Seen {
	if a == nil {
		return nil
	}
	list := a.recent.Values()
	sort.Slice(list, func(i, j int) bool { return list[i].LastSeen.After(list[j].LastSeen) })
	return list
}

func (a *Analyzer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	list := a.Recent()
	if kind := r.URL.Query().Get("kind"); kind != "" {
		filtered := list[:0]
		for _, s := range list {
			if s.Kind == kind {
				filtered = append(filtered, s)
			}
		}
		list = filtered
	}
	if list == nil {
		list = []Seen{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(list); err != nil {
		logrus.WithError(err).Error("analyzer: encode recent messages")
	}
}
