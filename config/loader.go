package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/gorp.v2"
	"gopkg.in/yaml.v2"

	"github.com/Craftserve/msgproxy/placeholders"
	"github.com/Craftserve/msgproxy/rules"
)

// Loader reads every configured rule source and compiles one rule set.
// Rules keep the order rules file, edits directory, database.
type Loader struct {
	RulesFile    string
	EditsDir     string
	DB           *gorp.DbMap
	MatchTimeout time.Duration
	// Static receives the placeholders section of the rules file once the
	// rule set loaded with it is published, see Publish.
	Static *placeholders.Static

	mu      sync.Mutex
	pending map[string]string
}

func (l *Loader) Load() (*rules.RuleSet, error) {
	var specs []RuleSpec
	var where []string
	var values map[string]string

	if l.RulesFile != "" {
		f, err := ReadRulesFile(l.RulesFile)
		if err != nil {
			return nil, err
		}
		for i, spec := range f.Rules {
			specs = append(specs, spec)
			where = append(where, fmt.Sprintf("%s rule #%d", filepath.Base(l.RulesFile), i+1))
		}
		values = f.Placeholders
	}

	if l.EditsDir != "" {
		names, err := EditFiles(l.EditsDir)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			list, err := ReadEditsFile(filepath.Join(l.EditsDir, name))
			if err != nil {
				return nil, err
			}
			for i, spec := range list {
				specs = append(specs, spec)
				where = append(where, fmt.Sprintf("%s rule #%d", name, i+1))
			}
		}
	}

	if l.DB != nil {
		rows, err := selectRules(l.DB)
		if err != nil {
			return nil, fmt.Errorf("select rules: %w", err)
		}
		for _, row := range rows {
			specs = append(specs, row.spec())
			where = append(where, fmt.Sprintf("%s id %d", rulesTable, row.Id))
		}
	}

	compiled, err := Compile(specs, where, l.MatchTimeout)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.pending = values
	l.mu.Unlock()
	logrus.WithFields(logrus.Fields{
		"specs": len(specs),
		"rules": len(compiled),
	}).Debug("config: rules compiled")
	return rules.NewRuleSet(compiled), nil
}

// Publish makes the placeholders of the last successful Load live.
func (l *Loader) Publish() {
	if l.Static == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Static.Replace(l.pending)
}

func ReadRulesFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f := new(File)
	if err = yaml.UnmarshalStrict(data, f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// ReadEditsFile reads a file of the edits directory, a plain list of rules.
func ReadEditsFile(path string) ([]RuleSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var list []RuleSpec
	if err = yaml.UnmarshalStrict(data, &list); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return list, nil
}

// EditFiles lists the *.yml files of dir in name order. Names starting
// with # are disabled edits. A missing directory holds no edits.
func EditFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "#") {
			continue
		}
		if ext := filepath.Ext(name); ext != ".yml" && ext != ".yaml" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
