// Package config loads rewrite rules from YAML files and SQL and triggers
// reloads of the active rule set.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Craftserve/msgproxy/rules"
)

// RuleSpec is one rule as written in a rule file or a database row.
type RuleSpec struct {
	ID          string  `yaml:"id" validate:"required,max=64,printascii"`
	Kind        string  `yaml:"kind" validate:"required"`
	Exact       *string `yaml:"exact,omitempty" validate:"required_without=Regex,excluded_with=Regex"`
	Regex       string  `yaml:"regex,omitempty" validate:"required_without=Exact"`
	Template    string  `yaml:"template"`
	Priority    int     `yaml:"priority,omitempty"`
	StopOnMatch *bool   `yaml:"stop-on-match,omitempty"`
	Enabled     *bool   `yaml:"enabled,omitempty"`
}

// File is the layout of rules.yml.
type File struct {
	Rules        []RuleSpec        `yaml:"rules"`
	Placeholders map[string]string `yaml:"placeholders,omitempty"`
}

type ValidationError struct {
	Problems []string
}

func (v *ValidationError) Add(format string, args ...any) {
	v.Problems = append(v.Problems, fmt.Sprintf(format, args...))
}

func (v *ValidationError) Error() string {
	if len(v.Problems) == 1 {
		return v.Problems[0]
	}
	return fmt.Sprintf("%d validation error(s)", len(v.Problems))
}

var validate = validator.New()

// Compile validates specs and turns them into rules. Any problem rejects
// the whole batch; source names the origin of each spec in messages.
func Compile(specs []RuleSpec, source []string, matchTimeout time.Duration) ([]*rules.Rule, error) {
	v := &ValidationError{}
	seen := make(map[string]string, len(specs))
	var out []*rules.Rule

	for i, spec := range specs {
		where := fmt.Sprintf("rule #%d", i+1)
		if i < len(source) {
			where = source[i]
		}
		if spec.ID != "" {
			where += " (" + spec.ID + ")"
		}

		if err := validate.Struct(spec); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				for _, fe := range verrs {
					v.Add("%s: field %s failed %q", where, strings.ToLower(fe.Field()), fe.Tag())
				}
			} else {
				v.Add("%s: %v", where, err)
			}
			continue
		}
		if prev, dup := seen[spec.ID]; dup {
			v.Add("%s: duplicate id, first defined in %s", where, prev)
			continue
		}
		seen[spec.ID] = where

		var kinds []rules.TextKind
		if strings.EqualFold(strings.TrimSpace(spec.Kind), rules.AnyKind) {
			kinds = rules.AllKinds()
		} else {
			k, err := rules.ParseKind(spec.Kind)
			if err != nil {
				v.Add("%s: %v", where, err)
				continue
			}
			kinds = []rules.TextKind{k}
		}

		var matcher rules.Matcher
		if spec.Exact != nil {
			matcher = rules.ExactText(translateColors(*spec.Exact))
		} else {
			re, err := rules.CompileRegex(spec.Regex, matchTimeout)
			if err != nil {
				v.Add("%s: invalid regex: %v", where, err)
				continue
			}
			matcher = re
		}

		if spec.Enabled != nil && !*spec.Enabled {
			continue
		}
		stop := spec.StopOnMatch == nil || *spec.StopOnMatch
		tpl := rules.ParseTemplate(spec.Template)
		for _, k := range kinds {
			out = append(out, &rules.Rule{
				ID:          spec.ID,
				Kind:        k,
				Matcher:     matcher,
				Priority:    spec.Priority,
				Template:    tpl,
				StopOnMatch: stop,
			})
		}
	}

	if len(v.Problems) > 0 {
		return nil, v
	}
	return out, nil
}

// exact texts may use & codes like templates do
func translateColors(s string) string {
	t := rules.ParseTemplate(strings.ReplaceAll(s, "$", "$$"))
	var b strings.Builder
	for _, seg := range t.Segments {
		b.WriteString(seg.Text)
	}
	return b.String()
}
