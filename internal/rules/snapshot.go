package rules

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/richxcame/account-onboarding/internal/facts"
)

type compiledRule struct {
	Rule
	cond expr
}

// Snapshot is an immutable, versioned rule set. Evaluations hold on to the
// snapshot they started with, so later mutations are never seen mid-pass.
type Snapshot struct {
	version int64
	rules   []compiledRule // evaluation order, disabled included
	byID    map[string]int
}

// NewSnapshot validates and compiles rules against schema.
func NewSnapshot(version int64, rules []Rule, schema facts.Schema) (*Snapshot, error) {
	s := &Snapshot{
		version: version,
		rules:   make([]compiledRule, 0, len(rules)),
		byID:    make(map[string]int, len(rules)),
	}
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if seen[r.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRule, r.ID)
		}
		seen[r.ID] = true

		cond, err := validate(r, schema)
		if err != nil {
			return nil, err
		}
		s.rules = append(s.rules, compiledRule{Rule: r, cond: cond})
	}

	sort.SliceStable(s.rules, func(i, j int) bool {
		return before(s.rules[i].Rule, s.rules[j].Rule)
	})
	for i, r := range s.rules {
		s.byID[r.ID] = i
	}
	return s, nil
}

// before orders by priority descending, then id ascending.
func before(a, b Rule) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.ID < b.ID
}

// validate checks a rule in isolation and returns its compiled condition.
func validate(r Rule, schema facts.Schema) (expr, error) {
	if strings.TrimSpace(r.ID) == "" || strings.ContainsAny(r.ID, " \t\n/") {
		return nil, fmt.Errorf("%w: id %q must be non-empty without spaces or slashes", ErrInvalidRule, r.ID)
	}
	if strings.TrimSpace(r.Name) == "" {
		return nil, fmt.Errorf("%w: %s: name is required", ErrInvalidRule, r.ID)
	}
	if _, ok := r.Action.Severity(); !ok {
		return nil, fmt.Errorf("%w: %s: unknown action %q", ErrInvalidRule, r.ID, r.Action)
	}
	cond, err := compile(r.Condition, schema)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: condition %q: %v", ErrInvalidRule, r.ID, r.Condition, err)
	}
	return cond, nil
}

// Version identifies the rule set revision.
func (s *Snapshot) Version() int64 { return s.version }

// Len counts all rules, enabled or not.
func (s *Snapshot) Len() int { return len(s.rules) }

// Rules returns a copy of the rules in evaluation order.
func (s *Snapshot) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	for i, r := range s.rules {
		out[i] = r.Rule
	}
	return out
}

// Get looks up a rule by id.
func (s *Snapshot) Get(id string) (Rule, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Rule{}, false
	}
	return s.rules[i].Rule, true
}

func (s *Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Version int64  `json:"version"`
		Rules   []Rule `json:"rules"`
	}{s.version, s.Rules()})
}
