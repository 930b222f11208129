package rules

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/richxcame/account-onboarding/internal/facts"
	"github.com/richxcame/account-onboarding/pkg/logger"
)

// Persister durably records rule changes. Every write carries the version
// the rule set moves to.
type Persister interface {
	LoadRules(ctx context.Context) ([]Rule, int64, error)
	SaveRule(ctx context.Context, r Rule, version int64) error
	DeleteRule(ctx context.Context, id string, version int64) error
}

// Store owns the active rule set. Readers take a snapshot without locking;
// writers build a new snapshot and swap it in whole.
type Store struct {
	mu        sync.Mutex
	current   atomic.Pointer[Snapshot]
	schema    facts.Schema
	persister Persister
	now       func() time.Time
}

// NewStore creates an empty store. persister may be nil for an in-memory rule set.
func NewStore(schema facts.Schema, persister Persister) *Store {
	s := &Store{
		schema:    schema,
		persister: persister,
		now:       time.Now,
	}
	empty, _ := NewSnapshot(0, nil, schema)
	s.current.Store(empty)
	return s
}

// Load reads the persisted rule set. When nothing is persisted yet the
// defaults are installed and written back.
func (s *Store) Load(ctx context.Context, defaults []Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		rules   []Rule
		version int64
	)
	if s.persister != nil {
		var err error
		rules, version, err = s.persister.LoadRules(ctx)
		if err != nil {
			return fmt.Errorf("load rules: %w", err)
		}
	}

	seed := len(rules) == 0
	if seed {
		rules = make([]Rule, len(defaults))
		for i, r := range defaults {
			r.UpdatedAt = s.now().UTC()
			rules[i] = r
		}
		version++
	}

	snap, err := NewSnapshot(version, rules, s.schema)
	if err != nil {
		return err
	}

	if seed && s.persister != nil {
		for _, r := range snap.Rules() {
			if err := s.persister.SaveRule(ctx, r, version); err != nil {
				return fmt.Errorf("seed rule %s: %w", r.ID, err)
			}
		}
	}

	s.current.Store(snap)
	logger.WithContext(ctx).Info("rule set loaded",
		zap.Int64("version", snap.Version()),
		zap.Int("rules", snap.Len()),
		zap.Bool("seeded", seed),
	)
	return nil
}

// Snapshot returns the active rule set.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Version returns the active rule set version.
func (s *Store) Version() int64 {
	return s.Snapshot().Version()
}

// Validate checks r against the schema and action table without storing it.
func (s *Store) Validate(r Rule) error {
	_, err := validate(r, s.schema)
	return err
}

// Add registers a new rule.
func (s *Store) Add(ctx context.Context, r Rule) (*Snapshot, error) {
	return s.mutate(ctx, func(cur *Snapshot) ([]Rule, error) {
		if _, exists := cur.Get(r.ID); exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRule, r.ID)
		}
		r.UpdatedAt = s.now().UTC()
		return append(cur.Rules(), r), nil
	}, func(next *Snapshot) error {
		return s.save(ctx, next, r.ID)
	})
}

// Update replaces an existing rule.
func (s *Store) Update(ctx context.Context, r Rule) (*Snapshot, error) {
	return s.mutate(ctx, func(cur *Snapshot) ([]Rule, error) {
		if _, exists := cur.Get(r.ID); !exists {
			return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, r.ID)
		}
		r.UpdatedAt = s.now().UTC()
		rules := cur.Rules()
		for i := range rules {
			if rules[i].ID == r.ID {
				rules[i] = r
			}
		}
		return rules, nil
	}, func(next *Snapshot) error {
		return s.save(ctx, next, r.ID)
	})
}

// Remove deletes a rule.
func (s *Store) Remove(ctx context.Context, id string) (*Snapshot, error) {
	return s.mutate(ctx, func(cur *Snapshot) ([]Rule, error) {
		if _, exists := cur.Get(id); !exists {
			return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
		}
		var rules []Rule
		for _, r := range cur.Rules() {
			if r.ID != id {
				rules = append(rules, r)
			}
		}
		return rules, nil
	}, func(next *Snapshot) error {
		if s.persister == nil {
			return nil
		}
		return s.persister.DeleteRule(ctx, id, next.Version())
	})
}

func (s *Store) save(ctx context.Context, next *Snapshot, id string) error {
	if s.persister == nil {
		return nil
	}
	r, _ := next.Get(id)
	return s.persister.SaveRule(ctx, r, next.Version())
}

// mutate builds the next snapshot from the current one, persists it and
// publishes it. Nothing is published if any step fails.
func (s *Store) mutate(ctx context.Context, change func(*Snapshot) ([]Rule, error), persist func(*Snapshot) error) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	rules, err := change(cur)
	if err != nil {
		return nil, err
	}

	next, err := NewSnapshot(cur.Version()+1, rules, s.schema)
	if err != nil {
		return nil, err
	}

	if err := persist(next); err != nil {
		return nil, fmt.Errorf("persist rule set v%d: %w", next.Version(), err)
	}

	s.current.Store(next)
	logger.WithContext(ctx).Info("rule set updated", zap.Int64("version", next.Version()), zap.Int("rules", next.Len()))
	return next, nil
}
