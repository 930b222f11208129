package integrations

import (
	"sort"
	"sync"
	"time"

	"github.com/richxcame/account-onboarding/pkg/resilience"
)

// Policy bounds a single integration's calls.
type Policy struct {
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultPolicy: 30s per attempt, three retries starting at 200ms.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:        30 * time.Second,
		MaxRetries:     3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

type registration struct {
	id      string
	client  Client
	policy  Policy
	breaker *resilience.CircuitBreaker
}

// RegisterOption customizes a registration.
type RegisterOption func(*registration, *resilience.Settings)

// WithPolicy overrides the registry's default policy.
func WithPolicy(p Policy) RegisterOption {
	return func(r *registration, _ *resilience.Settings) {
		r.policy = p
	}
}

// WithBreaker overrides the circuit breaker settings. An empty Name keeps
// the integration_<id> default.
func WithBreaker(s resilience.Settings) RegisterOption {
	return func(_ *registration, settings *resilience.Settings) {
		name := settings.Name
		*settings = s
		if settings.Name == "" {
			settings.Name = name
		}
	}
}

// Registry maps integration ids to clients, policies and breakers.
type Registry struct {
	mu       sync.RWMutex
	defaults Policy
	entries  map[string]*registration
}

// NewRegistry creates an empty registry using defaults for every registration
// without its own policy.
func NewRegistry(defaults Policy) *Registry {
	return &Registry{
		defaults: defaults,
		entries:  make(map[string]*registration),
	}
}

// Register installs or replaces the client for id.
func (r *Registry) Register(id string, c Client, opts ...RegisterOption) {
	reg := &registration{id: id, client: c, policy: r.defaults}
	settings := resilience.BuildSettings("integration_"+id, 0, 0, 0, 0)
	for _, opt := range opts {
		opt(reg, &settings)
	}
	if reg.policy.MaxRetries < 0 {
		reg.policy.MaxRetries = 0
	}
	if reg.policy.Timeout <= 0 {
		reg.policy.Timeout = DefaultPolicy().Timeout
	}
	reg.breaker = resilience.NewCircuitBreaker(settings, resilience.ShortCircuit(id))

	r.mu.Lock()
	r.entries[id] = reg
	r.mu.Unlock()
}

// IDs returns registered integration ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Has reports whether id has a client.
func (r *Registry) Has(id string) bool {
	_, ok := r.lookup(id)
	return ok
}

func (r *Registry) lookup(id string) (*registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[id]
	return reg, ok
}
