package applications

import (
	"context"

	"github.com/richxcame/account-onboarding/internal/integrations"
	"github.com/richxcame/account-onboarding/internal/rules"
)

// RepositoryInterface is the storage collaborator. Get and List return copies;
// callers own what they receive.
type RepositoryInterface interface {
	Create(ctx context.Context, app *Application) error
	Get(ctx context.Context, id string) (*Application, error)
	Save(ctx context.Context, app *Application) error
	List(ctx context.Context, filter ListFilter) ([]*Application, error)
}

// Locker grants exclusive processing of one application id. Lock fails with
// ErrConcurrencyConflict instead of waiting when the id is held.
type Locker interface {
	Lock(ctx context.Context, id string) (unlock func(), err error)
}

// EventPublisher announces lifecycle changes. Implementations swallow and log
// their own failures.
type EventPublisher interface {
	ApplicationSubmitted(ctx context.Context, app *Application)
	ApplicationDecided(ctx context.Context, app *Application)
}

// RuleSource hands out immutable rule set snapshots
type RuleSource interface {
	Snapshot() *rules.Snapshot
	Version() int64
}

// IntegrationRunner settles a batch of integration calls
type IntegrationRunner interface {
	Run(ctx context.Context, subject integrations.Subject, ids []string) ([]integrations.Outcome, error)
}

// ListFilter narrows List
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

var (
	_ RepositoryInterface = (*MemoryRepository)(nil)
	_ RepositoryInterface = (*PostgresRepository)(nil)
	_ Locker              = (*LocalLocker)(nil)
	_ Locker              = (*RedisLocker)(nil)
	_ EventPublisher      = (*BusPublisher)(nil)
	_ EventPublisher      = NopPublisher{}
	_ RuleSource          = (*rules.Store)(nil)
	_ IntegrationRunner   = (*integrations.Orchestrator)(nil)
)
