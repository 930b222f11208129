package applications

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps applications in process memory
type MemoryRepository struct {
	mu   sync.RWMutex
	apps map[string]*Application
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{apps: make(map[string]*Application)}
}

// Create stores a new application
func (r *MemoryRepository) Create(ctx context.Context, app *Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apps[app.ID] = app.Clone()
	return nil
}

// Get returns a copy of the application
func (r *MemoryRepository) Get(ctx context.Context, id string) (*Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	app, ok := r.apps[id]
	if !ok {
		return nil, ErrNotFound
	}
	return app.Clone(), nil
}

// Save replaces the stored application
func (r *MemoryRepository) Save(ctx context.Context, app *Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.apps[app.ID]; !ok {
		return ErrNotFound
	}
	r.apps[app.ID] = app.Clone()
	return nil
}

// List returns applications newest first
func (r *MemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Application, error) {
	r.mu.RLock()
	out := make([]*Application, 0, len(r.apps))
	for _, app := range r.apps {
		if filter.Status != "" && app.Status != filter.Status {
			continue
		}
		out = append(out, app.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, filter.Limit, filter.Offset), nil
}

func page(apps []*Application, limit, offset int) []*Application {
	if offset > len(apps) {
		return []*Application{}
	}
	apps = apps[offset:]
	if limit > 0 && limit < len(apps) {
		apps = apps[:limit]
	}
	return apps
}
