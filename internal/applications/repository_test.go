package applications

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRepository(t *testing.T, n int) *MemoryRepository {
	t.Helper()
	repo := NewMemoryRepository()
	for i := 0; i < n; i++ {
		status := StatusDraft
		if i%2 == 1 {
			status = StatusSubmitted
		}
		require.NoError(t, repo.Create(context.Background(), &Application{
			ID:        fmt.Sprintf("app-%d", i),
			Status:    status,
			CreatedAt: fixedNow.Add(time.Duration(i) * time.Minute),
		}))
	}
	return repo
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := seedRepository(t, 1)

	app, err := repo.Get(context.Background(), "app-0")
	require.NoError(t, err)
	app.Status = StatusApproved
	app.Rationale = append(app.Rationale, "edited")

	stored, err := repo.Get(context.Background(), "app-0")
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, stored.Status)
	assert.Empty(t, stored.Rationale)
}

func TestMemoryRepository_SaveUnknown(t *testing.T) {
	repo := NewMemoryRepository()
	err := repo.Save(context.Background(), &Application{ID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepository_List(t *testing.T) {
	repo := seedRepository(t, 5)

	tests := []struct {
		name   string
		filter ListFilter
		want   []string
	}{
		{"newest first", ListFilter{}, []string{"app-4", "app-3", "app-2", "app-1", "app-0"}},
		{"status filter", ListFilter{Status: StatusSubmitted}, []string{"app-3", "app-1"}},
		{"limit", ListFilter{Limit: 2}, []string{"app-4", "app-3"}},
		{"offset", ListFilter{Limit: 2, Offset: 3}, []string{"app-1", "app-0"}},
		{"offset past end", ListFilter{Offset: 10}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apps, err := repo.List(context.Background(), tt.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(apps))
			for _, a := range apps {
				ids = append(ids, a.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}
