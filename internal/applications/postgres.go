package applications

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/account-onboarding/pkg/database"
	"github.com/richxcame/account-onboarding/pkg/resilience"
)

// PostgresRepository stores each application as a JSONB document with its
// status and stage lifted into columns for filtering
type PostgresRepository struct {
	db    *pgxpool.Pool
	retry resilience.RetryConfig
}

// NewPostgresRepository creates a repository backed by db
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		db: db,
		retry: resilience.RetryConfig{
			MaxAttempts:       3,
			InitialBackoff:    50 * time.Millisecond,
			MaxBackoff:        time.Second,
			BackoffMultiplier: 2.0,
			EnableJitter:      true,
			RetryableChecker:  database.IsRetryable,
		},
	}
}

// Create inserts a new application
func (r *PostgresRepository) Create(ctx context.Context, app *Application) error {
	doc, err := json.Marshal(app)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO applications (id, account_type, status, stage, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	return r.exec(ctx, query,
		app.ID,
		string(app.AccountType),
		string(app.Status),
		string(app.Stage),
		doc,
		app.CreatedAt,
		app.UpdatedAt,
	)
}

// Get loads an application by id
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Application, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	var doc []byte
	err := r.db.QueryRow(ctx, `SELECT document FROM applications WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var app Application
	if err := json.Unmarshal(doc, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// Save overwrites the stored document
func (r *PostgresRepository) Save(ctx context.Context, app *Application) error {
	doc, err := json.Marshal(app)
	if err != nil {
		return err
	}

	query := `
		UPDATE applications
		SET status = $2, stage = $3, document = $4, updated_at = $5
		WHERE id = $1
	`
	result, err := resilience.Retry(ctx, r.retry, func(ctx context.Context) (interface{}, error) {
		tag, err := r.db.Exec(ctx, query, app.ID, string(app.Status), string(app.Stage), doc, app.UpdatedAt)
		if err != nil {
			return nil, err
		}
		return tag.RowsAffected(), nil
	})
	if err != nil {
		return err
	}
	if n, _ := result.(int64); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns applications newest first
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Application, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT document FROM applications
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, string(filter.Status), limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := make([]*Application, 0)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var app Application
		if err := json.Unmarshal(doc, &app); err != nil {
			return nil, err
		}
		apps = append(apps, &app)
	}
	return apps, rows.Err()
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...interface{}) error {
	_, err := resilience.Retry(ctx, r.retry, func(ctx context.Context) (interface{}, error) {
		_, err := r.db.Exec(ctx, query, args...)
		return nil, err
	})
	return err
}
