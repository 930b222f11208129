package rules

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPersister stores rules in the business_rules table and records
// each rule set version in rule_set_versions.
type PostgresPersister struct {
	db *pgxpool.Pool
}

var _ Persister = (*PostgresPersister)(nil)

// NewPostgresPersister creates a rule persister backed by db
func NewPostgresPersister(db *pgxpool.Pool) *PostgresPersister {
	return &PostgresPersister{db: db}
}

// LoadRules returns every stored rule and the latest recorded version
func (p *PostgresPersister) LoadRules(ctx context.Context) ([]Rule, int64, error) {
	var version int64
	if err := p.db.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM rule_set_versions`).Scan(&version); err != nil {
		return nil, 0, err
	}

	rows, err := p.db.Query(ctx, `
		SELECT id, name, condition, action, priority, enabled, updated_at
		FROM business_rules
		ORDER BY priority DESC, id ASC
	`)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var r Rule
		if err := rows.Scan(&r.ID, &r.Name, &r.Condition, &r.Action, &r.Priority, &r.Enabled, &r.UpdatedAt); err != nil {
			return nil, 0, err
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return rules, version, nil
}

// SaveRule upserts r and records version in one transaction
func (p *PostgresPersister) SaveRule(ctx context.Context, r Rule, version int64) error {
	return pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO business_rules (id, name, condition, action, priority, enabled, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				condition = EXCLUDED.condition,
				action = EXCLUDED.action,
				priority = EXCLUDED.priority,
				enabled = EXCLUDED.enabled,
				updated_at = EXCLUDED.updated_at
		`, r.ID, r.Name, r.Condition, string(r.Action), r.Priority, r.Enabled, r.UpdatedAt)
		if err != nil {
			return err
		}
		return recordVersion(ctx, tx, version)
	})
}

// DeleteRule removes a rule and records version in one transaction
func (p *PostgresPersister) DeleteRule(ctx context.Context, id string, version int64) error {
	return pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM business_rules WHERE id = $1`, id); err != nil {
			return err
		}
		return recordVersion(ctx, tx, version)
	})
}

func recordVersion(ctx context.Context, tx pgx.Tx, version int64) error {
	_, err := tx.Exec(ctx, `INSERT INTO rule_set_versions (version) VALUES ($1) ON CONFLICT (version) DO NOTHING`, version)
	return err
}
