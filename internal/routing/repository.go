package routing

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

type Repository interface {
	GetActiveRules(ctx context.Context) ([]Rule, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetActiveRules(ctx context.Context) ([]Rule, error) {
	query := `
		SELECT id, name, description, event_type, direction, target_tenants,
		       conditions, actions, enabled, priority, created_at, updated_at
		FROM routing_rules
		WHERE enabled = true
		ORDER BY priority DESC, created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return rules, nil
}

func scanRule(rows *sql.Rows) (Rule, error) {
	var rule Rule
	var conditionsJSON, actionsJSON []byte

	if err := rows.Scan(
		&rule.ID,
		&rule.Name,
		&rule.Description,
		&rule.EventType,
		&rule.Direction,
		pq.Array(&rule.TargetTenants),
		&conditionsJSON,
		&actionsJSON,
		&rule.Enabled,
		&rule.Priority,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	); err != nil {
		return Rule{}, fmt.Errorf("failed to scan rule: %w", err)
	}

	if len(conditionsJSON) > 0 {
		if err := json.Unmarshal(conditionsJSON, &rule.Conditions); err != nil {
			return Rule{}, fmt.Errorf("failed to decode conditions for rule %s: %w", rule.ID, err)
		}
	}
	if len(actionsJSON) > 0 {
		if err := json.Unmarshal(actionsJSON, &rule.Actions); err != nil {
			return Rule{}, fmt.Errorf("failed to decode actions for rule %s: %w", rule.ID, err)
		}
	}

	return rule, nil
}
