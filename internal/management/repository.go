package management

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"relay/internal/routing"
	pkgerrors "relay/pkg/errors"
)

type Repository interface {
	CreateRoutingRule(ctx context.Context, rule *routing.Rule) error
	ListRoutingRules(ctx context.Context) ([]routing.Rule, error)
	GetRoutingRule(ctx context.Context, id string) (*routing.Rule, error)
	UpdateRoutingRule(ctx context.Context, rule *routing.Rule) error
	DeleteRoutingRule(ctx context.Context, id string) error
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateRoutingRule(ctx context.Context, rule *routing.Rule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	conditionsJSON, actionsJSON, err := marshalRuleJSON(rule)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO routing_rules (id, name, description, event_type, direction, target_tenants, conditions, actions, enabled, priority, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID, rule.Name, rule.Description, rule.EventType, rule.Direction,
		pq.Array(rule.TargetTenants), conditionsJSON, actionsJSON,
		rule.Enabled, rule.Priority, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" {
				return pkgerrors.ErrConflict.WithCause(err).WithDetail("message", fmt.Sprintf("rule with name '%s' already exists", rule.Name))
			}
		}
		if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "unique constraint") {
			return pkgerrors.ErrConflict.WithCause(err).WithDetail("message", fmt.Sprintf("rule with name '%s' already exists", rule.Name))
		}
		return fmt.Errorf("failed to create rule: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetRoutingRule(ctx context.Context, id string) (*routing.Rule, error) {
	query := `
		SELECT id, name, description, event_type, direction, target_tenants, conditions, actions, enabled, priority, created_at, updated_at
		FROM routing_rules
		WHERE id = $1
	`

	rule, err := scanRoutingRule(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return rule, nil
}

func (r *PostgresRepository) ListRoutingRules(ctx context.Context) ([]routing.Rule, error) {
	query := `
		SELECT id, name, description, event_type, direction, target_tenants, conditions, actions, enabled, priority, created_at, updated_at
		FROM routing_rules
		ORDER BY priority DESC, created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []routing.Rule
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		rule, err := scanRoutingRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, *rule)
	}

	return rules, nil
}

func (r *PostgresRepository) UpdateRoutingRule(ctx context.Context, rule *routing.Rule) error {
	rule.UpdatedAt = time.Now()

	conditionsJSON, actionsJSON, err := marshalRuleJSON(rule)
	if err != nil {
		return err
	}

	query := `
		UPDATE routing_rules
		SET name = $1, description = $2, event_type = $3, direction = $4, target_tenants = $5,
		    conditions = $6, actions = $7, enabled = $8, priority = $9, updated_at = $10
		WHERE id = $11
	`

	res, err := r.db.ExecContext(ctx, query,
		rule.Name, rule.Description, rule.EventType, rule.Direction,
		pq.Array(rule.TargetTenants), conditionsJSON, actionsJSON,
		rule.Enabled, rule.Priority, rule.UpdatedAt, rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("rule not found")
	}

	return nil
}

func (r *PostgresRepository) DeleteRoutingRule(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM routing_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("rule not found")
	}

	return nil
}

func marshalRuleJSON(rule *routing.Rule) ([]byte, []byte, error) {
	conditionsJSON, err := json.Marshal(rule.Conditions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal conditions: %w", err)
	}
	actionsJSON, err := json.Marshal(rule.Actions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal actions: %w", err)
	}
	return conditionsJSON, actionsJSON, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRoutingRule(row rowScanner) (*routing.Rule, error) {
	var rule routing.Rule
	var conditionsJSON, actionsJSON []byte

	if err := row.Scan(
		&rule.ID, &rule.Name, &rule.Description, &rule.EventType, &rule.Direction,
		pq.Array(&rule.TargetTenants), &conditionsJSON, &actionsJSON,
		&rule.Enabled, &rule.Priority, &rule.CreatedAt, &rule.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(conditionsJSON) > 0 {
		if err := json.Unmarshal(conditionsJSON, &rule.Conditions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal conditions: %w", err)
		}
	}
	if len(actionsJSON) > 0 {
		if err := json.Unmarshal(actionsJSON, &rule.Actions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
		}
	}

	return &rule, nil
}
