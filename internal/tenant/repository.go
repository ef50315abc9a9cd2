package tenant

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Resolver looks up a tenant by id. A nil record with a nil error means the
// tenant does not exist; callers decide whether that is skippable.
type Resolver interface {
	GetTenant(ctx context.Context, id string) (*Record, error)
}

type Repository interface {
	Resolver
	CreateTenant(ctx context.Context, record *Record) error
	ListTenants(ctx context.Context) ([]Record, error)
	UpdateTenant(ctx context.Context, record *Record) error
	DeleteTenant(ctx context.Context, id string) error
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

const tenantColumns = `id, name, endpoint_url, secret, enabled, created_at, updated_at`

func (r *PostgresRepository) GetTenant(ctx context.Context, id string) (*Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE id = $1`, tenantColumns)

	var record Record
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&record.ID,
		&record.Name,
		&record.EndpointURL,
		&record.Secret,
		&record.Enabled,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	return &record, nil
}

func (r *PostgresRepository) ListTenants(ctx context.Context) ([]Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants ORDER BY created_at ASC`, tenantColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var record Record
		if err := rows.Scan(
			&record.ID,
			&record.Name,
			&record.EndpointURL,
			&record.Secret,
			&record.Enabled,
			&record.CreatedAt,
			&record.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tenants: %w", err)
	}

	return records, nil
}

func (r *PostgresRepository) CreateTenant(ctx context.Context, record *Record) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now

	query := `INSERT INTO tenants (id, name, endpoint_url, secret, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.Name,
		record.EndpointURL,
		record.Secret,
		record.Enabled,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateTenant(ctx context.Context, record *Record) error {
	record.UpdatedAt = time.Now()

	query := `UPDATE tenants
		SET name = $2, endpoint_url = $3, secret = $4, enabled = $5, updated_at = $6
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.Name,
		record.EndpointURL,
		record.Secret,
		record.Enabled,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("tenant not found")
	}
	return nil
}

func (r *PostgresRepository) DeleteTenant(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("tenant not found")
	}
	return nil
}
