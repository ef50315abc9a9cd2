package management

import (
	"context"

	"relay/internal/routing"
	"relay/internal/tenant"
	"relay/pkg/models"
)

type Service interface {
	CreateRoutingRule(ctx context.Context, req CreateRoutingRuleRequest) (*routing.Rule, error)
	ListRoutingRules(ctx context.Context) ([]routing.Rule, error)
	GetRoutingRule(ctx context.Context, id string) (*routing.Rule, error)
	UpdateRoutingRule(ctx context.Context, id string, req UpdateRoutingRuleRequest) (*routing.Rule, error)
	DeleteRoutingRule(ctx context.Context, id string) error
	ImportRoutingRules(ctx context.Context, data []byte) (int, error)
	ExportRoutingRules(ctx context.Context) ([]byte, error)
	GetRuleVersions(ctx context.Context, ruleID string) ([]RuleVersion, error)
	GetAuditLogs(ctx context.Context, ruleID *string, ruleType string, limit int) ([]AuditLog, error)

	CreateTenant(ctx context.Context, req CreateTenantRequest) (*tenant.Record, error)
	ListTenants(ctx context.Context) ([]tenant.Record, error)
	GetTenant(ctx context.Context, id string) (*tenant.Record, error)
	UpdateTenant(ctx context.Context, id string, req UpdateTenantRequest) (*tenant.Record, error)
	DeleteTenant(ctx context.Context, id string) error

	CreateEventSchema(ctx context.Context, req CreateEventSchemaRequest) (*models.EventSchema, error)
	ListEventSchemas(ctx context.Context) ([]models.EventSchema, error)
	GetEventSchema(ctx context.Context, code string) (*models.EventSchema, error)
	UpdateEventSchema(ctx context.Context, code string, req UpdateEventSchemaRequest) (*models.EventSchema, error)
	DeleteEventSchema(ctx context.Context, code string) error
}
