package management

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"relay/internal/constants"
	"relay/internal/routing"
	"relay/internal/tenant"
	pkgerrors "relay/pkg/errors"
	"relay/pkg/models"
)

type service struct {
	repo                Repository
	tenantRepo          tenant.Repository
	schemaRepo          SchemaRepository
	versioningRepo      VersioningRepository
	configEventProducer *ConfigEventProducer
	eventTypeValidator  routing.EventTypeValidator
	auditEnabled        bool
}

type ServiceOption func(*service)

func WithVersioning(versioningRepo VersioningRepository) ServiceOption {
	return func(s *service) {
		s.versioningRepo = versioningRepo
		s.auditEnabled = true
	}
}

func WithTenants(tenantRepo tenant.Repository) ServiceOption {
	return func(s *service) {
		s.tenantRepo = tenantRepo
	}
}

func WithSchemas(schemaRepo SchemaRepository) ServiceOption {
	return func(s *service) {
		s.schemaRepo = schemaRepo
	}
}

func WithConfigEvents(configEventProducer *ConfigEventProducer) ServiceOption {
	return func(s *service) {
		s.configEventProducer = configEventProducer
	}
}

func WithEventTypeValidator(validator routing.EventTypeValidator) ServiceOption {
	return func(s *service) {
		s.eventTypeValidator = validator
	}
}

func NewService(repo Repository, opts ...ServiceOption) Service {
	s := &service{
		repo:         repo,
		auditEnabled: false,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.versioningRepo != nil {
		s.auditEnabled = true
	}

	return s
}

func (s *service) CreateRoutingRule(ctx context.Context, req CreateRoutingRuleRequest) (*routing.Rule, error) {
	if err := ValidateRoutingRule(req); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}
	if err := s.checkEventType(req.EventType); err != nil {
		return nil, err
	}

	direction := req.Direction
	if direction == "" {
		direction = routing.DirectionBoth
	}

	rule := &routing.Rule{
		Name:          req.Name,
		Description:   req.Description,
		EventType:     req.EventType,
		Direction:     direction,
		TargetTenants: req.TargetTenants,
		Conditions:    req.Conditions,
		Actions:       req.Actions,
		Priority:      req.Priority,
		Enabled:       getEnabledValue(req.Enabled),
	}

	if err := s.repo.CreateRoutingRule(ctx, rule); err != nil {
		if pkgerrors.Is(err, pkgerrors.ErrConflict) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.createVersionAndAudit(ctx, rule, "create", nil)
	s.publishRuleEvent(ctx, models.ActionCreate, rule.ID)

	return rule, nil
}

func (s *service) ListRoutingRules(ctx context.Context) ([]routing.Rule, error) {
	rules, err := s.repo.ListRoutingRules(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return rules, nil
}

func (s *service) GetRoutingRule(ctx context.Context, id string) (*routing.Rule, error) {
	rule, err := s.repo.GetRoutingRule(ctx, id)
	if err != nil {
		return nil, s.handleNotFoundError(err, id)
	}
	if rule == nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return rule, nil
}

func (s *service) UpdateRoutingRule(ctx context.Context, id string, req UpdateRoutingRuleRequest) (*routing.Rule, error) {
	if err := ValidateUpdateRoutingRule(req); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}
	if req.EventType != nil {
		if err := s.checkEventType(*req.EventType); err != nil {
			return nil, err
		}
	}

	rule, err := s.repo.GetRoutingRule(ctx, id)
	if err != nil {
		return nil, s.handleNotFoundError(err, id)
	}
	if rule == nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}

	oldValue, _ := s.ruleToMap(rule)
	s.updateRoutingRuleFields(rule, req)

	if err := s.repo.UpdateRoutingRule(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.createVersionAndAudit(ctx, rule, "update", oldValue)
	s.publishRuleEvent(ctx, models.ActionUpdate, rule.ID)

	return rule, nil
}

func (s *service) DeleteRoutingRule(ctx context.Context, id string) error {
	rule, err := s.repo.GetRoutingRule(ctx, id)
	if err != nil {
		return s.handleNotFoundError(err, id)
	}
	if rule == nil {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}

	oldValue, _ := s.ruleToMap(rule)

	if err := s.repo.DeleteRoutingRule(ctx, id); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	if s.auditEnabled && s.versioningRepo != nil {
		auditLog := s.buildAuditLog(id, "routing", "delete", oldValue, nil, getChangedBy(ctx))
		_ = s.versioningRepo.CreateAuditLog(ctx, auditLog)
	}

	s.publishRuleEvent(ctx, models.ActionDelete, id)
	return nil
}

// ImportRoutingRules validates the whole batch before touching the database:
// either every rule is imported or none is.
func (s *service) ImportRoutingRules(ctx context.Context, data []byte) (int, error) {
	var rules []routing.Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return 0, pkgerrors.ErrValidation.WithCause(err).WithDetail("message", "import payload must be a JSON array of rules")
	}

	for i, rule := range rules {
		req := CreateRoutingRuleRequest{
			Name:          rule.Name,
			Description:   rule.Description,
			EventType:     rule.EventType,
			Direction:     rule.Direction,
			TargetTenants: rule.TargetTenants,
			Conditions:    rule.Conditions,
			Actions:       rule.Actions,
			Priority:      rule.Priority,
		}
		if err := ValidateRoutingRule(req); err != nil {
			return 0, pkgerrors.ErrValidation.WithCause(err).WithDetail("message", fmt.Sprintf("rule[%d]: %v", i, err))
		}
		if err := s.checkEventType(rule.EventType); err != nil {
			return 0, err
		}
	}

	imported := 0
	for i := range rules {
		rule := rules[i]
		if err := s.repo.CreateRoutingRule(ctx, &rule); err != nil {
			return imported, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
		}
		imported++
	}

	s.publishRuleEvent(ctx, models.ActionImport, "")
	return imported, nil
}

func (s *service) ExportRoutingRules(ctx context.Context) ([]byte, error) {
	rules, err := s.repo.ListRoutingRules(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	if rules == nil {
		rules = []routing.Rule{}
	}
	return json.MarshalIndent(rules, "", "  ")
}

func (s *service) GetRuleVersions(ctx context.Context, ruleID string) ([]RuleVersion, error) {
	if s.versioningRepo == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "versioning not enabled")
	}
	versions, err := s.versioningRepo.GetVersions(ctx, ruleID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return versions, nil
}

func (s *service) GetAuditLogs(ctx context.Context, ruleID *string, ruleType string, limit int) ([]AuditLog, error) {
	if s.versioningRepo == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "audit logging not enabled")
	}
	if limit <= 0 || limit > constants.MaxLimit {
		limit = constants.DefaultLimit
	}
	logs, err := s.versioningRepo.GetAuditLogs(ctx, ruleID, ruleType, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return logs, nil
}

func (s *service) CreateTenant(ctx context.Context, req CreateTenantRequest) (*tenant.Record, error) {
	if s.tenantRepo == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "tenant repository not configured")
	}
	if err := ValidateTenant(req); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	record := &tenant.Record{
		Name:        req.Name,
		EndpointURL: req.EndpointURL,
		Secret:      req.Secret,
		Enabled:     getEnabledValue(req.Enabled),
	}

	if err := s.tenantRepo.CreateTenant(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	if s.configEventProducer != nil {
		_ = s.configEventProducer.PublishTenantEvent(ctx, models.ActionCreate, record.ID, getChangedBy(ctx))
	}

	return record, nil
}

func (s *service) ListTenants(ctx context.Context) ([]tenant.Record, error) {
	if s.tenantRepo == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "tenant repository not configured")
	}
	records, err := s.tenantRepo.ListTenants(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return records, nil
}

func (s *service) GetTenant(ctx context.Context, id string) (*tenant.Record, error) {
	if s.tenantRepo == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "tenant repository not configured")
	}
	record, err := s.tenantRepo.GetTenant(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	if record == nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return record, nil
}

func (s *service) UpdateTenant(ctx context.Context, id string, req UpdateTenantRequest) (*tenant.Record, error) {
	if s.tenantRepo == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "tenant repository not configured")
	}
	if err := ValidateUpdateTenant(req); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	record, err := s.tenantRepo.GetTenant(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	if record == nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}

	if req.Name != nil {
		record.Name = *req.Name
	}
	if req.EndpointURL != nil {
		record.EndpointURL = *req.EndpointURL
	}
	if req.Secret != nil {
		record.Secret = *req.Secret
	}
	if req.Enabled != nil {
		record.Enabled = *req.Enabled
	}

	if err := s.tenantRepo.UpdateTenant(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	if s.configEventProducer != nil {
		_ = s.configEventProducer.PublishTenantEvent(ctx, models.ActionUpdate, record.ID, getChangedBy(ctx))
	}

	return record, nil
}

func (s *service) DeleteTenant(ctx context.Context, id string) error {
	if s.tenantRepo == nil {
		return pkgerrors.ErrInternal.WithDetail("message", "tenant repository not configured")
	}

	record, err := s.tenantRepo.GetTenant(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	if record == nil {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}

	if err := s.tenantRepo.DeleteTenant(ctx, id); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	if s.configEventProducer != nil {
		_ = s.configEventProducer.PublishTenantEvent(ctx, models.ActionDelete, id, getChangedBy(ctx))
	}

	return nil
}

func (s *service) CreateEventSchema(ctx context.Context, req CreateEventSchemaRequest) (*models.EventSchema, error) {
	if s.schemaRepo == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "schema repository not configured")
	}
	if err := ValidateEventSchema(req); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	schema := &models.EventSchema{
		Code:            req.Code,
		Description:     req.Description,
		RequiredFields:  req.RequiredFields,
		InjectedObjects: req.InjectedObjects,
		SecretHeader:    req.SecretHeader,
		SignedPayload:   req.SignedPayload,
	}

	if err := s.schemaRepo.CreateEventSchema(ctx, schema); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil, pkgerrors.ErrConflict.WithCause(err).WithDetail("code", req.Code)
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	if s.configEventProducer != nil {
		_ = s.configEventProducer.PublishEventSchemaEvent(ctx, models.ActionCreate, schema.Code, getChangedBy(ctx))
	}

	return schema, nil
}

func (s *service) ListEventSchemas(ctx context.Context) ([]models.EventSchema, error) {
	if s.schemaRepo == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "schema repository not configured")
	}
	schemas, err := s.schemaRepo.ListEventSchemas(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return schemas, nil
}

func (s *service) GetEventSchema(ctx context.Context, code string) (*models.EventSchema, error) {
	if s.schemaRepo == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "schema repository not configured")
	}
	schema, err := s.schemaRepo.GetEventSchema(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	if schema == nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("code", code)
	}
	return schema, nil
}

func (s *service) UpdateEventSchema(ctx context.Context, code string, req UpdateEventSchemaRequest) (*models.EventSchema, error) {
	if s.schemaRepo == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "schema repository not configured")
	}

	schema, err := s.schemaRepo.GetEventSchema(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	if schema == nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("code", code)
	}

	if req.Description != nil {
		schema.Description = *req.Description
	}
	if req.RequiredFields != nil {
		schema.RequiredFields = *req.RequiredFields
	}
	if req.InjectedObjects != nil {
		schema.InjectedObjects = *req.InjectedObjects
	}
	if req.SecretHeader != nil {
		schema.SecretHeader = *req.SecretHeader
	}
	if req.SignedPayload != nil {
		schema.SignedPayload = *req.SignedPayload
	}

	if err := s.schemaRepo.UpdateEventSchema(ctx, schema); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	if s.configEventProducer != nil {
		_ = s.configEventProducer.PublishEventSchemaEvent(ctx, models.ActionUpdate, schema.Code, getChangedBy(ctx))
	}

	return schema, nil
}

func (s *service) DeleteEventSchema(ctx context.Context, code string) error {
	if s.schemaRepo == nil {
		return pkgerrors.ErrInternal.WithDetail("message", "schema repository not configured")
	}

	schema, err := s.schemaRepo.GetEventSchema(ctx, code)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	if schema == nil {
		return pkgerrors.ErrNotFound.WithDetail("code", code)
	}

	if err := s.schemaRepo.DeleteEventSchema(ctx, code); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	if s.configEventProducer != nil {
		_ = s.configEventProducer.PublishEventSchemaEvent(ctx, models.ActionDelete, code, getChangedBy(ctx))
	}

	return nil
}

func (s *service) checkEventType(eventType string) error {
	if s.eventTypeValidator != nil && !s.eventTypeValidator(eventType) {
		return pkgerrors.ErrValidation.WithDetail("message", fmt.Sprintf("unknown event type: %s", eventType))
	}
	return nil
}

func (s *service) handleNotFoundError(err error, id string) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "not found") {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
}

func (s *service) createVersionAndAudit(ctx context.Context, rule *routing.Rule, action string, oldValue map[string]interface{}) {
	if !s.auditEnabled || s.versioningRepo == nil {
		return
	}

	ruleJSON, err := ruleToJSON(rule)
	if err != nil {
		return
	}

	version := s.buildVersion(ctx, rule, ruleJSON)
	if err := s.versioningRepo.CreateVersion(ctx, version); err != nil {
		return
	}

	newValue, err := s.ruleToMap(rule)
	if err != nil {
		return
	}

	auditLog := s.buildAuditLog(rule.ID, "routing", action, oldValue, newValue, getChangedBy(ctx))
	_ = s.versioningRepo.CreateAuditLog(ctx, auditLog)
}

func (s *service) buildVersion(ctx context.Context, rule *routing.Rule, ruleJSON string) *RuleVersion {
	version := 1
	if s.versioningRepo != nil {
		if nextVersion, err := s.versioningRepo.GetNextVersion(ctx, rule.ID); err == nil {
			version = nextVersion
		}
	}

	return &RuleVersion{
		RuleID:    rule.ID,
		RuleType:  "routing",
		RuleData:  ruleJSON,
		Version:   version,
		ChangedBy: getChangedBy(ctx),
	}
}

func (s *service) buildAuditLog(ruleID, ruleType, action string, oldValue, newValue map[string]interface{}, changedBy string) *AuditLog {
	return &AuditLog{
		RuleID:    &ruleID,
		RuleType:  ruleType,
		Action:    action,
		OldValue:  oldValue,
		NewValue:  newValue,
		ChangedBy: changedBy,
	}
}

func (s *service) ruleToMap(rule *routing.Rule) (map[string]interface{}, error) {
	ruleData, err := json.Marshal(rule)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	if err := json.Unmarshal(ruleData, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) publishRuleEvent(ctx context.Context, action, ruleID string) {
	if s.configEventProducer != nil {
		_ = s.configEventProducer.PublishRoutingRuleEvent(ctx, action, ruleID, getChangedBy(ctx))
	}
}

func (s *service) updateRoutingRuleFields(rule *routing.Rule, req UpdateRoutingRuleRequest) {
	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Description != nil {
		rule.Description = *req.Description
	}
	if req.EventType != nil {
		rule.EventType = *req.EventType
	}
	if req.Direction != nil {
		rule.Direction = *req.Direction
	}
	if req.TargetTenants != nil {
		rule.TargetTenants = *req.TargetTenants
	}
	if req.Conditions != nil {
		rule.Conditions = *req.Conditions
	}
	if req.Actions != nil {
		rule.Actions = *req.Actions
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
}

func getEnabledValue(reqEnabled *bool) bool {
	if reqEnabled == nil {
		return true
	}
	return *reqEnabled
}

func getChangedBy(ctx context.Context) string {
	if userID := ctx.Value("user_id"); userID != nil {
		if id, ok := userID.(string); ok {
			return id
		}
	}
	return "system"
}
