package integration

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay/internal/management"
	"relay/internal/routing"
	pkgerrors "relay/pkg/errors"
)

func newManagementService(t *testing.T, infra *TestInfra) management.Service {
	t.Helper()
	repo := management.NewRepository(infra.PostgresDB)
	return management.NewService(repo,
		management.WithVersioning(management.NewVersioningRepository(infra.PostgresDB)),
	)
}

func TestManagementService_CreateRoutingRule_WritesVersionAndAudit(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	svc := newManagementService(t, infra)
	ctx := context.Background()

	rule, err := svc.CreateRoutingRule(ctx, management.CreateRoutingRuleRequest{
		Name:      "versioned_rule",
		EventType: "asset.sync.new",
		Actions:   []routing.Action{{Type: routing.ActionRoute, Target: "routed_events"}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, rule.ID)

	versions, err := svc.GetRuleVersions(ctx, rule.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, 1, versions[0].Version)
	assert.Equal(t, "routing", versions[0].RuleType)

	logs, err := svc.GetAuditLogs(ctx, &rule.ID, "routing", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "create", logs[0].Action)
}

func TestManagementService_UpdateRoutingRule_IncrementsVersion(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	svc := newManagementService(t, infra)
	ctx := context.Background()

	rule, err := svc.CreateRoutingRule(ctx, management.CreateRoutingRuleRequest{
		Name:      "rule_to_update",
		EventType: "asset.sync.new",
	})
	require.NoError(t, err)

	newName := "renamed_rule"
	updated, err := svc.UpdateRoutingRule(ctx, rule.ID, management.UpdateRoutingRuleRequest{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "renamed_rule", updated.Name)

	versions, err := svc.GetRuleVersions(ctx, rule.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].Version)
}

func TestManagementService_UpdateRoutingRule_NotFound(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	svc := newManagementService(t, infra)
	ctx := context.Background()

	name := "whatever"
	_, err := svc.UpdateRoutingRule(ctx, "00000000-0000-0000-0000-000000000000", management.UpdateRoutingRuleRequest{Name: &name})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrNotFound))
}

func TestManagementService_DeleteRoutingRule_AuditsDelete(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	svc := newManagementService(t, infra)
	ctx := context.Background()

	rule, err := svc.CreateRoutingRule(ctx, management.CreateRoutingRuleRequest{
		Name:      "rule_to_delete",
		EventType: "asset.sync.new",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRoutingRule(ctx, rule.ID))

	_, err = svc.GetRoutingRule(ctx, rule.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrNotFound))

	logs, err := svc.GetAuditLogs(ctx, &rule.ID, "routing", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "delete", logs[0].Action)
}

func TestManagementService_ImportExportRoundTrip(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	svc := newManagementService(t, infra)
	ctx := context.Background()

	payload := []routing.Rule{
		{Name: "imported_a", EventType: "asset.sync.new", Priority: 10},
		{Name: "imported_b", EventType: "asset.sync.update", Priority: 5},
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	imported, err := svc.ImportRoutingRules(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, 2, imported)

	exported, err := svc.ExportRoutingRules(ctx)
	require.NoError(t, err)

	var exportedRules []routing.Rule
	require.NoError(t, json.Unmarshal(exported, &exportedRules))
	assert.Len(t, exportedRules, 2)
}

func TestManagementService_ImportRoutingRules_RejectsBatchOnInvalidRule(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	svc := newManagementService(t, infra)
	ctx := context.Background()

	payload := []routing.Rule{
		{Name: "valid", EventType: "asset.sync.new"},
		{Name: "", EventType: "asset.sync.new"},
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	imported, err := svc.ImportRoutingRules(ctx, data)
	require.Error(t, err)
	assert.Equal(t, 0, imported)

	rules, err := svc.ListRoutingRules(ctx)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestManagementService_CreateRoutingRule_UnknownEventType(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	repo := management.NewRepository(infra.PostgresDB)
	svc := management.NewService(repo,
		management.WithEventTypeValidator(func(code string) bool { return code == "asset.sync.new" }),
	)
	ctx := context.Background()

	_, err := svc.CreateRoutingRule(ctx, management.CreateRoutingRuleRequest{
		Name:      "bad_event_type",
		EventType: "bogus.event",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrValidation))
}
