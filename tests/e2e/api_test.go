package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay/internal/management"
	"relay/internal/routing"
	"relay/internal/tenant"
)

const (
	managementServiceURL = "http://localhost:8084"
)

func TestManagementServiceHealth(t *testing.T) {
	url := fmt.Sprintf("%s/health", managementServiceURL)
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]interface{}
	err = json.NewDecoder(resp.Body).Decode(&health)
	require.NoError(t, err)
	assert.NotNil(t, health["status"])
}

func TestRoutingRulesCRUD(t *testing.T) {
	createReq := management.CreateRoutingRuleRequest{
		Name:      "e2e_routing_rule",
		EventType: "asset.sync.new",
		Priority:  10,
		Enabled:   boolPtr(true),
		Conditions: []routing.Condition{
			{Field: "status", Operator: routing.OpEquals, Value: "active"},
		},
		Actions: []routing.Action{
			{Type: routing.ActionRoute, Target: "routed_events"},
		},
	}

	ruleID := createRoutingRule(t, createReq)
	defer deleteRoutingRule(t, ruleID)

	rule := getRoutingRule(t, ruleID)
	assert.Equal(t, createReq.Name, rule.Name)
	assert.Equal(t, createReq.EventType, rule.EventType)
	assert.Equal(t, createReq.Priority, rule.Priority)
	assert.Equal(t, *createReq.Enabled, rule.Enabled)

	rules := listRoutingRules(t)
	assert.GreaterOrEqual(t, len(rules), 1)
	found := false
	for _, r := range rules {
		if r.ID == ruleID {
			found = true
			break
		}
	}
	assert.True(t, found, "created rule should be in the list")

	updateReq := management.UpdateRoutingRuleRequest{
		Name:     stringPtr("e2e_routing_rule_updated"),
		Priority: intPtr(20),
		Enabled:  boolPtr(false),
	}
	updatedRule := updateRoutingRule(t, ruleID, updateReq)
	assert.Equal(t, *updateReq.Name, updatedRule.Name)
	assert.Equal(t, *updateReq.Priority, updatedRule.Priority)
	assert.Equal(t, *updateReq.Enabled, updatedRule.Enabled)

	versions := getRuleVersions(t, ruleID)
	assert.GreaterOrEqual(t, len(versions), 1)

	auditLogs := getRuleAuditLogs(t, ruleID)
	assert.GreaterOrEqual(t, len(auditLogs), 1)
}

func TestTenantsCRUD(t *testing.T) {
	createReq := management.CreateTenantRequest{
		Name:        "e2e_tenant",
		EndpointURL: "https://tenant.example.com/hooks",
		Secret:      "e2e-secret",
		Enabled:     boolPtr(true),
	}

	tenantID := createTenantRecord(t, createReq)
	defer deleteTenantRecord(t, tenantID)

	record := getTenantRecord(t, tenantID)
	assert.Equal(t, createReq.Name, record.Name)
	assert.Equal(t, createReq.EndpointURL, record.EndpointURL)
	assert.Empty(t, record.Secret, "secret must never be returned by the API")
	assert.True(t, record.Enabled)

	updateReq := management.UpdateTenantRequest{
		Enabled: boolPtr(false),
	}
	updated := updateTenantRecord(t, tenantID, updateReq)
	assert.False(t, updated.Enabled)
}

func TestRoutingRules_ValidationErrors(t *testing.T) {
	// missing event_type must be rejected before anything is stored
	body, err := json.Marshal(map[string]interface{}{"name": "no_event_type"})
	require.NoError(t, err)

	resp, err := http.Post(
		fmt.Sprintf("%s/api/v1/rules/routing", managementServiceURL),
		"application/json",
		bytes.NewReader(body),
	)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func createRoutingRule(t *testing.T, req management.CreateRoutingRuleRequest) string {
	t.Helper()

	body, err := json.Marshal(req)
	require.NoError(t, err)

	resp, err := http.Post(
		fmt.Sprintf("%s/api/v1/rules/routing", managementServiceURL),
		"application/json",
		bytes.NewReader(body),
	)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var rule routing.Rule
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rule))
	require.NotEmpty(t, rule.ID)
	return rule.ID
}

func getRoutingRule(t *testing.T, id string) *routing.Rule {
	t.Helper()

	resp, err := http.Get(fmt.Sprintf("%s/api/v1/rules/routing/%s", managementServiceURL, id))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rule routing.Rule
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rule))
	return &rule
}

func listRoutingRules(t *testing.T) []routing.Rule {
	t.Helper()

	resp, err := http.Get(fmt.Sprintf("%s/api/v1/rules/routing", managementServiceURL))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rules []routing.Rule
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rules))
	return rules
}

func updateRoutingRule(t *testing.T, id string, req management.UpdateRoutingRuleRequest) *routing.Rule {
	t.Helper()

	body, err := json.Marshal(req)
	require.NoError(t, err)

	httpReq, err := http.NewRequest(http.MethodPut,
		fmt.Sprintf("%s/api/v1/rules/routing/%s", managementServiceURL, id),
		bytes.NewReader(body))
	require.NoError(t, err)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rule routing.Rule
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rule))
	return &rule
}

func deleteRoutingRule(t *testing.T, id string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodDelete,
		fmt.Sprintf("%s/api/v1/rules/routing/%s", managementServiceURL, id), nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
}

func getRuleVersions(t *testing.T, id string) []management.RuleVersion {
	t.Helper()

	resp, err := http.Get(fmt.Sprintf("%s/api/v1/rules/routing/%s/versions", managementServiceURL, id))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var versions []management.RuleVersion
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&versions))
	return versions
}

func getRuleAuditLogs(t *testing.T, id string) []management.AuditLog {
	t.Helper()

	resp, err := http.Get(fmt.Sprintf("%s/api/v1/rules/routing/%s/audit", managementServiceURL, id))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var logs []management.AuditLog
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&logs))
	return logs
}

func createTenantRecord(t *testing.T, req management.CreateTenantRequest) string {
	t.Helper()

	body, err := json.Marshal(req)
	require.NoError(t, err)

	resp, err := http.Post(
		fmt.Sprintf("%s/api/v1/tenants", managementServiceURL),
		"application/json",
		bytes.NewReader(body),
	)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var record tenant.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&record))
	require.NotEmpty(t, record.ID)
	return record.ID
}

func getTenantRecord(t *testing.T, id string) *tenant.Record {
	t.Helper()

	resp, err := http.Get(fmt.Sprintf("%s/api/v1/tenants/%s", managementServiceURL, id))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var record tenant.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&record))
	return &record
}

func updateTenantRecord(t *testing.T, id string, req management.UpdateTenantRequest) *tenant.Record {
	t.Helper()

	body, err := json.Marshal(req)
	require.NoError(t, err)

	httpReq, err := http.NewRequest(http.MethodPut,
		fmt.Sprintf("%s/api/v1/tenants/%s", managementServiceURL, id),
		bytes.NewReader(body))
	require.NoError(t, err)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var record tenant.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&record))
	return &record
}

func deleteTenantRecord(t *testing.T, id string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodDelete,
		fmt.Sprintf("%s/api/v1/tenants/%s", managementServiceURL, id), nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
}

func boolPtr(b bool) *bool       { return &b }
func stringPtr(s string) *string { return &s }
func intPtr(i int) *int          { return &i }
