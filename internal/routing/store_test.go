package routing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AddRule(t *testing.T) {
	store := NewStore()

	rule, err := store.AddRule(Rule{
		Name:      "active-assets",
		EventType: "asset.changed",
		Direction: DirectionBoth,
		Enabled:   true,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, rule.ID)
	assert.False(t, rule.CreatedAt.IsZero())
	assert.False(t, rule.UpdatedAt.IsZero())
	assert.Equal(t, 1, store.Len())

	got, ok := store.GetRule(rule.ID)
	require.True(t, ok)
	assert.Equal(t, "active-assets", got.Name)
}

func TestStore_AddRule_RequiresEventType(t *testing.T) {
	store := NewStore()

	_, err := store.AddRule(Rule{Name: "no-type"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event type is required")
	assert.Equal(t, 0, store.Len())
}

func TestStore_AddRule_EventTypeValidator(t *testing.T) {
	store := NewStore(WithEventTypeValidator(func(eventType string) bool {
		return eventType == "asset.changed"
	}))

	_, err := store.AddRule(Rule{Name: "known", EventType: "asset.changed"})
	require.NoError(t, err)

	_, err = store.AddRule(Rule{Name: "unknown", EventType: "user.created"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")
	assert.Equal(t, 1, store.Len())
}

func TestStore_ListRules_PriorityOrder(t *testing.T) {
	store := NewStore()

	for _, r := range []Rule{
		{Name: "low", EventType: "asset.changed", Priority: 10},
		{Name: "high", EventType: "asset.changed", Priority: 90},
		{Name: "mid", EventType: "asset.changed", Priority: 50},
	} {
		_, err := store.AddRule(r)
		require.NoError(t, err)
	}

	rules := store.ListRules()
	require.Len(t, rules, 3)
	assert.Equal(t, "high", rules[0].Name)
	assert.Equal(t, "mid", rules[1].Name)
	assert.Equal(t, "low", rules[2].Name)
}

func TestStore_DeleteRule(t *testing.T) {
	store := NewStore()

	rule, err := store.AddRule(Rule{Name: "to-delete", EventType: "asset.changed"})
	require.NoError(t, err)

	assert.True(t, store.DeleteRule(rule.ID))
	assert.False(t, store.DeleteRule(rule.ID))
	assert.Equal(t, 0, store.Len())
}

func TestStore_UpdateRuleTenants(t *testing.T) {
	store := NewStore()

	rule, err := store.AddRule(Rule{Name: "scoped", EventType: "asset.changed"})
	require.NoError(t, err)

	require.NoError(t, store.UpdateRuleTenants(rule.ID, []string{"tenant-1", "tenant-2"}))

	got, ok := store.GetRule(rule.ID)
	require.True(t, ok)
	assert.Equal(t, []string{"tenant-1", "tenant-2"}, got.TargetTenants)

	err = store.UpdateRuleTenants("missing-id", nil)
	assert.Error(t, err)
}

func TestStore_UpdateRuleDirection(t *testing.T) {
	store := NewStore()

	rule, err := store.AddRule(Rule{Name: "directional", EventType: "asset.changed", Direction: DirectionBoth})
	require.NoError(t, err)

	require.NoError(t, store.UpdateRuleDirection(rule.ID, DirectionEmit))

	got, _ := store.GetRule(rule.ID)
	assert.Equal(t, DirectionEmit, got.Direction)

	err = store.UpdateRuleDirection(rule.ID, Direction("SIDEWAYS"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid direction")
}

func TestStore_ReplaceAll(t *testing.T) {
	store := NewStore()

	_, err := store.AddRule(Rule{Name: "old", EventType: "asset.changed"})
	require.NoError(t, err)

	store.ReplaceAll([]Rule{
		{ID: "r1", Name: "new-1", EventType: "asset.changed", Enabled: true},
		{ID: "r2", Name: "new-2", EventType: "asset.deleted", Enabled: true},
	})

	assert.Equal(t, 2, store.Len())
	_, ok := store.GetRule("r1")
	assert.True(t, ok)
}

func TestStore_GetRulesForEventType(t *testing.T) {
	store := NewStore()
	store.ReplaceAll([]Rule{
		{ID: "consume", EventType: "asset.changed", Direction: DirectionConsume, Enabled: true, Priority: 10},
		{ID: "emit", EventType: "asset.changed", Direction: DirectionEmit, Enabled: true, Priority: 20},
		{ID: "both", EventType: "asset.changed", Direction: DirectionBoth, Enabled: true, Priority: 30},
		{ID: "disabled", EventType: "asset.changed", Direction: DirectionBoth, Enabled: false, Priority: 99},
		{ID: "other-type", EventType: "asset.deleted", Direction: DirectionBoth, Enabled: true, Priority: 40},
		{ID: "scoped", EventType: "asset.changed", Direction: DirectionBoth, Enabled: true, Priority: 50, TargetTenants: []string{"tenant-1"}},
	})

	t.Run("filters by direction", func(t *testing.T) {
		rules := store.GetRulesForEventType("asset.changed", DirectionConsume, "")
		ids := ruleIDs(rules)
		assert.ElementsMatch(t, []string{"consume", "both", "scoped"}, ids)
	})

	t.Run("direction both matches either request", func(t *testing.T) {
		rules := store.GetRulesForEventType("asset.changed", DirectionEmit, "")
		ids := ruleIDs(rules)
		assert.Contains(t, ids, "both")
		assert.Contains(t, ids, "emit")
		assert.NotContains(t, ids, "consume")
	})

	t.Run("skips disabled and other event types", func(t *testing.T) {
		rules := store.GetRulesForEventType("asset.changed", "", "")
		ids := ruleIDs(rules)
		assert.NotContains(t, ids, "disabled")
		assert.NotContains(t, ids, "other-type")
	})

	t.Run("tenant scoping", func(t *testing.T) {
		rules := store.GetRulesForEventType("asset.changed", "", "tenant-2")
		assert.NotContains(t, ruleIDs(rules), "scoped")

		rules = store.GetRulesForEventType("asset.changed", "", "tenant-1")
		assert.Contains(t, ruleIDs(rules), "scoped")
	})

	t.Run("empty target tenants matches any tenant", func(t *testing.T) {
		rules := store.GetRulesForEventType("asset.changed", "", "tenant-2")
		assert.Contains(t, ruleIDs(rules), "both")
	})

	t.Run("priority descending", func(t *testing.T) {
		rules := store.GetRulesForEventType("asset.changed", "", "tenant-1")
		for i := 1; i < len(rules); i++ {
			assert.GreaterOrEqual(t, rules[i-1].Priority, rules[i].Priority)
		}
	})
}

func TestStore_EvaluateRules(t *testing.T) {
	store := NewStore()
	store.ReplaceAll([]Rule{
		{
			ID: "matching", EventType: "asset.changed", Direction: DirectionBoth, Enabled: true, Priority: 50,
			Conditions: []Condition{{Field: "status", Operator: OpEquals, Value: "active"}},
			Actions:    []Action{{Type: ActionRoute, Target: "routed_events"}},
		},
		{
			ID: "non-matching", EventType: "asset.changed", Direction: DirectionBoth, Enabled: true, Priority: 40,
			Conditions: []Condition{{Field: "status", Operator: OpEquals, Value: "deleted"}},
			Actions:    []Action{{Type: ActionFilter}},
		},
	})

	results := store.EvaluateRules("asset.changed", map[string]interface{}{"status": "active"}, DirectionConsume, "")
	require.Len(t, results, 2)

	assert.Equal(t, "matching", results[0].RuleID)
	assert.True(t, results[0].Matched)
	require.Len(t, results[0].Actions, 1)
	assert.Equal(t, ActionRoute, results[0].Actions[0].Type)

	assert.Equal(t, "non-matching", results[1].RuleID)
	assert.False(t, results[1].Matched)
	assert.Empty(t, results[1].Actions)
}

func TestStore_EvaluateRules_ShortCircuit(t *testing.T) {
	store := NewStore()
	store.ReplaceAll([]Rule{
		{ID: "firewall", EventType: "asset.changed", Direction: DirectionBoth, Enabled: true, Priority: ShortCircuitPriority},
		{ID: "shadowed", EventType: "asset.changed", Direction: DirectionBoth, Enabled: true, Priority: 10},
	})

	results := store.EvaluateRules("asset.changed", map[string]interface{}{}, "", "")
	require.Len(t, results, 1)
	assert.Equal(t, "firewall", results[0].RuleID)
	assert.True(t, results[0].Matched)
}

func TestStore_EvaluateRules_NoShortCircuitBelowThreshold(t *testing.T) {
	store := NewStore()
	store.ReplaceAll([]Rule{
		{ID: "first", EventType: "asset.changed", Direction: DirectionBoth, Enabled: true, Priority: ShortCircuitPriority - 1},
		{ID: "second", EventType: "asset.changed", Direction: DirectionBoth, Enabled: true, Priority: 10},
	})

	results := store.EvaluateRules("asset.changed", map[string]interface{}{}, "", "")
	assert.Len(t, results, 2)
}

func TestStore_EvaluateRules_UnmatchedHighPriorityContinues(t *testing.T) {
	store := NewStore()
	store.ReplaceAll([]Rule{
		{
			ID: "high-no-match", EventType: "asset.changed", Direction: DirectionBoth, Enabled: true, Priority: 150,
			Conditions: []Condition{{Field: "status", Operator: OpEquals, Value: "deleted"}},
		},
		{ID: "fallthrough", EventType: "asset.changed", Direction: DirectionBoth, Enabled: true, Priority: 10},
	})

	results := store.EvaluateRules("asset.changed", map[string]interface{}{"status": "active"}, "", "")
	require.Len(t, results, 2)
	assert.False(t, results[0].Matched)
	assert.True(t, results[1].Matched)
}

func TestStore_ImportExportRules(t *testing.T) {
	store := NewStore()

	payload := []byte(`[
		{"id": "r1", "name": "imported-1", "event_type": "asset.changed", "direction": "BOTH", "enabled": true, "priority": 10},
		{"name": "imported-2", "event_type": "asset.deleted", "direction": "EMIT", "enabled": true, "priority": 20}
	]`)

	count, err := store.ImportRules(payload)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 2, store.Len())

	exported, err := store.ExportRules()
	require.NoError(t, err)

	var rules []Rule
	require.NoError(t, json.Unmarshal(exported, &rules))
	require.Len(t, rules, 2)
	// export is priority-ordered
	assert.Equal(t, "imported-2", rules[0].Name)
}

func TestStore_ImportRules_RejectsWholeBatch(t *testing.T) {
	store := NewStore(WithEventTypeValidator(func(eventType string) bool {
		return eventType == "asset.changed"
	}))

	payload := []byte(`[
		{"name": "good", "event_type": "asset.changed"},
		{"name": "bad", "event_type": "user.created"}
	]`)

	count, err := store.ImportRules(payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")
	assert.Equal(t, 0, count)
	assert.Equal(t, 0, store.Len())
}

func TestStore_ImportRules_InvalidJSON(t *testing.T) {
	store := NewStore()

	_, err := store.ImportRules([]byte(`{not json`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse rules")
}

func ruleIDs(rules []Rule) []string {
	ids := make([]string, 0, len(rules))
	for _, r := range rules {
		ids = append(ids, r.ID)
	}
	return ids
}
