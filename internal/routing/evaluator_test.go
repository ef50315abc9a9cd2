package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateRule_EmptyConditionsAlwaysMatch(t *testing.T) {
	rule := Rule{ID: "r1", EventType: "asset.changed"}

	assert.True(t, EvaluateRule(rule, map[string]interface{}{"status": "active"}))
	assert.True(t, EvaluateRule(rule, map[string]interface{}{}))
	assert.True(t, EvaluateRule(rule, nil))
}

func TestEvaluateRule_SingleCondition(t *testing.T) {
	rule := Rule{
		Conditions: []Condition{
			{Field: "status", Operator: OpEquals, Value: "active"},
		},
	}

	assert.True(t, EvaluateRule(rule, map[string]interface{}{"status": "active"}))
	assert.False(t, EvaluateRule(rule, map[string]interface{}{"status": "inactive"}))
}

func TestEvaluateRule_ImplicitAnd(t *testing.T) {
	// no logical operator between conditions defaults to AND
	rule := Rule{
		Conditions: []Condition{
			{Field: "status", Operator: OpEquals, Value: "active"},
			{Field: "region", Operator: OpEquals, Value: "eu"},
		},
	}

	assert.True(t, EvaluateRule(rule, map[string]interface{}{"status": "active", "region": "eu"}))
	assert.False(t, EvaluateRule(rule, map[string]interface{}{"status": "active", "region": "us"}))
	assert.False(t, EvaluateRule(rule, map[string]interface{}{"status": "inactive", "region": "eu"}))
}

func TestEvaluateRule_OrOperator(t *testing.T) {
	rule := Rule{
		Conditions: []Condition{
			{Field: "status", Operator: OpEquals, Value: "active", LogicalOperator: LogicalOr},
			{Field: "status", Operator: OpEquals, Value: "pending"},
		},
	}

	assert.True(t, EvaluateRule(rule, map[string]interface{}{"status": "active"}))
	assert.True(t, EvaluateRule(rule, map[string]interface{}{"status": "pending"}))
	assert.False(t, EvaluateRule(rule, map[string]interface{}{"status": "deleted"}))
}

func TestEvaluateRule_LeftToRightFold(t *testing.T) {
	// a OR b AND c folds as (a OR b) AND c, with the combining operator
	// taken from the preceding condition
	rule := Rule{
		Conditions: []Condition{
			{Field: "a", Operator: OpEquals, Value: "1", LogicalOperator: LogicalOr},
			{Field: "b", Operator: OpEquals, Value: "1", LogicalOperator: LogicalAnd},
			{Field: "c", Operator: OpEquals, Value: "1"},
		},
	}

	tests := []struct {
		name string
		data map[string]interface{}
		want bool
	}{
		{
			name: "a and c hold",
			data: map[string]interface{}{"a": "1", "b": "0", "c": "1"},
			want: true,
		},
		{
			name: "b and c hold",
			data: map[string]interface{}{"a": "0", "b": "1", "c": "1"},
			want: true,
		},
		{
			name: "a and b hold but c fails",
			data: map[string]interface{}{"a": "1", "b": "1", "c": "0"},
			want: false,
		},
		{
			name: "only c holds",
			data: map[string]interface{}{"a": "0", "b": "0", "c": "1"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateRule(rule, tt.data))
		})
	}
}

func TestEvaluateRule_TrailingOperatorIgnored(t *testing.T) {
	// the last condition's logical operator has nothing to combine with
	rule := Rule{
		Conditions: []Condition{
			{Field: "status", Operator: OpEquals, Value: "active", LogicalOperator: LogicalOr},
		},
	}

	assert.True(t, EvaluateRule(rule, map[string]interface{}{"status": "active"}))
	assert.False(t, EvaluateRule(rule, map[string]interface{}{"status": "inactive"}))
}
