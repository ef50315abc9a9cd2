package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay/internal/logger"
	"relay/pkg/cel"
	"relay/pkg/models"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	evaluator, err := cel.NewEvaluator()
	require.NoError(t, err)
	return NewExecutor(evaluator, logger.NopLogger())
}

func testEnvelope() models.Envelope {
	return models.Envelope{
		ID:          "env-1",
		Source:      "content-source",
		Type:        "asset.changed",
		ContentType: models.ContentTypeJSON,
		Data: map[string]interface{}{
			"status": "active",
			"region": "eu",
		},
	}
}

func matched(ruleID string, actions ...Action) EvaluationResult {
	return EvaluationResult{RuleID: ruleID, Matched: true, Actions: actions}
}

func TestExecutor_Apply_NoMatches(t *testing.T) {
	executor := newTestExecutor(t)
	env := testEnvelope()

	disp, err := executor.Apply(context.Background(), env, []EvaluationResult{
		{RuleID: "r1", Matched: false, Actions: []Action{{Type: ActionFilter}}},
	})
	require.NoError(t, err)

	assert.False(t, disp.Drop)
	assert.Empty(t, disp.Topic)
	assert.Equal(t, env, disp.Envelope)
}

func TestExecutor_Apply_RouteAction(t *testing.T) {
	executor := newTestExecutor(t)

	disp, err := executor.Apply(context.Background(), testEnvelope(), []EvaluationResult{
		matched("r1", Action{Type: ActionRoute, Target: "priority_events"}),
	})
	require.NoError(t, err)

	assert.False(t, disp.Drop)
	assert.Equal(t, "priority_events", disp.Topic)
}

func TestExecutor_Apply_FilterWinsImmediately(t *testing.T) {
	executor := newTestExecutor(t)

	disp, err := executor.Apply(context.Background(), testEnvelope(), []EvaluationResult{
		matched("r1", Action{Type: ActionFilter}, Action{Type: ActionRoute, Target: "never_reached"}),
		matched("r2", Action{Type: ActionRoute, Target: "also_never_reached"}),
	})
	require.NoError(t, err)

	assert.True(t, disp.Drop)
	assert.Empty(t, disp.Topic)
}

func TestExecutor_Apply_TransformParams(t *testing.T) {
	executor := newTestExecutor(t)

	disp, err := executor.Apply(context.Background(), testEnvelope(), []EvaluationResult{
		matched("r1", Action{
			Type: ActionTransform,
			Params: map[string]interface{}{
				"zone": `data.region + "-1"`,
			},
		}),
	})
	require.NoError(t, err)

	value, ok := disp.Envelope.GetDataField("zone")
	require.True(t, ok)
	assert.Equal(t, "eu-1", value)
	// original fields survive
	status, _ := disp.Envelope.GetDataField("status")
	assert.Equal(t, "active", status)
}

func TestExecutor_Apply_TransformTargetField(t *testing.T) {
	executor := newTestExecutor(t)

	disp, err := executor.Apply(context.Background(), testEnvelope(), []EvaluationResult{
		matched("r1", Action{
			Type:   ActionTransform,
			Target: "label",
			Params: map[string]interface{}{
				"expression": `type + ":" + data.status`,
			},
		}),
	})
	require.NoError(t, err)

	value, ok := disp.Envelope.GetDataField("label")
	require.True(t, ok)
	assert.Equal(t, "asset.changed:active", value)

	_, ok = disp.Envelope.GetDataField("expression")
	assert.False(t, ok)
}

func TestExecutor_Apply_TransformNonStringParam(t *testing.T) {
	executor := newTestExecutor(t)

	_, err := executor.Apply(context.Background(), testEnvelope(), []EvaluationResult{
		matched("r1", Action{
			Type: ActionTransform,
			Params: map[string]interface{}{
				"zone": 42,
			},
		}),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expression must be a string")
}

func TestExecutor_Apply_LogActionContinues(t *testing.T) {
	executor := newTestExecutor(t)

	disp, err := executor.Apply(context.Background(), testEnvelope(), []EvaluationResult{
		matched("r1", Action{Type: ActionLog}, Action{Type: ActionRoute, Target: "after_log"}),
	})
	require.NoError(t, err)
	assert.Equal(t, "after_log", disp.Topic)
}

func TestExecutor_Apply_UnknownActionType(t *testing.T) {
	executor := newTestExecutor(t)

	_, err := executor.Apply(context.Background(), testEnvelope(), []EvaluationResult{
		matched("r1", Action{Type: ActionType("explode")}),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown action type")
}
