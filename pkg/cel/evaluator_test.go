package cel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay/pkg/models"
)

func TestNewEvaluator(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)
	assert.NotNil(t, eval)
}

func TestValidateExpression(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{
			name:      "valid simple expression",
			expr:      `data.status`,
			wantError: false,
		},
		{
			name:      "valid concatenation",
			expr:      `data.region + "-" + data.zone`,
			wantError: false,
		},
		{
			name:      "valid conditional",
			expr:      `data.priority > 5 ? "high" : "low"`,
			wantError: false,
		},
		{
			name:      "invalid expression",
			expr:      `invalid syntax here!!!`,
			wantError: true,
		},
		{
			name:      "undefined variable",
			expr:      `undefinedVar == "test"`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateExpression(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEvaluateTransform(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	env := models.Envelope{
		ID:     "evt-1",
		Source: "tenant-a",
		Type:   "asset.sync.new",
		Data: map[string]interface{}{
			"path":   "media/clip.mov",
			"region": "eu",
			"zone":   "west",
		},
	}

	t.Run("field access", func(t *testing.T) {
		out, err := eval.EvaluateTransform(context.Background(), `data.path`, env)
		require.NoError(t, err)
		assert.Equal(t, "media/clip.mov", out)
	})

	t.Run("concatenation", func(t *testing.T) {
		out, err := eval.EvaluateTransform(context.Background(), `data.region + "-" + data.zone`, env)
		require.NoError(t, err)
		assert.Equal(t, "eu-west", out)
	})

	t.Run("envelope fields", func(t *testing.T) {
		out, err := eval.EvaluateTransform(context.Background(), `source + "/" + type`, env)
		require.NoError(t, err)
		assert.Equal(t, "tenant-a/asset.sync.new", out)
	})

	t.Run("evaluation error on missing key", func(t *testing.T) {
		_, err := eval.EvaluateTransform(context.Background(), `data.missing.deep`, env)
		assert.Error(t, err)
	})
}
