package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syncSchema() EventSchema {
	return EventSchema{
		Code:           "asset.sync.new",
		RequiredFields: []string{"asset_id", "tenant_id"},
	}
}

func TestEnvelopeBuilder_Build(t *testing.T) {
	env, err := NewEnvelopeBuilder(syncSchema()).
		WithSource("content.example.com").
		WithField("asset_id", "asset-1").
		WithField("tenant_id", "tenant-1").
		WithField("path", "/docs/report.pdf").
		Build()
	require.NoError(t, err)

	_, parseErr := uuid.Parse(env.ID)
	assert.NoError(t, parseErr)
	assert.Equal(t, "content.example.com", env.Source)
	assert.Equal(t, "asset.sync.new", env.Type)
	assert.Equal(t, ContentTypeJSON, env.ContentType)
	assert.Equal(t, "asset-1", env.Data["asset_id"])
	assert.Equal(t, "/docs/report.pdf", env.Data["path"])

	assert.NoError(t, ValidateEnvelope(env))
}

func TestEnvelopeBuilder_MissingRequiredField(t *testing.T) {
	_, err := NewEnvelopeBuilder(syncSchema()).
		WithSource("content.example.com").
		WithField("asset_id", "asset-1").
		Build()
	require.Error(t, err)

	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "asset.sync.new", missing.EventType)
	assert.Equal(t, "tenant_id", missing.Field)
}

func TestEnvelopeBuilder_WithPayload(t *testing.T) {
	env, err := NewEnvelopeBuilder(syncSchema()).
		WithPayload(map[string]interface{}{
			"asset_id":  "asset-1",
			"tenant_id": "tenant-1",
		}).
		Build()
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", env.Data["tenant_id"])
}

func TestEnvelopeBuilder_InjectedObjects(t *testing.T) {
	schema := syncSchema()
	schema.InjectedObjects = map[string]interface{}{
		"origin":   map[string]interface{}{"system": "relay"},
		"asset_id": "injected-wins",
	}

	env, err := NewEnvelopeBuilder(schema).
		WithField("asset_id", "asset-1").
		WithField("tenant_id", "tenant-1").
		Build()
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{"system": "relay"}, env.Data["origin"])
	// injected objects overwrite payload fields of the same name
	assert.Equal(t, "injected-wins", env.Data["asset_id"])
}

func TestEnvelopeBuilder_InjectedObjectsSatisfyRequiredFields(t *testing.T) {
	// required-field validation runs against the payload, before injection
	schema := syncSchema()
	schema.InjectedObjects = map[string]interface{}{"tenant_id": "tenant-1"}

	_, err := NewEnvelopeBuilder(schema).
		WithField("asset_id", "asset-1").
		Build()
	require.Error(t, err)
}

func TestEnvelopeBuilder_FreshIDPerBuild(t *testing.T) {
	builder := NewEnvelopeBuilder(syncSchema()).
		WithField("asset_id", "asset-1").
		WithField("tenant_id", "tenant-1")

	first, err := builder.Build()
	require.NoError(t, err)
	second, err := builder.Build()
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestValidateEnvelope(t *testing.T) {
	valid := &Envelope{
		ID:          "env-1",
		Source:      "relay-dispatch",
		Type:        "asset.sync.new",
		ContentType: ContentTypeJSON,
		Data:        map[string]interface{}{},
	}
	assert.NoError(t, ValidateEnvelope(valid))

	tests := []struct {
		name      string
		mutate    func(env *Envelope)
		wantField string
	}{
		{name: "missing id", mutate: func(env *Envelope) { env.ID = "" }, wantField: "id"},
		{name: "missing source", mutate: func(env *Envelope) { env.Source = "" }, wantField: "source"},
		{name: "missing type", mutate: func(env *Envelope) { env.Type = "" }, wantField: "type"},
		{name: "nil data", mutate: func(env *Envelope) { env.Data = nil }, wantField: "data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := *valid
			tt.mutate(&env)

			err := ValidateEnvelope(&env)
			require.Error(t, err)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.wantField, validationErr.Field)
		})
	}

	err := ValidateEnvelope(nil)
	require.Error(t, err)
}
