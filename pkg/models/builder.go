package models

import (
	"github.com/google/uuid"
)

// EnvelopeBuilder assembles an outbound envelope from an event schema and a
// payload. Required-field validation happens at Build time, before any
// delivery attempt is made with the result.
type EnvelopeBuilder struct {
	schema  EventSchema
	source  string
	payload map[string]interface{}
}

func NewEnvelopeBuilder(schema EventSchema) *EnvelopeBuilder {
	return &EnvelopeBuilder{
		schema:  schema,
		payload: make(map[string]interface{}),
	}
}

func (b *EnvelopeBuilder) WithSource(source string) *EnvelopeBuilder {
	b.source = source
	return b
}

func (b *EnvelopeBuilder) WithPayload(payload map[string]interface{}) *EnvelopeBuilder {
	b.payload = payload
	return b
}

func (b *EnvelopeBuilder) WithField(name string, value interface{}) *EnvelopeBuilder {
	if b.payload == nil {
		b.payload = make(map[string]interface{})
	}
	b.payload[name] = value
	return b
}

// Build validates the payload against the schema, merges the schema's
// injected objects as top-level data keys and stamps a fresh id.
func (b *EnvelopeBuilder) Build() (*Envelope, error) {
	for _, field := range b.schema.RequiredFields {
		if _, ok := b.payload[field]; !ok {
			return nil, &MissingFieldError{EventType: b.schema.Code, Field: field}
		}
	}

	data := make(map[string]interface{}, len(b.payload)+len(b.schema.InjectedObjects))
	for k, v := range b.payload {
		data[k] = v
	}
	for k, v := range b.schema.InjectedObjects {
		data[k] = v
	}

	return &Envelope{
		ID:          uuid.New().String(),
		Source:      b.source,
		Type:        b.schema.Code,
		ContentType: ContentTypeJSON,
		Data:        data,
	}, nil
}
