package models

import "fmt"

const ContentTypeJSON = "application/json"

// Envelope is the canonical event record delivered to tenant webhooks and
// published to the internal bus. Source identifies the issuer and is
// reassigned per delivery target.
type Envelope struct {
	ID          string                 `json:"id"`
	Source      string                 `json:"source"`
	Type        string                 `json:"type"`
	ContentType string                 `json:"contentType"`
	Data        map[string]interface{} `json:"data"`
}

// EventSchema describes one event type: the payload fields an envelope of
// that type must carry, extra objects injected into the payload at build
// time, and the delivery flags the webhook layer honors.
type EventSchema struct {
	Code            string                 `json:"code" bson:"_id"`
	Description     string                 `json:"description" bson:"description"`
	RequiredFields  []string               `json:"required_fields" bson:"required_fields"`
	InjectedObjects map[string]interface{} `json:"injected_objects,omitempty" bson:"injected_objects,omitempty"`
	SecretHeader    bool                   `json:"secret_header" bson:"secret_header"`
	SignedPayload   bool                   `json:"signed_payload" bson:"signed_payload"`
}

// MissingFieldError names the first schema field absent from a payload.
type MissingFieldError struct {
	EventType string
	Field     string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("event %q: required field %q missing from payload", e.EventType, e.Field)
}

func ValidateEnvelope(env *Envelope) error {
	if env == nil {
		return &ValidationError{Field: "envelope", Message: "envelope cannot be nil"}
	}

	if env.ID == "" {
		return &ValidationError{Field: "id", Message: "envelope ID is required"}
	}

	if env.Source == "" {
		return &ValidationError{Field: "source", Message: "envelope source is required"}
	}

	if env.Type == "" {
		return &ValidationError{Field: "type", Message: "envelope type is required"}
	}

	if env.Data == nil {
		return &ValidationError{Field: "data", Message: "envelope data cannot be nil"}
	}

	return nil
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func (env *Envelope) GetDataField(name string) (interface{}, bool) {
	if env.Data == nil {
		return nil, false
	}

	value, ok := env.Data[name]
	return value, ok
}

func (env *Envelope) SetDataField(name string, value interface{}) {
	if env.Data == nil {
		env.Data = make(map[string]interface{})
	}

	env.Data[name] = value
}
