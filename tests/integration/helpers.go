package integration

import (
	"time"

	"relay/internal/logger"
	"relay/internal/routing"
	"relay/internal/tenant"
	"relay/pkg/models"
)

const (
	containerStartupTimeout = 60
	timestampDelay          = 10 * time.Millisecond
)

func createTestLogger() logger.Logger {
	return logger.NopLogger()
}

func createTestRoutingRule(name, eventType string, priority int, enabled bool) *routing.Rule {
	return &routing.Rule{
		Name:      name,
		EventType: eventType,
		Direction: routing.DirectionBoth,
		Priority:  priority,
		Enabled:   enabled,
		Conditions: []routing.Condition{
			{Field: "status", Operator: routing.OpEquals, Value: "active"},
		},
		Actions: []routing.Action{
			{Type: routing.ActionRoute, Target: "routed_events"},
		},
	}
}

func createTestTenant(id, name, endpoint string) *tenant.Record {
	return &tenant.Record{
		ID:          id,
		Name:        name,
		EndpointURL: endpoint,
		Secret:      "s3cret",
		Enabled:     true,
	}
}

func createTestEnvelope(id, source, eventType string, data map[string]interface{}) models.Envelope {
	return models.Envelope{
		ID:          id,
		Source:      source,
		Type:        eventType,
		ContentType: "application/json",
		Data:        data,
	}
}
