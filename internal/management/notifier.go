package management

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	kafka "relay/internal/broker"
	"relay/pkg/models"
)

// ConfigEventProducer broadcasts config-update events so running services can
// hot-reload rules and invalidate tenant caches without a restart.
type ConfigEventProducer struct {
	producer kafka.Producer
	topic    string
}

func NewConfigEventProducer(producer kafka.Producer, topic string) *ConfigEventProducer {
	return &ConfigEventProducer{
		producer: producer,
		topic:    topic,
	}
}

func (p *ConfigEventProducer) PublishRoutingRuleEvent(ctx context.Context, action, ruleID, changedBy string) error {
	event := models.ConfigUpdateEvent{
		EventType:   models.EventTypeRoutingRuleUpdated,
		ServiceType: models.ServiceTypeRouting,
		EntityID:    ruleID,
		Action:      action,
		Timestamp:   time.Now(),
		ChangedBy:   changedBy,
	}
	return p.publishEvent(ctx, event)
}

func (p *ConfigEventProducer) PublishTenantEvent(ctx context.Context, action, tenantID, changedBy string) error {
	event := models.ConfigUpdateEvent{
		EventType:   models.EventTypeTenantUpdated,
		ServiceType: models.ServiceTypeDispatch,
		EntityID:    tenantID,
		Action:      action,
		Timestamp:   time.Now(),
		ChangedBy:   changedBy,
	}
	return p.publishEvent(ctx, event)
}

func (p *ConfigEventProducer) PublishEventSchemaEvent(ctx context.Context, action, code, changedBy string) error {
	event := models.ConfigUpdateEvent{
		EventType:   models.EventTypeEventSchemaUpdated,
		ServiceType: models.ServiceTypeDispatch,
		EntityID:    code,
		Action:      action,
		Timestamp:   time.Now(),
		ChangedBy:   changedBy,
	}
	return p.publishEvent(ctx, event)
}

func (p *ConfigEventProducer) publishEvent(ctx context.Context, event models.ConfigUpdateEvent) error {
	if p.producer == nil || p.topic == "" {
		return nil
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal config event: %w", err)
	}

	var eventData map[string]interface{}
	if err := json.Unmarshal(eventJSON, &eventData); err != nil {
		return fmt.Errorf("failed to unmarshal event data: %w", err)
	}

	envelope := models.Envelope{
		ID:          uuid.New().String(),
		Source:      "management-service",
		Type:        event.EventType,
		ContentType: models.ContentTypeJSON,
		Data:        eventData,
	}

	return p.producer.Publish(ctx, p.topic, envelope)
}
