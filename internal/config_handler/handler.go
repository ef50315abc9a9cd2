package config_handler

import (
	"context"
	"encoding/json"

	"relay/internal/logger"
	"relay/pkg/models"
)

type ConfigReloader interface {
	ReloadRules(ctx context.Context, skipJitter ...bool) error
}

type CacheInvalidator interface {
	InvalidateTenant(ctx context.Context, tenantID string) error
}

// Handler reacts to config update events broadcast on the bus after a
// management API change. It ignores events addressed to other services.
type Handler struct {
	expectedEventType   string
	expectedServiceType string
	reloader            ConfigReloader
	invalidator         CacheInvalidator
	logger              logger.Logger
}

func NewHandler(expectedEventType, expectedServiceType string, log logger.Logger) *Handler {
	return &Handler{
		expectedEventType:   expectedEventType,
		expectedServiceType: expectedServiceType,
		logger:              log,
	}
}

func NewHandlerWithReloader(expectedEventType, expectedServiceType string, reloader ConfigReloader, log logger.Logger) *Handler {
	return NewHandler(expectedEventType, expectedServiceType, log).WithReloader(reloader)
}

func NewHandlerWithInvalidator(expectedEventType, expectedServiceType string, invalidator CacheInvalidator, log logger.Logger) *Handler {
	return NewHandler(expectedEventType, expectedServiceType, log).WithInvalidator(invalidator)
}

func (h *Handler) WithReloader(reloader ConfigReloader) *Handler {
	h.reloader = reloader
	return h
}

func (h *Handler) WithInvalidator(invalidator CacheInvalidator) *Handler {
	h.invalidator = invalidator
	return h
}

func (h *Handler) HandleConfigUpdateEvent(ctx context.Context, envelope models.Envelope) error {
	eventType, ok := envelope.Data["event_type"].(string)
	if !ok {
		h.logger.Warnw("Config event missing event_type", "id", envelope.ID)
		return nil
	}
	if eventType != h.expectedEventType {
		return nil
	}

	serviceType, ok := envelope.Data["service_type"].(string)
	if !ok {
		h.logger.Warnw("Config event missing service_type", "id", envelope.ID)
		return nil
	}
	if serviceType != h.expectedServiceType {
		return nil
	}

	var event models.ConfigUpdateEvent
	eventJSON, err := json.Marshal(envelope.Data)
	if err != nil {
		h.logger.Errorw("Failed to marshal event payload", "error", err, "id", envelope.ID)
		return err
	}

	if err := json.Unmarshal(eventJSON, &event); err != nil {
		h.logger.Errorw("Failed to unmarshal config event", "error", err, "id", envelope.ID)
		return err
	}

	h.logger.Infow("Received config update event",
		"event_type", event.EventType,
		"action", event.Action,
		"entity_id", event.EntityID,
	)

	if h.reloader != nil {
		if err := h.reloader.ReloadRules(ctx, true); err != nil {
			h.logger.Errorw("Failed to reload rules after config update", "error", err)
			return err
		}
		h.logger.Infow("Rules reloaded successfully after config update", "action", event.Action)
	}

	if h.invalidator == nil || event.EntityID == "" {
		return nil
	}

	if err := h.invalidator.InvalidateTenant(ctx, event.EntityID); err != nil {
		h.logger.Errorw("Failed to invalidate tenant cache", "error", err, "tenant_id", event.EntityID)
		return err
	}
	h.logger.Infow("Tenant cache invalidated", "tenant_id", event.EntityID)

	return nil
}
