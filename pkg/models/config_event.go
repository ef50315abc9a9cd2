package models

import "time"

type ConfigUpdateEvent struct {
	EventType   string                 `json:"event_type"`   // "routing_rule_updated", "tenant_updated", "event_schema_updated"
	ServiceType string                 `json:"service_type"` // "routing", "dispatch"
	EntityID    string                 `json:"entity_id,omitempty"`
	Action      string                 `json:"action"` // "create", "update", "delete", "toggle", "import"
	Timestamp   time.Time              `json:"timestamp"`
	ChangedBy   string                 `json:"changed_by,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

const (
	EventTypeRoutingRuleUpdated = "routing_rule_updated"
	EventTypeTenantUpdated      = "tenant_updated"
	EventTypeEventSchemaUpdated = "event_schema_updated"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionToggle = "toggle"
	ActionImport = "import"
	ActionReload = "reload"
)

const (
	ServiceTypeRouting  = "routing"
	ServiceTypeDispatch = "dispatch"
)
