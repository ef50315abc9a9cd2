package management

import (
	"relay/internal/routing"
)

type CreateRoutingRuleRequest struct {
	Name          string              `json:"name" binding:"required"`
	Description   string              `json:"description"`
	EventType     string              `json:"event_type" binding:"required"`
	Direction     routing.Direction   `json:"direction"`
	TargetTenants []string            `json:"target_tenants"`
	Conditions    []routing.Condition `json:"conditions"`
	Actions       []routing.Action    `json:"actions"`
	Priority      int                 `json:"priority"`
	Enabled       *bool               `json:"enabled"`
}

type UpdateRoutingRuleRequest struct {
	Name          *string              `json:"name"`
	Description   *string              `json:"description"`
	EventType     *string              `json:"event_type"`
	Direction     *routing.Direction   `json:"direction"`
	TargetTenants *[]string            `json:"target_tenants"`
	Conditions    *[]routing.Condition `json:"conditions"`
	Actions       *[]routing.Action    `json:"actions"`
	Priority      *int                 `json:"priority"`
	Enabled       *bool                `json:"enabled"`
}

type CreateTenantRequest struct {
	Name        string `json:"name" binding:"required"`
	EndpointURL string `json:"endpoint_url" binding:"required"`
	Secret      string `json:"secret"`
	Enabled     *bool  `json:"enabled"`
}

type UpdateTenantRequest struct {
	Name        *string `json:"name"`
	EndpointURL *string `json:"endpoint_url"`
	Secret      *string `json:"secret"`
	Enabled     *bool   `json:"enabled"`
}

type CreateEventSchemaRequest struct {
	Code            string                 `json:"code" binding:"required"`
	Description     string                 `json:"description"`
	RequiredFields  []string               `json:"required_fields"`
	InjectedObjects map[string]interface{} `json:"injected_objects"`
	SecretHeader    bool                   `json:"secret_header"`
	SignedPayload   bool                   `json:"signed_payload"`
}

type UpdateEventSchemaRequest struct {
	Description     *string                 `json:"description"`
	RequiredFields  *[]string               `json:"required_fields"`
	InjectedObjects *map[string]interface{} `json:"injected_objects"`
	SecretHeader    *bool                   `json:"secret_header"`
	SignedPayload   *bool                   `json:"signed_payload"`
}
