package routing

import "time"

type Direction string

const (
	DirectionEmit    Direction = "EMIT"
	DirectionConsume Direction = "CONSUME"
	DirectionBoth    Direction = "BOTH"
)

type Operator string

const (
	OpEquals     Operator = "equals"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "startsWith"
	OpEndsWith   Operator = "endsWith"
	OpRegex      Operator = "regex"
	OpExists     Operator = "exists"
	OpNotExists  Operator = "notExists"
)

type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "AND"
	LogicalOr  LogicalOperator = "OR"
)

type ActionType string

const (
	ActionRoute     ActionType = "route"
	ActionTransform ActionType = "transform"
	ActionFilter    ActionType = "filter"
	ActionLog       ActionType = "log"
)

// Condition tests one dot-path field of an event payload. LogicalOperator
// governs how this condition's result combines with the NEXT condition in
// the rule's list.
type Condition struct {
	Field           string          `json:"field"`
	Operator        Operator        `json:"operator"`
	Value           string          `json:"value,omitempty"`
	LogicalOperator LogicalOperator `json:"logical_operator,omitempty"`
}

type Action struct {
	Type   ActionType             `json:"type"`
	Target string                 `json:"target,omitempty"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// Rule declares which events matter and what to do when they match. An empty
// TargetTenants set applies the rule to every tenant; an empty condition
// list always matches.
type Rule struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description,omitempty"`
	EventType     string      `json:"event_type"`
	Direction     Direction   `json:"direction"`
	TargetTenants []string    `json:"target_tenants,omitempty"`
	Conditions    []Condition `json:"conditions,omitempty"`
	Actions       []Action    `json:"actions,omitempty"`
	Enabled       bool        `json:"enabled"`
	Priority      int         `json:"priority"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

type EvaluationResult struct {
	RuleID        string        `json:"rule_id"`
	Matched       bool          `json:"matched"`
	Actions       []Action      `json:"actions,omitempty"`
	ExecutionTime time.Duration `json:"execution_time"`
}

func ValidDirection(d Direction) bool {
	switch d {
	case DirectionEmit, DirectionConsume, DirectionBoth:
		return true
	}
	return false
}

func ValidOperator(op Operator) bool {
	switch op {
	case OpEquals, OpContains, OpStartsWith, OpEndsWith, OpRegex, OpExists, OpNotExists:
		return true
	}
	return false
}

func ValidActionType(t ActionType) bool {
	switch t {
	case ActionRoute, ActionTransform, ActionFilter, ActionLog:
		return true
	}
	return false
}
