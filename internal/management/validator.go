package management

import (
	"fmt"
	"regexp"

	"relay/internal/routing"
	"relay/pkg/cel"
)

func ValidateRoutingRule(req CreateRoutingRuleRequest) error {
	if req.Name == "" {
		return fmt.Errorf("name is required")
	}
	if req.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if req.Direction != "" && !routing.ValidDirection(req.Direction) {
		return fmt.Errorf("invalid direction: %s. Allowed: EMIT, CONSUME, BOTH", req.Direction)
	}
	if req.Priority < 0 {
		return fmt.Errorf("priority must be non-negative")
	}

	if err := validateConditions(req.Conditions); err != nil {
		return err
	}
	return validateActions(req.Actions)
}

func ValidateUpdateRoutingRule(req UpdateRoutingRuleRequest) error {
	if req.Name != nil && *req.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if req.EventType != nil && *req.EventType == "" {
		return fmt.Errorf("event_type cannot be empty")
	}
	if req.Direction != nil && !routing.ValidDirection(*req.Direction) {
		return fmt.Errorf("invalid direction: %s. Allowed: EMIT, CONSUME, BOTH", *req.Direction)
	}
	if req.Priority != nil && *req.Priority < 0 {
		return fmt.Errorf("priority must be non-negative")
	}

	if req.Conditions != nil {
		if err := validateConditions(*req.Conditions); err != nil {
			return err
		}
	}
	if req.Actions != nil {
		return validateActions(*req.Actions)
	}
	return nil
}

func validateConditions(conditions []routing.Condition) error {
	for i, cond := range conditions {
		if cond.Field == "" {
			return fmt.Errorf("conditions[%d].field is required", i)
		}
		if !routing.ValidOperator(cond.Operator) {
			return fmt.Errorf("invalid operator in conditions[%d]: %s", i, cond.Operator)
		}
		if cond.Operator == routing.OpRegex {
			if _, err := regexp.Compile(cond.Value); err != nil {
				return fmt.Errorf("invalid regex pattern in conditions[%d]: %w", i, err)
			}
		}
		if cond.LogicalOperator != "" &&
			cond.LogicalOperator != routing.LogicalAnd &&
			cond.LogicalOperator != routing.LogicalOr {
			return fmt.Errorf("invalid logical_operator in conditions[%d]: %s. Allowed: AND, OR", i, cond.LogicalOperator)
		}
	}
	return nil
}

func validateActions(actions []routing.Action) error {
	var evaluator *cel.Evaluator

	for i, action := range actions {
		if !routing.ValidActionType(action.Type) {
			return fmt.Errorf("invalid action type in actions[%d]: %s. Allowed: route, transform, filter, log", i, action.Type)
		}
		if action.Type == routing.ActionRoute && action.Target == "" {
			return fmt.Errorf("actions[%d].target is required for route actions", i)
		}
		if action.Type != routing.ActionTransform {
			continue
		}

		if evaluator == nil {
			var err error
			evaluator, err = cel.NewEvaluator()
			if err != nil {
				return fmt.Errorf("failed to create CEL evaluator: %w", err)
			}
		}
		for field, raw := range action.Params {
			expr, ok := raw.(string)
			if !ok {
				return fmt.Errorf("actions[%d].params[%s] must be a string expression", i, field)
			}
			if err := evaluator.ValidateExpression(expr); err != nil {
				return fmt.Errorf("invalid CEL expression in actions[%d].params[%s]: %w", i, field, err)
			}
		}
	}
	return nil
}

func ValidateTenant(req CreateTenantRequest) error {
	if req.Name == "" {
		return fmt.Errorf("name is required")
	}
	if req.EndpointURL == "" {
		return fmt.Errorf("endpoint_url is required")
	}
	return nil
}

func ValidateUpdateTenant(req UpdateTenantRequest) error {
	if req.Name != nil && *req.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if req.EndpointURL != nil && *req.EndpointURL == "" {
		return fmt.Errorf("endpoint_url cannot be empty")
	}
	return nil
}

func ValidateEventSchema(req CreateEventSchemaRequest) error {
	if req.Code == "" {
		return fmt.Errorf("code is required")
	}
	for i, field := range req.RequiredFields {
		if field == "" {
			return fmt.Errorf("required_fields[%d] cannot be empty", i)
		}
	}
	return nil
}
