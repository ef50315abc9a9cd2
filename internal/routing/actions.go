package routing

import (
	"context"
	"fmt"

	"relay/internal/logger"
	"relay/pkg/cel"
	"relay/pkg/metrics"
	"relay/pkg/models"
)

// Disposition is the aggregate outcome of applying the matched actions of a
// rule chain to one envelope.
type Disposition struct {
	// Drop marks the envelope as filtered out; nothing gets forwarded.
	Drop bool
	// Topic overrides the default output topic when a route action matched.
	Topic string
	// Envelope carries any transform mutations.
	Envelope models.Envelope
}

// Executor applies rule actions to envelopes. route and filter only steer the
// disposition; transform rewrites data fields through expressions; log is a
// side effect.
type Executor struct {
	evaluator *cel.Evaluator
	logger    logger.Logger
}

func NewExecutor(evaluator *cel.Evaluator, log logger.Logger) *Executor {
	return &Executor{evaluator: evaluator, logger: log}
}

// Apply folds every matched action over the envelope in rule-priority order.
// A filter action wins immediately; later actions are not applied.
func (e *Executor) Apply(ctx context.Context, env models.Envelope, results []EvaluationResult) (Disposition, error) {
	disp := Disposition{Envelope: env}

	for _, result := range results {
		if !result.Matched {
			continue
		}
		for _, action := range result.Actions {
			done, err := e.applyAction(ctx, &disp, result.RuleID, action)
			if err != nil {
				return disp, err
			}
			if done {
				return disp, nil
			}
		}
	}

	return disp, nil
}

func (e *Executor) applyAction(ctx context.Context, disp *Disposition, ruleID string, action Action) (bool, error) {
	switch action.Type {
	case ActionFilter:
		disp.Drop = true
		metrics.RoutingActionsTotal.WithLabelValues(string(ActionFilter), "applied").Inc()
		return true, nil

	case ActionRoute:
		disp.Topic = action.Target
		metrics.RoutingActionsTotal.WithLabelValues(string(ActionRoute), "applied").Inc()
		return false, nil

	case ActionTransform:
		if err := e.applyTransform(ctx, disp, action); err != nil {
			return false, fmt.Errorf("rule %s transform: %w", ruleID, err)
		}
		metrics.RoutingActionsTotal.WithLabelValues(string(ActionTransform), "applied").Inc()
		return false, nil

	case ActionLog:
		e.logger.InfowCtx(ctx, "Rule log action",
			"rule_id", ruleID,
			"event_id", disp.Envelope.ID,
			"event_type", disp.Envelope.Type,
			"target", action.Target,
		)
		metrics.RoutingActionsTotal.WithLabelValues(string(ActionLog), "applied").Inc()
		return false, nil

	default:
		return false, fmt.Errorf("unknown action type %q in rule %s", action.Type, ruleID)
	}
}

// applyTransform evaluates every params entry as an expression and writes the
// result into the data field named by the key. Target, when set, names a
// single field computed from the "expression" param.
func (e *Executor) applyTransform(ctx context.Context, disp *Disposition, action Action) error {
	exprs := make(map[string]string, len(action.Params))
	for field, raw := range action.Params {
		expr, ok := raw.(string)
		if !ok {
			return fmt.Errorf("field %s: expression must be a string, got %T", field, raw)
		}
		exprs[field] = expr
	}
	if action.Target != "" {
		if expr, ok := exprs["expression"]; ok {
			delete(exprs, "expression")
			exprs[action.Target] = expr
		}
	}

	for field, expr := range exprs {
		value, err := e.evaluator.EvaluateTransform(ctx, expr, disp.Envelope)
		if err != nil {
			return fmt.Errorf("field %s: %w", field, err)
		}
		disp.Envelope.SetDataField(field, value)
	}
	return nil
}
