package routing

// EvaluateRule folds a rule's condition list into a single match decision.
//
// The fold is strictly left-to-right: each condition's result is combined
// with the running accumulator using the logical operator carried by the
// PREVIOUS condition (AND when absent). There is no operator precedence and
// no grouping; `a OR b AND c` evaluates as `(a OR b) AND c`.
func EvaluateRule(rule Rule, data map[string]interface{}) bool {
	if len(rule.Conditions) == 0 {
		return true
	}

	result := EvaluateCondition(rule.Conditions[0], data)

	for i := 1; i < len(rule.Conditions); i++ {
		current := EvaluateCondition(rule.Conditions[i], data)

		switch rule.Conditions[i-1].LogicalOperator {
		case LogicalOr:
			result = result || current
		default:
			result = result && current
		}
	}

	return result
}
