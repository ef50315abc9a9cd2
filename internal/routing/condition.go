package routing

import (
	"regexp"
	"strings"
)

// resolveField walks a dot-path into nested payload maps. A missing
// intermediate key resolves to (nil, false) rather than an error.
func resolveField(data map[string]interface{}, path string) (interface{}, bool) {
	var current interface{} = data

	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// EvaluateCondition applies one condition to a payload. String operators
// only match when the resolved value actually is a string; there is no type
// coercion. The regex pattern is compiled fresh on every call; a pattern
// that fails to compile never matches.
func EvaluateCondition(cond Condition, data map[string]interface{}) bool {
	value, found := resolveField(data, cond.Field)

	switch cond.Operator {
	case OpEquals:
		s, ok := value.(string)
		return found && ok && s == cond.Value
	case OpContains:
		s, ok := value.(string)
		return found && ok && strings.Contains(s, cond.Value)
	case OpStartsWith:
		s, ok := value.(string)
		return found && ok && strings.HasPrefix(s, cond.Value)
	case OpEndsWith:
		s, ok := value.(string)
		return found && ok && strings.HasSuffix(s, cond.Value)
	case OpRegex:
		s, ok := value.(string)
		if !found || !ok {
			return false
		}
		re, err := regexp.Compile(cond.Value)
		if err != nil {
			return false
		}
		return re.MatchString(s)
	case OpExists:
		// Falsy-but-present values (0, "", false) count as existing.
		return found && value != nil
	case OpNotExists:
		return !found || value == nil
	default:
		return false
	}
}
