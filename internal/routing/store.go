package routing

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"relay/pkg/metrics"
)

// ShortCircuitPriority is the fixed threshold above which a matched rule
// stops the chain: evaluation is priority-ordered and firewall-style.
const ShortCircuitPriority = 100

// EventTypeValidator reports whether an event-type code is known to the
// catalog. A nil validator accepts everything.
type EventTypeValidator func(eventType string) bool

// Store holds the active rule set in memory. It is replaced wholesale on
// reload; mutating operations exist for the management API and for tests.
type Store struct {
	mu        sync.RWMutex
	rules     map[string]Rule
	validator EventTypeValidator
}

type StoreOption func(*Store)

func WithEventTypeValidator(v EventTypeValidator) StoreOption {
	return func(s *Store) {
		s.validator = v
	}
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		rules: make(map[string]Rule),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) AddRule(rule Rule) (Rule, error) {
	if rule.EventType == "" {
		return Rule{}, fmt.Errorf("rule event type is required")
	}
	if s.validator != nil && !s.validator(rule.EventType) {
		return Rule{}, fmt.Errorf("unknown event type: %s", rule.EventType)
	}

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	now := time.Now()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	s.mu.Lock()
	s.rules[rule.ID] = rule
	s.mu.Unlock()

	return rule, nil
}

func (s *Store) GetRule(id string) (Rule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.rules[id]
	return rule, ok
}

func (s *Store) ListRules() []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := make([]Rule, 0, len(s.rules))
	for _, rule := range s.rules {
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})
	return rules
}

func (s *Store) DeleteRule(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[id]; !ok {
		return false
	}
	delete(s.rules, id)
	return true
}

func (s *Store) UpdateRuleTenants(id string, tenants []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[id]
	if !ok {
		return fmt.Errorf("rule not found: %s", id)
	}

	rule.TargetTenants = tenants
	rule.UpdatedAt = time.Now()
	s.rules[id] = rule
	return nil
}

func (s *Store) UpdateRuleDirection(id string, direction Direction) error {
	if !ValidDirection(direction) {
		return fmt.Errorf("invalid direction: %s", direction)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[id]
	if !ok {
		return fmt.Errorf("rule not found: %s", id)
	}

	rule.Direction = direction
	rule.UpdatedAt = time.Now()
	s.rules[id] = rule
	return nil
}

// ReplaceAll swaps the whole rule set, used by reload.
func (s *Store) ReplaceAll(rules []Rule) {
	next := make(map[string]Rule, len(rules))
	for _, rule := range rules {
		next[rule.ID] = rule
	}

	s.mu.Lock()
	s.rules = next
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}

// GetRulesForEventType returns enabled rules matching the event type,
// narrowed by direction and tenant when given, sorted by priority
// descending. Direction BOTH on a rule matches either requested direction;
// an empty TargetTenants set matches any tenant.
func (s *Store) GetRulesForEventType(eventType string, direction Direction, tenantID string) []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []Rule
	for _, rule := range s.rules {
		if rule.EventType != eventType || !rule.Enabled {
			continue
		}
		if direction != "" && rule.Direction != DirectionBoth && rule.Direction != direction {
			continue
		}
		if tenantID != "" && len(rule.TargetTenants) > 0 && !containsString(rule.TargetTenants, tenantID) {
			continue
		}
		candidates = append(candidates, rule)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority > candidates[j].Priority
	})

	return candidates
}

// EvaluateRules runs the priority-ordered rule chain for an event. A matched
// rule with priority at or above ShortCircuitPriority terminates the chain.
func (s *Store) EvaluateRules(eventType string, data map[string]interface{}, direction Direction, tenantID string) []EvaluationResult {
	candidates := s.GetRulesForEventType(eventType, direction, tenantID)
	results := make([]EvaluationResult, 0, len(candidates))

	for _, rule := range candidates {
		start := time.Now()
		matched := EvaluateRule(rule, data)

		result := EvaluationResult{
			RuleID:        rule.ID,
			Matched:       matched,
			ExecutionTime: time.Since(start),
		}
		if matched {
			result.Actions = append([]Action(nil), rule.Actions...)
		}
		results = append(results, result)

		outcome := "no_match"
		if matched {
			outcome = "match"
		}
		metrics.IncRoutingRuleEvaluation(rule.ID, rule.Name, outcome)

		if matched && rule.Priority >= ShortCircuitPriority {
			break
		}
	}

	return results
}

// ImportRules merges a JSON rule array into the store, replacing rules with
// matching ids. Returns how many rules were imported.
func (s *Store) ImportRules(data []byte) (int, error) {
	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return 0, fmt.Errorf("failed to parse rules: %w", err)
	}

	for i, rule := range rules {
		if rule.EventType == "" {
			return 0, fmt.Errorf("rule %d: event type is required", i)
		}
		if s.validator != nil && !s.validator(rule.EventType) {
			return 0, fmt.Errorf("rule %d: unknown event type: %s", i, rule.EventType)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rule := range rules {
		if rule.ID == "" {
			rule.ID = uuid.New().String()
		}
		s.rules[rule.ID] = rule
	}

	return len(rules), nil
}

func (s *Store) ExportRules() ([]byte, error) {
	return json.MarshalIndent(s.ListRules(), "", "  ")
}

func containsString(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}
