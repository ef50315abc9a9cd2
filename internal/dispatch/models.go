package dispatch

import (
	"encoding/json"
	"fmt"
)

// Classification is the new-vs-update determination made once per
// asset-change event. It is asset-scoped: every subscriber in one invocation
// gets the same classification, regardless of its own sync history.
type Classification string

const (
	ClassificationNew    Classification = "new"
	ClassificationUpdate Classification = "update"
)

type Status string

const (
	// StatusNoop means the eligibility check failed; nothing was fetched or
	// delivered beyond the metadata lookup.
	StatusNoop Status = "noop"
	// StatusCompleted means the per-tenant loop ran to the end. Individual
	// outcomes may still have failed.
	StatusCompleted Status = "completed"
)

// Outcome records what happened for one subscriber tenant. It only lives for
// the duration of a single invocation.
type Outcome struct {
	TenantID   string `json:"tenant_id"`
	Delivered  bool   `json:"delivered"`
	Published  bool   `json:"published"`
	SkipReason string `json:"skip_reason,omitempty"`
	Error      string `json:"error,omitempty"`
}

type Result struct {
	Status         Status         `json:"status"`
	Classification Classification `json:"classification,omitempty"`
	Outcomes       []Outcome      `json:"outcomes,omitempty"`
}

func (r *Result) DeliveredCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Delivered {
			n++
		}
	}
	return n
}

// DeliveryError is a failed webhook POST. Detail carries any JSON error
// message the endpoint returned with the non-2xx status.
type DeliveryError struct {
	StatusCode int
	Detail     string
}

func (e *DeliveryError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("webhook returned status %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("webhook returned status %d", e.StatusCode)
}

// extractErrorDetail pulls a human-readable message out of a JSON error body.
func extractErrorDetail(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}

	for _, key := range []string{"error", "message", "detail"} {
		if msg, ok := parsed[key].(string); ok && msg != "" {
			return msg
		}
	}
	return ""
}
