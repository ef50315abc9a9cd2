package dispatch

import (
	"fmt"
	"strings"

	"relay/internal/assets"
	apperrors "relay/pkg/errors"
)

// Metadata keys the classifier reads off an asset record. They are set by
// the upstream content source, not by this service.
const (
	MetadataKeySyncFlag    = "sync_on_change"
	MetadataKeySubscribers = "customers"
	MetadataKeyLastSynced  = "last_synced_at"
)

// Eligible reports whether an asset change should be dispatched at all: the
// sync flag must be boolean true or the string "true", and the subscriber
// field must be present and non-empty.
func Eligible(record *assets.Record) bool {
	if record == nil || record.Metadata == nil {
		return false
	}

	switch flag := record.Metadata[MetadataKeySyncFlag].(type) {
	case bool:
		if !flag {
			return false
		}
	case string:
		if flag != "true" {
			return false
		}
	default:
		return false
	}

	switch subscribers := record.Metadata[MetadataKeySubscribers].(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(subscribers) != ""
	case []interface{}:
		return len(subscribers) > 0
	case []string:
		return len(subscribers) > 0
	default:
		// present but oddly shaped; normalization decides whether it is a
		// hard format error
		return true
	}
}

// NormalizeSubscribers turns the subscriber field into an ordered list of
// tenant ids. A comma-separated string and an array of strings are the only
// accepted shapes; anything else aborts the dispatch before any per-tenant
// work.
func NormalizeSubscribers(record *assets.Record) ([]string, error) {
	raw := record.Metadata[MetadataKeySubscribers]

	switch subscribers := raw.(type) {
	case string:
		var ids []string
		for _, part := range strings.Split(subscribers, ",") {
			if id := strings.TrimSpace(part); id != "" {
				ids = append(ids, id)
			}
		}
		return ids, nil

	case []string:
		ids := make([]string, 0, len(subscribers))
		for _, id := range subscribers {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		return ids, nil

	case []interface{}:
		ids := make([]string, 0, len(subscribers))
		for _, entry := range subscribers {
			id, ok := entry.(string)
			if !ok {
				return nil, apperrors.ErrTenantFormat.WithDetail(
					"message", fmt.Sprintf("subscriber entry is %T, expected string", entry),
				)
			}
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		return ids, nil

	default:
		return nil, apperrors.ErrTenantFormat.WithDetail(
			"message", fmt.Sprintf("subscriber field is %T, expected string or array", raw),
		)
	}
}

// Classify returns update when the asset carries a last-sync marker and new
// otherwise. The determination is made once per asset event and applied to
// every subscriber in the fan-out.
func Classify(record *assets.Record) Classification {
	marker, ok := record.Metadata[MetadataKeyLastSynced]
	if !ok || marker == nil {
		return ClassificationNew
	}
	if s, isString := marker.(string); isString && s == "" {
		return ClassificationNew
	}
	return ClassificationUpdate
}
