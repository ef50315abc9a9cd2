package assets

// Record is the asset metadata fetched from the upstream source. Metadata
// keys are free-form; the dispatch classifier reads the sync flag, the
// subscriber list, and the last-sync marker out of it.
type Record struct {
	ID         string                 `json:"id"`
	Path       string                 `json:"path"`
	Metadata   map[string]interface{} `json:"metadata"`
	SourceHost string                 `json:"source_host"`
}
