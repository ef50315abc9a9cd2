package catalog

import (
	"sync"

	"relay/pkg/models"
)

// Registry is the in-memory view of the event-type schema catalog. It is
// replaced wholesale on reload and doubles as the event-type validator the
// rule store consults on writes.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]models.EventSchema
}

func NewRegistry(seed ...models.EventSchema) *Registry {
	r := &Registry{
		schemas: make(map[string]models.EventSchema, len(seed)),
	}
	for _, schema := range seed {
		r.schemas[schema.Code] = schema
	}
	return r
}

func (r *Registry) Get(code string) (models.EventSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schema, ok := r.schemas[code]
	return schema, ok
}

// Known satisfies the rule store's event-type validator.
func (r *Registry) Known(code string) bool {
	_, ok := r.Get(code)
	return ok
}

func (r *Registry) All() []models.EventSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.EventSchema, 0, len(r.schemas))
	for _, schema := range r.schemas {
		out = append(out, schema)
	}
	return out
}

func (r *Registry) ReplaceAll(schemas []models.EventSchema) {
	next := make(map[string]models.EventSchema, len(schemas))
	for _, schema := range schemas {
		next[schema.Code] = schema
	}

	r.mu.Lock()
	r.schemas = next
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.schemas)
}
