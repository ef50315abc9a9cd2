package catalog

import (
	"context"

	"relay/internal/logger"
	"relay/pkg/models"
)

// Service keeps the registry fed from the Mongo catalog. Schemas stored in
// the database override the seeded defaults with the same code.
type Service struct {
	repo     Repository
	registry *Registry
	logger   logger.Logger
}

func NewService(repo Repository, log logger.Logger) *Service {
	return &Service{
		repo:     repo,
		registry: NewRegistry(DefaultSchemas()...),
		logger:   log,
	}
}

func (s *Service) Registry() *Registry {
	return s.registry
}

// ReloadRules satisfies the config-event reloader contract; schema updates
// arrive on the same bus as rule updates.
func (s *Service) ReloadRules(ctx context.Context, _ ...bool) error {
	return s.ReloadSchemas(ctx)
}

func (s *Service) ReloadSchemas(ctx context.Context) error {
	stored, err := s.repo.GetSchemas(ctx)
	if err != nil {
		return err
	}

	merged := make(map[string]models.EventSchema)
	for _, schema := range DefaultSchemas() {
		merged[schema.Code] = schema
	}
	for _, schema := range stored {
		merged[schema.Code] = schema
	}

	schemas := make([]models.EventSchema, 0, len(merged))
	for _, schema := range merged {
		schemas = append(schemas, schema)
	}
	s.registry.ReplaceAll(schemas)

	s.logger.InfowCtx(ctx, "Event schema catalog reloaded",
		"schemas_count", len(schemas),
		"stored_count", len(stored),
	)
	return nil
}
