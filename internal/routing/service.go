package routing

import (
	"context"
	"math/rand"
	"time"

	"relay/internal/config"
	"relay/internal/logger"
	"relay/pkg/metrics"
	"relay/pkg/models"
	"relay/pkg/tracing"
)

// Service couples the in-memory rule store with its Postgres source and the
// reload loop. The store itself stays usable as a standalone decision
// component; the service is what the pipeline worker talks to.
type Service struct {
	repo       Repository
	store      *Store
	routingCfg config.RoutingConfig
	logger     logger.Logger
}

func NewService(repo Repository, cfg config.RoutingConfig, log logger.Logger, opts ...StoreOption) *Service {
	return &Service{
		repo:       repo,
		store:      NewStore(opts...),
		routingCfg: cfg,
		logger:     log,
	}
}

func (s *Service) Store() *Store {
	return s.store
}

// Evaluate runs the rule chain for an envelope consumed from the pipeline.
func (s *Service) Evaluate(ctx context.Context, env models.Envelope, direction Direction, tenantID string) []EvaluationResult {
	ctx, span := tracing.GetTracer("routing-service").Start(ctx, "routing.evaluate")
	defer span.End()

	start := time.Now()
	results := s.store.EvaluateRules(env.Type, env.Data, direction, tenantID)

	status := "no_match"
	for _, r := range results {
		if r.Matched {
			status = "matched"
			break
		}
	}

	metrics.RoutingMessagesTotal.WithLabelValues(status).Inc()
	metrics.ObserveRoutingDuration(time.Since(start), status)

	s.logger.DebugwCtx(ctx, "Rule chain evaluated",
		"event_type", env.Type,
		"rules_evaluated", len(results),
		"status", status,
	)

	return results
}

func (s *Service) ReloadRules(ctx context.Context, skipJitter ...bool) error {
	shouldSkipJitter := len(skipJitter) > 0 && skipJitter[0]

	if err := s.applyJitter(ctx, shouldSkipJitter); err != nil {
		return err
	}

	rules, err := s.repo.GetActiveRules(ctx)
	if err != nil {
		return err
	}

	s.store.ReplaceAll(rules)

	metrics.SetRoutingActiveRules(len(rules))
	s.logger.InfowCtx(ctx, "Successfully reloaded rules",
		"rules_count", len(rules),
	)
	return nil
}

// applyJitter spreads reloads across instances so a shared rule change does
// not hammer the database from every replica at once.
func (s *Service) applyJitter(ctx context.Context, skipJitter bool) error {
	if skipJitter || s.routingCfg.Reload.JitterMaxMilliseconds == 0 {
		return nil
	}

	jitter := time.Duration(rand.Intn(s.routingCfg.Reload.JitterMaxMilliseconds)) * time.Millisecond
	s.logger.DebugwCtx(ctx, "Reload scheduled with jitter",
		"jitter_ms", jitter.Milliseconds(),
	)

	select {
	case <-time.After(jitter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) StartReloader(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(s.routingCfg.Reload.IntervalSeconds) * time.Second)
	defer ticker.Stop()

	if err := s.ReloadRules(ctx); err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to reload rules",
			"error", err,
		)
	}

	for {
		select {
		case <-ticker.C:
			if err := s.ReloadRules(ctx); err != nil {
				s.logger.ErrorwCtx(ctx, "Failed to reload rules",
					"error", err,
				)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
