package dispatch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"relay/internal/assets"
	"relay/internal/broker"
	"relay/internal/catalog"
	"relay/internal/config"
	"relay/internal/constants"
	"relay/internal/logger"
	"relay/internal/tenant"
	apperrors "relay/pkg/errors"
	"relay/pkg/metrics"
	"relay/pkg/models"
	"relay/pkg/tracing"
)

// Service fans a classified asset change out to every subscriber tenant.
// All collaborators are injected once at construction and hold their own
// connection state.
type Service struct {
	cfg      config.DispatchConfig
	schemas  *catalog.Registry
	metadata assets.MetadataSource
	presign  assets.PresignSource
	tenants  tenant.Resolver
	delivery Deliverer
	producer broker.Producer
	busTopic string
	logger   logger.Logger
}

func NewService(
	cfg config.DispatchConfig,
	schemas *catalog.Registry,
	metadata assets.MetadataSource,
	presign assets.PresignSource,
	tenants tenant.Resolver,
	delivery Deliverer,
	producer broker.Producer,
	busTopic string,
	log logger.Logger,
) *Service {
	if busTopic == "" {
		busTopic = constants.DefaultBusTopic
	}
	return &Service{
		cfg:      cfg,
		schemas:  schemas,
		metadata: metadata,
		presign:  presign,
		tenants:  tenants,
		delivery: delivery,
		producer: producer,
		busTopic: busTopic,
		logger:   log,
	}
}

// Dispatch runs the full pipeline for one inbound asset-change notification:
// validate type, fetch metadata, check eligibility, fetch the shared read URL
// once, normalize subscribers, then fan out. Errors before the fan-out
// propagate; errors inside it are captured per tenant and never escape.
func (s *Service) Dispatch(ctx context.Context, eventType, host, path string) (*Result, error) {
	ctx, span := tracing.GetTracer("dispatch-service").Start(ctx, "dispatch.asset_change")
	defer span.End()

	start := time.Now()
	result, err := s.dispatch(ctx, eventType, host, path)

	status := "error"
	if err == nil {
		status = string(result.Status)
	}
	metrics.DispatchInvocationsTotal.WithLabelValues(status).Inc()
	metrics.ObserveDispatchDuration(time.Since(start), status)

	return result, err
}

func (s *Service) dispatch(ctx context.Context, eventType, host, path string) (*Result, error) {
	if eventType != s.cfg.EventType {
		return nil, apperrors.ErrWrongEventType.WithDetail("event_type", eventType)
	}

	record, err := s.metadata.FetchMetadata(ctx, host, path)
	if err != nil {
		return nil, err
	}

	if !Eligible(record) {
		s.logger.InfowCtx(ctx, "Asset change not eligible for sync, skipping",
			"asset_id", record.ID,
			"path", record.Path,
		)
		return &Result{Status: StatusNoop}, nil
	}

	// fetched exactly once per invocation, shared by all subscribers
	readURL, err := s.presign.FetchReadURL(ctx, host, path)
	if err != nil {
		return nil, err
	}

	subscribers, err := NormalizeSubscribers(record)
	if err != nil {
		return nil, err
	}

	classification := Classify(record)
	s.logger.InfowCtx(ctx, "Dispatching asset change",
		"asset_id", record.ID,
		"classification", classification,
		"subscribers_count", len(subscribers),
	)

	outcomes := make([]Outcome, len(subscribers))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.workerLimit())
	for i, tenantID := range subscribers {
		i, tenantID := i, tenantID
		g.Go(func() error {
			outcomes[i] = s.dispatchTenant(gCtx, tenantID, record, classification, readURL)
			return nil
		})
	}
	// workers never return errors; failures live in their outcome slot
	_ = g.Wait()

	return &Result{
		Status:         StatusCompleted,
		Classification: classification,
		Outcomes:       outcomes,
	}, nil
}

func (s *Service) workerLimit() int {
	if s.cfg.MaxConcurrentDeliveries > 0 {
		return s.cfg.MaxConcurrentDeliveries
	}
	return constants.DefaultMaxConcurrentDeliveries
}

// dispatchTenant handles one subscriber end to end. Nothing it does can fail
// the batch: every failure is logged and recorded on the returned outcome.
func (s *Service) dispatchTenant(ctx context.Context, tenantID string, record *assets.Record, classification Classification, readURL string) Outcome {
	outcome := Outcome{TenantID: tenantID}

	rec, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		outcome.Error = err.Error()
		s.logger.ErrorwCtx(ctx, "Tenant lookup failed",
			"error", err,
			"tenant_id", tenantID,
		)
		return outcome
	}
	if rec == nil {
		outcome.SkipReason = "tenant not found"
		s.logger.WarnwCtx(ctx, "Subscriber tenant not registered, skipping",
			"tenant_id", tenantID,
		)
		return outcome
	}
	if !rec.Enabled {
		outcome.SkipReason = "tenant disabled"
		s.logger.InfowCtx(ctx, "Subscriber tenant disabled, skipping",
			"tenant_id", tenantID,
		)
		return outcome
	}

	env, schema, err := s.buildEnvelope(tenantID, record, classification, readURL)
	if err != nil {
		outcome.Error = err.Error()
		s.logger.ErrorwCtx(ctx, "Envelope build failed",
			"error", err,
			"tenant_id", tenantID,
			"classification", classification,
		)
		return outcome
	}

	if err := s.delivery.Deliver(ctx, rec, env, schema); err != nil {
		outcome.Error = err.Error()
		s.logger.ErrorwCtx(ctx, "Webhook delivery failed",
			"error", err,
			"tenant_id", tenantID,
			"endpoint", rec.EndpointURL,
		)
		return outcome
	}
	outcome.Delivered = true

	// only delivered envelopes reach the bus, stamped with our issuer id
	env.Source = s.cfg.IssuerID
	if err := s.producer.Publish(ctx, s.busTopic, *env); err != nil {
		metrics.BusPublishesTotal.WithLabelValues("error").Inc()
		outcome.Error = err.Error()
		s.logger.ErrorwCtx(ctx, "Bus publish failed after delivery",
			"error", err,
			"tenant_id", tenantID,
		)
		return outcome
	}
	metrics.BusPublishesTotal.WithLabelValues("success").Inc()
	outcome.Published = true

	return outcome
}

func (s *Service) buildEnvelope(tenantID string, record *assets.Record, classification Classification, readURL string) (*models.Envelope, models.EventSchema, error) {
	code := catalog.EventTypeAssetSyncNew
	if classification == ClassificationUpdate {
		code = catalog.EventTypeAssetSyncUpdate
	}

	schema, ok := s.schemas.Get(code)
	if !ok {
		return nil, models.EventSchema{}, apperrors.ErrWrongEventType.WithDetail("event_type", code)
	}

	env, err := models.NewEnvelopeBuilder(schema).
		WithSource(record.SourceHost).
		WithField("asset_id", record.ID).
		WithField("path", record.Path).
		WithField("metadata", record.Metadata).
		WithField("tenant_id", tenantID).
		WithField("presigned_url", readURL).
		Build()
	if err != nil {
		return nil, models.EventSchema{}, err
	}

	return env, schema, nil
}
