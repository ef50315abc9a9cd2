package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay/internal/assets"
	"relay/internal/catalog"
	"relay/internal/config"
	"relay/internal/logger"
	"relay/internal/tenant"
	apperrors "relay/pkg/errors"
	"relay/pkg/models"
)

type fakeMetadataSource struct {
	record *assets.Record
	err    error
	calls  int
}

func (f *fakeMetadataSource) FetchMetadata(ctx context.Context, host, path string) (*assets.Record, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

type fakePresignSource struct {
	url   string
	err   error
	calls int
}

func (f *fakePresignSource) FetchReadURL(ctx context.Context, host, path string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

type fakeResolver struct {
	mu      sync.Mutex
	tenants map[string]*tenant.Record
	errs    map[string]error
	calls   []string
}

func (f *fakeResolver) GetTenant(ctx context.Context, id string) (*tenant.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, id)
	if err, ok := f.errs[id]; ok {
		return nil, err
	}
	return f.tenants[id], nil
}

type delivery struct {
	tenantID string
	env      models.Envelope
	schema   models.EventSchema
}

type fakeDeliverer struct {
	mu         sync.Mutex
	errs       map[string]error
	deliveries []delivery
}

func (f *fakeDeliverer) Deliver(ctx context.Context, rec *tenant.Record, env *models.Envelope, schema models.EventSchema) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.errs[rec.ID]; ok {
		return err
	}
	// copy before the caller mutates Source for the bus publish
	f.deliveries = append(f.deliveries, delivery{tenantID: rec.ID, env: *env, schema: schema})
	return nil
}

type published struct {
	topic string
	env   models.Envelope
}

type fakeProducer struct {
	mu        sync.Mutex
	err       error
	published []published
}

func (f *fakeProducer) Publish(ctx context.Context, topic string, env models.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, published{topic: topic, env: env})
	return nil
}

func (f *fakeProducer) Close() error { return nil }

type serviceFixture struct {
	service  *Service
	metadata *fakeMetadataSource
	presign  *fakePresignSource
	resolver *fakeResolver
	delivery *fakeDeliverer
	producer *fakeProducer
}

func enabledTenant(id string) *tenant.Record {
	return &tenant.Record{
		ID:          id,
		Name:        id,
		EndpointURL: "https://" + id + ".example.com/hooks",
		Secret:      "s3cret",
		Enabled:     true,
	}
}

func newServiceFixture(record *assets.Record, tenants map[string]*tenant.Record) *serviceFixture {
	f := &serviceFixture{
		metadata: &fakeMetadataSource{record: record},
		presign:  &fakePresignSource{url: "https://cdn.example.com/signed/report.pdf"},
		resolver: &fakeResolver{tenants: tenants, errs: map[string]error{}},
		delivery: &fakeDeliverer{errs: map[string]error{}},
		producer: &fakeProducer{},
	}
	f.service = NewService(
		config.DispatchConfig{
			EventType:               "asset.changed",
			IssuerID:                "relay-dispatch",
			MaxConcurrentDeliveries: 2,
		},
		catalog.NewRegistry(catalog.DefaultSchemas()...),
		f.metadata,
		f.presign,
		f.resolver,
		f.delivery,
		f.producer,
		"relay_events",
		logger.NopLogger(),
	)
	return f
}

func eligibleRecord(metadata map[string]interface{}) *assets.Record {
	base := map[string]interface{}{
		MetadataKeySyncFlag:    true,
		MetadataKeySubscribers: "tenant-1,tenant-2",
	}
	for k, v := range metadata {
		base[k] = v
	}
	return &assets.Record{
		ID:         "asset-1",
		Path:       "/docs/report.pdf",
		SourceHost: "content.example.com",
		Metadata:   base,
	}
}

func TestService_Dispatch_WrongEventType(t *testing.T) {
	f := newServiceFixture(eligibleRecord(nil), nil)

	_, err := f.service.Dispatch(context.Background(), "user.created", "content.example.com", "/docs/report.pdf")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrWrongEventType))
	assert.Equal(t, 0, f.metadata.calls)
}

func TestService_Dispatch_MetadataErrorPropagates(t *testing.T) {
	f := newServiceFixture(nil, nil)
	f.metadata.err = apperrors.ErrUpstreamFetch.WithDetail("upstream", "asset-metadata")

	_, err := f.service.Dispatch(context.Background(), "asset.changed", "content.example.com", "/docs/report.pdf")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUpstreamFetch))
	assert.Equal(t, 0, f.presign.calls)
}

func TestService_Dispatch_NotEligibleIsNoop(t *testing.T) {
	record := eligibleRecord(nil)
	record.Metadata[MetadataKeySyncFlag] = false
	f := newServiceFixture(record, nil)

	result, err := f.service.Dispatch(context.Background(), "asset.changed", "content.example.com", "/docs/report.pdf")
	require.NoError(t, err)

	assert.Equal(t, StatusNoop, result.Status)
	assert.Empty(t, result.Outcomes)
	assert.Equal(t, 0, f.presign.calls)
	assert.Empty(t, f.resolver.calls)
}

func TestService_Dispatch_PresignErrorPropagates(t *testing.T) {
	f := newServiceFixture(eligibleRecord(nil), nil)
	f.presign.err = apperrors.ErrUpstreamFetch.WithDetail("upstream", "presign")

	_, err := f.service.Dispatch(context.Background(), "asset.changed", "content.example.com", "/docs/report.pdf")
	require.Error(t, err)
	assert.Empty(t, f.resolver.calls)
}

func TestService_Dispatch_SubscriberFormatErrorAbortsFanOut(t *testing.T) {
	record := eligibleRecord(map[string]interface{}{
		MetadataKeySubscribers: []interface{}{"tenant-1", 42},
	})
	f := newServiceFixture(record, nil)

	_, err := f.service.Dispatch(context.Background(), "asset.changed", "content.example.com", "/docs/report.pdf")
	require.Error(t, err)
	assert.True(t, apperrors.IsTenantFormat(err))
	// nothing tenant-scoped happened
	assert.Empty(t, f.resolver.calls)
	assert.Empty(t, f.delivery.deliveries)
	assert.Empty(t, f.producer.published)
}

func TestService_Dispatch_FanOut(t *testing.T) {
	f := newServiceFixture(eligibleRecord(nil), map[string]*tenant.Record{
		"tenant-1": enabledTenant("tenant-1"),
		"tenant-2": enabledTenant("tenant-2"),
	})

	result, err := f.service.Dispatch(context.Background(), "asset.changed", "content.example.com", "/docs/report.pdf")
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, ClassificationNew, result.Classification)
	require.Len(t, result.Outcomes, 2)

	// outcome slots follow subscriber order
	assert.Equal(t, "tenant-1", result.Outcomes[0].TenantID)
	assert.Equal(t, "tenant-2", result.Outcomes[1].TenantID)
	for _, outcome := range result.Outcomes {
		assert.True(t, outcome.Delivered)
		assert.True(t, outcome.Published)
		assert.Empty(t, outcome.Error)
	}
	assert.Equal(t, 2, result.DeliveredCount())

	// the read URL is fetched once and shared by every subscriber
	assert.Equal(t, 1, f.presign.calls)
	require.Len(t, f.delivery.deliveries, 2)
	for _, d := range f.delivery.deliveries {
		url, _ := d.env.GetDataField("presigned_url")
		assert.Equal(t, "https://cdn.example.com/signed/report.pdf", url)
		assert.Equal(t, catalog.EventTypeAssetSyncNew, d.env.Type)

		tenantID, _ := d.env.GetDataField("tenant_id")
		assert.Equal(t, d.tenantID, tenantID)
		assetID, _ := d.env.GetDataField("asset_id")
		assert.Equal(t, "asset-1", assetID)

		// the webhook sees the originating host as source
		assert.Equal(t, "content.example.com", d.env.Source)
	}

	// bus envelopes are stamped with our issuer id after delivery
	require.Len(t, f.producer.published, 2)
	for _, p := range f.producer.published {
		assert.Equal(t, "relay_events", p.topic)
		assert.Equal(t, "relay-dispatch", p.env.Source)
	}
}

func TestService_Dispatch_UpdateClassification(t *testing.T) {
	record := eligibleRecord(map[string]interface{}{
		MetadataKeyLastSynced:  "2026-08-30T11:02:00Z",
		MetadataKeySubscribers: "tenant-1",
	})
	f := newServiceFixture(record, map[string]*tenant.Record{
		"tenant-1": enabledTenant("tenant-1"),
	})

	result, err := f.service.Dispatch(context.Background(), "asset.changed", "content.example.com", "/docs/report.pdf")
	require.NoError(t, err)

	assert.Equal(t, ClassificationUpdate, result.Classification)
	require.Len(t, f.delivery.deliveries, 1)
	assert.Equal(t, catalog.EventTypeAssetSyncUpdate, f.delivery.deliveries[0].env.Type)
}

func TestService_Dispatch_PerTenantIsolation(t *testing.T) {
	record := eligibleRecord(map[string]interface{}{
		MetadataKeySubscribers: "lookup-error,unknown,disabled,delivery-error,healthy",
	})
	disabled := enabledTenant("disabled")
	disabled.Enabled = false

	f := newServiceFixture(record, map[string]*tenant.Record{
		"disabled":       disabled,
		"delivery-error": enabledTenant("delivery-error"),
		"healthy":        enabledTenant("healthy"),
	})
	f.resolver.errs["lookup-error"] = errors.New("connection refused")
	f.delivery.errs["delivery-error"] = &DeliveryError{StatusCode: 503}

	result, err := f.service.Dispatch(context.Background(), "asset.changed", "content.example.com", "/docs/report.pdf")
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	require.Len(t, result.Outcomes, 5)

	byTenant := make(map[string]Outcome, len(result.Outcomes))
	for _, o := range result.Outcomes {
		byTenant[o.TenantID] = o
	}

	assert.Contains(t, byTenant["lookup-error"].Error, "connection refused")
	assert.False(t, byTenant["lookup-error"].Delivered)

	assert.Equal(t, "tenant not found", byTenant["unknown"].SkipReason)
	assert.Equal(t, "tenant disabled", byTenant["disabled"].SkipReason)

	assert.Contains(t, byTenant["delivery-error"].Error, "webhook returned status 503")
	assert.False(t, byTenant["delivery-error"].Delivered)
	assert.False(t, byTenant["delivery-error"].Published)

	assert.True(t, byTenant["healthy"].Delivered)
	assert.True(t, byTenant["healthy"].Published)

	assert.Equal(t, 1, result.DeliveredCount())
	require.Len(t, f.producer.published, 1)
}

func TestService_Dispatch_PublishFailureAfterDelivery(t *testing.T) {
	f := newServiceFixture(eligibleRecord(map[string]interface{}{
		MetadataKeySubscribers: "tenant-1",
	}), map[string]*tenant.Record{
		"tenant-1": enabledTenant("tenant-1"),
	})
	f.producer.err = errors.New("broker unavailable")

	result, err := f.service.Dispatch(context.Background(), "asset.changed", "content.example.com", "/docs/report.pdf")
	require.NoError(t, err)

	require.Len(t, result.Outcomes, 1)
	outcome := result.Outcomes[0]
	assert.True(t, outcome.Delivered)
	assert.False(t, outcome.Published)
	assert.Contains(t, outcome.Error, "broker unavailable")
}
