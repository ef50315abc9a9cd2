package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"relay/internal/config"
	"relay/internal/constants"
	"relay/internal/logger"
	"relay/pkg/circuitbreaker"
	apperrors "relay/pkg/errors"
	"relay/pkg/metrics"
)

// MetadataSource fetches the asset record behind an inbound change
// notification. Implementations make exactly one attempt per call.
type MetadataSource interface {
	FetchMetadata(ctx context.Context, host, path string) (*Record, error)
}

type MetadataClient struct {
	cfg     config.UpstreamConfig
	client  *http.Client
	breaker *circuitbreaker.Breaker
	logger  logger.Logger
}

func NewMetadataClient(cfg config.UpstreamConfig, breaker *circuitbreaker.Breaker, log logger.Logger) *MetadataClient {
	return &MetadataClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: constants.DefaultHTTPTimeout,
		},
		breaker: breaker,
		logger:  log,
	}
}

func (c *MetadataClient) FetchMetadata(ctx context.Context, host, path string) (*Record, error) {
	start := time.Now()

	fetch := func() (interface{}, error) {
		return c.fetch(ctx, host, path)
	}

	var result interface{}
	var err error
	if c.breaker != nil {
		result, err = c.breaker.ExecuteWithContext(ctx, fetch)
		c.breaker.RecordRequest(err == nil)
	} else {
		result, err = fetch()
	}

	metrics.ObserveUpstreamDuration("asset_metadata", time.Since(start))
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("asset_metadata", "error").Inc()
		return nil, apperrors.Wrap(err, apperrors.ErrUpstreamFetch)
	}
	metrics.UpstreamRequestsTotal.WithLabelValues("asset_metadata", "success").Inc()

	return result.(*Record), nil
}

func (c *MetadataClient) fetch(ctx context.Context, host, path string) (*Record, error) {
	endpoint := fmt.Sprintf("%s?host=%s&path=%s",
		c.cfg.Endpoint,
		url.QueryEscape(host),
		url.QueryEscape(path),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	if c.cfg.APIKey != "" {
		req.Header.Set(constants.HeaderAPIKey, c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("asset metadata request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		return nil, fmt.Errorf("asset metadata source returned status: %d", resp.StatusCode)
	}

	var body struct {
		Data Record `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode asset metadata response: %w", err)
	}

	record := body.Data
	if record.SourceHost == "" {
		record.SourceHost = host
	}
	if record.Path == "" {
		record.Path = path
	}

	return &record, nil
}
