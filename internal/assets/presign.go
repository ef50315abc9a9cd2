package assets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"relay/internal/config"
	"relay/internal/constants"
	"relay/internal/logger"
	"relay/pkg/circuitbreaker"
	apperrors "relay/pkg/errors"
	"relay/pkg/metrics"
)

// PresignSource mints a shared read URL for an asset. The URL is fetched
// once per dispatch invocation and handed to every subscriber.
type PresignSource interface {
	FetchReadURL(ctx context.Context, host, path string) (string, error)
}

type PresignClient struct {
	cfg     config.UpstreamConfig
	client  *http.Client
	breaker *circuitbreaker.Breaker
	logger  logger.Logger
}

func NewPresignClient(cfg config.UpstreamConfig, breaker *circuitbreaker.Breaker, log logger.Logger) *PresignClient {
	return &PresignClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: constants.DefaultHTTPTimeout,
		},
		breaker: breaker,
		logger:  log,
	}
}

func (c *PresignClient) FetchReadURL(ctx context.Context, host, path string) (string, error) {
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

	metrics.ObserveUpstreamDuration("presign", time.Since(start))
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("presign", "error").Inc()
		return "", apperrors.Wrap(err, apperrors.ErrUpstreamFetch)
	}
	metrics.UpstreamRequestsTotal.WithLabelValues("presign", "success").Inc()

	return result.(string), nil
}

func (c *PresignClient) fetch(ctx context.Context, host, path string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"host": host,
		"path": path,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal presign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	if c.cfg.APIKey != "" {
		req.Header.Set(constants.HeaderAPIKey, c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("presign request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		return "", fmt.Errorf("presign source returned status: %d", resp.StatusCode)
	}

	var body struct {
		Data struct {
			PresignedURL string `json:"presignedUrl"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode presign response: %w", err)
	}

	if body.Data.PresignedURL == "" {
		return "", fmt.Errorf("presign response missing presignedUrl")
	}

	return body.Data.PresignedURL, nil
}
