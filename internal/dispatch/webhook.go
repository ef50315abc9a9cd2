package dispatch

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"relay/internal/constants"
	"relay/internal/logger"
	"relay/internal/tenant"
	"relay/pkg/metrics"
	"relay/pkg/models"
)

// Deliverer makes the single webhook POST to a tenant endpoint. One attempt,
// no retry; a non-2xx response is a *DeliveryError.
type Deliverer interface {
	Deliver(ctx context.Context, rec *tenant.Record, env *models.Envelope, schema models.EventSchema) error
}

type WebhookDeliverer struct {
	client *http.Client
	logger logger.Logger
}

func NewWebhookDeliverer(timeout time.Duration, log logger.Logger) *WebhookDeliverer {
	if timeout <= 0 {
		timeout = constants.DefaultWebhookTimeout
	}
	return &WebhookDeliverer{
		client: &http.Client{
			Timeout: timeout,
		},
		logger: log,
	}
}

func (d *WebhookDeliverer) Deliver(ctx context.Context, rec *tenant.Record, env *models.Envelope, schema models.EventSchema) error {
	start := time.Now()
	err := d.deliver(ctx, rec, env, schema)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.WebhookDeliveriesTotal.WithLabelValues(status).Inc()
	metrics.ObserveWebhookDuration(time.Since(start), status)

	return err
}

func (d *WebhookDeliverer) deliver(ctx context.Context, rec *tenant.Record, env *models.Envelope, schema models.EventSchema) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rec.EndpointURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", models.ContentTypeJSON)

	if rec.Secret != "" {
		if schema.SecretHeader {
			req.Header.Set(constants.HeaderWebhookSecret, rec.Secret)
		}
		if schema.SignedPayload {
			req.Header.Set(constants.HeaderWebhookSignature, signPayload(body, rec.Secret))
		}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		// bounded read, endpoints can return anything
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &DeliveryError{
			StatusCode: resp.StatusCode,
			Detail:     extractErrorDetail(raw),
		}
	}

	return nil
}

func signPayload(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
