package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout    = 10 * time.Second
	DefaultWebhookTimeout = 15 * time.Second
)

const (
	CacheKeyPrefixTenant = "tenant:"
)

const (
	DefaultInputTopic  = "inbound_events"
	DefaultRoutedTopic = "routed_events"
	DefaultBusTopic    = "relay_events"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultMongoDBName = "relay"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

const (
	DefaultMaxConcurrentDeliveries = 4
	DefaultTenantCacheTTLSeconds   = 300
)

const (
	HeaderWebhookSecret    = "X-Webhook-Secret"
	HeaderWebhookSignature = "X-Webhook-Signature"
	HeaderAPIKey           = "X-Api-Key"
)
