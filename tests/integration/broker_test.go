package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"

	"relay/internal/broker"
	"relay/internal/config"
	apperrors "relay/pkg/errors"
	"relay/pkg/models"
)

func setupKafka(t *testing.T) []string {
	t.Helper()

	ctx := context.Background()

	container, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0",
		kafkamodule.WithClusterID("test-cluster"),
	)
	if err != nil {
		t.Fatalf("failed to start kafka container: %v", err)
	}
	t.Cleanup(func() {
		container.Terminate(ctx)
	})

	brokers, err := container.Brokers(ctx)
	if err != nil {
		t.Fatalf("failed to get kafka brokers: %v", err)
	}

	return brokers
}

func TestKafkaProducerConsumerRoundTrip(t *testing.T) {
	brokers := setupKafka(t)
	log := createTestLogger()

	cfg := config.KafkaConfig{
		Brokers: brokers,
		GroupID: "integration-roundtrip",
	}

	producer := broker.NewKafkaProducer(cfg, log)
	t.Cleanup(func() {
		producer.Close()
	})

	consumer := broker.NewKafkaConsumer(cfg, log)
	consumer.SetServiceName("integration-test")
	t.Cleanup(func() {
		consumer.Close()
	})

	received := make(chan models.Envelope, 1)

	consumeCtx, cancelConsume := context.WithCancel(context.Background())
	t.Cleanup(cancelConsume)

	go func() {
		_ = consumer.Consume(consumeCtx, "roundtrip_events", func(ctx context.Context, env models.Envelope) error {
			select {
			case received <- env:
			default:
			}
			return nil
		})
	}()

	// give the reader a moment to join the group before producing
	time.Sleep(5 * time.Second)

	sent := createTestEnvelope("env-roundtrip", "integration-test", "asset.changed", map[string]interface{}{
		"status": "active",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, producer.Publish(ctx, "roundtrip_events", sent))

	select {
	case got := <-received:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, sent.Type, got.Type)
		assert.Equal(t, "active", got.Data["status"])
	case <-time.After(60 * time.Second):
		t.Fatal("timed out waiting for envelope")
	}
}

func TestKafkaConsumerRoutesFailuresToDLQ(t *testing.T) {
	brokers := setupKafka(t)
	log := createTestLogger()

	cfg := config.KafkaConfig{
		Brokers:  brokers,
		GroupID:  "integration-dlq",
		DLQTopic: "dead_letter_events",
		Retry: config.RetryConfig{
			MaxAttempts:     2,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     200 * time.Millisecond,
		},
	}

	producer := broker.NewKafkaProducer(cfg, log)
	t.Cleanup(func() {
		producer.Close()
	})

	failing := broker.NewKafkaConsumer(cfg, log)
	failing.SetServiceName("integration-test")
	t.Cleanup(func() {
		failing.Close()
	})

	consumeCtx, cancelConsume := context.WithCancel(context.Background())
	t.Cleanup(cancelConsume)

	var attempts int
	var mu sync.Mutex
	go func() {
		_ = failing.Consume(consumeCtx, "poison_events", func(ctx context.Context, env models.Envelope) error {
			mu.Lock()
			attempts++
			mu.Unlock()
			return apperrors.ErrInternal.WithDetail("message", "handler rejects everything")
		})
	}()

	dlqConsumer := broker.NewKafkaConsumer(config.KafkaConfig{
		Brokers: brokers,
		GroupID: "integration-dlq-reader",
	}, log)
	dlqConsumer.SetServiceName("integration-test")
	t.Cleanup(func() {
		dlqConsumer.Close()
	})

	dlqReceived := make(chan models.Envelope, 1)
	go func() {
		_ = dlqConsumer.Consume(consumeCtx, "dead_letter_events", func(ctx context.Context, env models.Envelope) error {
			select {
			case dlqReceived <- env:
			default:
			}
			return nil
		})
	}()

	time.Sleep(5 * time.Second)

	sent := createTestEnvelope("env-poison", "integration-test", "asset.changed", map[string]interface{}{
		"status": "active",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, producer.Publish(ctx, "poison_events", sent))

	select {
	case got := <-dlqReceived:
		assert.Equal(t, sent.ID, got.ID)
		reason, ok := got.GetDataField("dlq_reason")
		require.True(t, ok)
		assert.NotEmpty(t, reason)
		sourceTopic, _ := got.GetDataField("dlq_source_topic")
		assert.Equal(t, "poison_events", sourceTopic)
	case <-time.After(90 * time.Second):
		t.Fatal("timed out waiting for DLQ envelope")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, attempts, 2)
}
