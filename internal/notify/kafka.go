package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// messageWriter is the part of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaDelivery publishes notifications keyed by client id behind a circuit breaker.
type KafkaDelivery struct {
	writer  messageWriter
	breaker *gobreaker.CircuitBreaker
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	// Consecutive failures that open the breaker. Default 5.
	FailureThreshold uint32
	// How long the breaker stays open before probing. Default 30s.
	OpenTimeout time.Duration
}

func NewKafkaDelivery(cfg KafkaConfig, logger *slog.Logger) *KafkaDelivery {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	return newKafkaDelivery(writer, cfg, logger)
}

func newKafkaDelivery(writer messageWriter, cfg KafkaConfig, logger *slog.Logger) *KafkaDelivery {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	timeout := cfg.OpenTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "kafka-notify",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &KafkaDelivery{writer: writer, breaker: breaker}
}

type payload struct {
	ClientID string    `json:"client_id"`
	Message  string    `json:"message"`
	SentAt   time.Time `json:"sent_at"`
}

func (k *KafkaDelivery) Deliver(ctx context.Context, msg Message) error {
	value, err := json.Marshal(payload{ClientID: msg.ClientID, Message: msg.Text, SentAt: msg.SentAt})
	if err != nil {
		return fmt.Errorf("encode notification failed: %w", err)
	}

	km := kafka.Message{
		Key:   []byte(msg.ClientID),
		Value: value,
		Time:  msg.SentAt,
	}
	carrier := &headerCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	km.Headers = carrier.headers

	_, err = k.breaker.Execute(func() (any, error) {
		return nil, k.writer.WriteMessages(ctx, km)
	})
	if err != nil {
		return fmt.Errorf("publish notification failed: %w", err)
	}
	return nil
}

func (k *KafkaDelivery) Close() error {
	return k.writer.Close()
}

// headerCarrier adapts Kafka headers to the otel propagator.
type headerCarrier struct {
	headers []kafka.Header
}

func (c *headerCarrier) Get(key string) string {
	for _, h := range c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

func (c *headerCarrier) Set(key, value string) {
	for i := range c.headers {
		if c.headers[i].Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

var _ propagation.TextMapCarrier = (*headerCarrier)(nil)
