package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/jittakal/sentimentetl/internal/config/dto"
	"github.com/jittakal/sentimentetl/internal/errors"
)

// MetricsCollector defines metrics operations for notifications.
type MetricsCollector interface {
	IncNotifications(status string)
}

// MessageSender is the part of sarama.SyncProducer the notifier uses.
type MessageSender interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
	Close() error
}

// Notifier publishes run events to Kafka.
type Notifier struct {
	producer MessageSender
	topic    string
	source   string
	logger   *slog.Logger
	metrics  MetricsCollector
	mu       sync.RWMutex
	closed   bool
}

// New creates a Notifier with a sarama SyncProducer built from cfg.
func New(cfg dto.NotifyConfig, logger *slog.Logger, metrics MetricsCollector) (*Notifier, error) {
	saramaConfig, err := producerConfig(cfg)
	if err != nil {
		return nil, err
	}

	producer, err := sarama.NewSyncProducer(cfg.BootstrapServers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync producer: %w", err)
	}

	logger.Info("notifier created",
		"bootstrap_servers", cfg.BootstrapServers,
		"topic", cfg.Topic,
		"security_protocol", cfg.SecurityProtocol,
	)

	return NewWithProducer(producer, cfg.Topic, cfg.Source, logger, metrics), nil
}

// NewWithProducer creates a Notifier around an existing producer.
func NewWithProducer(producer MessageSender, topic, source string, logger *slog.Logger, metrics MetricsCollector) *Notifier {
	if source == "" {
		source = DefaultSource
	}
	return &Notifier{
		producer: producer,
		topic:    topic,
		source:   source,
		logger:   logger,
		metrics:  metrics,
	}
}

func producerConfig(cfg dto.NotifyConfig) (*sarama.Config, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V2_8_0_0
	saramaConfig.ClientID = cfg.Source
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 5
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1

	if cfg.TimeoutSeconds > 0 {
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		saramaConfig.Net.DialTimeout = timeout
		saramaConfig.Net.WriteTimeout = timeout
		saramaConfig.Producer.Timeout = timeout
	}

	if err := configureSecurity(saramaConfig, cfg); err != nil {
		return nil, fmt.Errorf("failed to configure security: %w", err)
	}
	if err := saramaConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid producer config: %w", err)
	}
	return saramaConfig, nil
}

// Notify sends the run summary as a CloudEvent keyed by run ID.
func (n *Notifier) Notify(ctx context.Context, summary RunSummary) error {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return errors.ErrPublisherClosed
	}
	if err := ctx.Err(); err != nil {
		n.record("failure")
		return err
	}

	event, err := NewEvent(n.source, summary)
	if err != nil {
		n.record("failure")
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		n.record("failure")
		return fmt.Errorf("failed to marshal CloudEvent: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(summary.RunID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("ce_specversion"), Value: []byte(event.SpecVersion())},
			{Key: []byte("ce_type"), Value: []byte(event.Type())},
			{Key: []byte("ce_source"), Value: []byte(event.Source())},
			{Key: []byte("ce_id"), Value: []byte(event.ID())},
		},
		Timestamp: event.Time(),
	}

	partition, offset, err := n.producer.SendMessage(msg)
	if err != nil {
		n.record("failure")
		n.logger.Error("failed to send run notification",
			"error", err,
			"topic", n.topic,
			"run_id", summary.RunID,
		)
		return fmt.Errorf("failed to send run notification: %w", err)
	}

	n.record("success")
	n.logger.Info("sent run notification",
		"topic", n.topic,
		"partition", partition,
		"offset", offset,
		"event_type", event.Type(),
		"run_id", summary.RunID,
	)
	return nil
}

func (n *Notifier) record(status string) {
	if n.metrics != nil {
		n.metrics.IncNotifications(status)
	}
}

// Close closes the producer.
func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true

	if err := n.producer.Close(); err != nil {
		return fmt.Errorf("failed to close producer: %w", err)
	}
	n.logger.Info("notifier closed")
	return nil
}
