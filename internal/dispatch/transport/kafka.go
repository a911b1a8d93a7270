package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"campaign/internal/dispatch/models"
)

// KafkaConfig configures the outbound mail producer.
type KafkaConfig struct {
	Brokers           []string
	Topic             string
	ClientID          string
	SendTimeout       time.Duration
	EnsureTopic       bool
	Partitions        int32
	ReplicationFactor int16
}

// Kafka publishes one record per message to the mail subsystem's topic,
// keyed by recipient so retries for the same recipient stay ordered.
type Kafka struct {
	client  *kgo.Client
	topic   string
	timeout time.Duration
	logger  *slog.Logger
}

func NewKafka(ctx context.Context, cfg KafkaConfig, logger *slog.Logger) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(0),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping kafka: %w", err)
	}
	if cfg.EnsureTopic {
		if err := ensureTopic(ctx, client, cfg); err != nil {
			client.Close()
			return nil, err
		}
	}
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Kafka{client: client, topic: cfg.Topic, timeout: timeout, logger: logger}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, cfg KafkaConfig) error {
	adm := kadm.NewClient(client)
	partitions := cfg.Partitions
	if partitions <= 0 {
		partitions = 1
	}
	replication := cfg.ReplicationFactor
	if replication <= 0 {
		replication = 1
	}
	resp, err := adm.CreateTopic(ctx, partitions, replication, nil, cfg.Topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", cfg.Topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", cfg.Topic, resp.Err)
	}
	return nil
}

func (t *Kafka) Send(ctx context.Context, msg models.Message) (bool, error) {
	value, err := json.Marshal(msg)
	if err != nil {
		return false, fmt.Errorf("encode message: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	rec := &kgo.Record{
		Topic: t.topic,
		Key:   []byte(msg.RecipientID.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "job_id", Value: []byte(msg.JobID.String())},
			{Key: "content-type", Value: []byte("application/json")},
		},
	}
	if err := t.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return false, fmt.Errorf("produce to %s: %w", t.topic, err)
	}
	return true, nil
}

// Health pings the brokers.
func (t *Kafka) Health(ctx context.Context) error {
	return t.client.Ping(ctx)
}

// Close flushes buffered records and closes the client.
func (t *Kafka) Close(ctx context.Context) error {
	err := t.client.Flush(ctx)
	t.client.Close()
	return err
}
