package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const DefaultRunTopic = "import-runs"

// KafkaQueue publishes run jobs to a Kafka topic so a separate worker pool
// can execute them. Keyed by task id, so runs of one task stay ordered
// within a partition.
type KafkaQueue struct {
	producer sarama.SyncProducer
	topic    string
	log      zerolog.Logger
}

func NewKafkaQueue(brokers []string, topic string, log zerolog.Logger) (*KafkaQueue, error) {
	if topic == "" {
		topic = DefaultRunTopic
	}

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaQueue{
		producer: producer,
		topic:    topic,
		log:      log.With().Str("service", "run-queue").Logger(),
	}, nil
}

func (q *KafkaQueue) Enqueue(ctx context.Context, taskID, runID uuid.UUID) error {
	data, err := json.Marshal(RunJob{TaskID: taskID, RunID: runID})
	if err != nil {
		return fmt.Errorf("failed to marshal run job: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: q.topic,
		Key:   sarama.StringEncoder(taskID.String()),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := q.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to write run job to kafka: %w", err)
	}
	q.log.Debug().
		Int32("partition", partition).
		Int64("offset", offset).
		Str("run_id", runID.String()).
		Msg("Run job published")
	return nil
}

func (q *KafkaQueue) Close() error {
	return q.producer.Close()
}

// runConsumer implements sarama.ConsumerGroupHandler for run jobs
type runConsumer struct {
	ready   chan bool
	execute Executor
	log     zerolog.Logger
}

func (c *runConsumer) Setup(sarama.ConsumerGroupSession) error {
	close(c.ready)
	return nil
}

func (c *runConsumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (c *runConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var job RunJob
		if err := json.Unmarshal(message.Value, &job); err != nil {
			c.log.Error().Err(err).Msg("Discarding malformed run job")
			session.MarkMessage(message, "")
			continue
		}
		if err := c.execute(session.Context(), job.TaskID, job.RunID); err != nil {
			c.log.Error().Err(err).
				Str("task_id", job.TaskID.String()).
				Str("run_id", job.RunID.String()).
				Msg("Import run execution failed")
		}
		session.MarkMessage(message, "")
	}
	return nil
}

// StartRunConsumer joins the consumer group and executes delivered run jobs
// until ctx is cancelled. Returns once the consumer is ready.
func StartRunConsumer(ctx context.Context, brokers []string, topic, groupID string, execute Executor, log zerolog.Logger) error {
	if topic == "" {
		topic = DefaultRunTopic
	}

	config := sarama.NewConfig()
	config.Version = sarama.V2_8_0_0
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	client, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return fmt.Errorf("failed to create Kafka consumer group: %w", err)
	}

	consumer := &runConsumer{
		ready:   make(chan bool),
		execute: execute,
		log:     log.With().Str("service", "run-consumer").Logger(),
	}

	go func() {
		for {
			// Consume must be called in a loop: a rebalance ends the
			// session and a new one has to be created for the new claims
			if err := client.Consume(ctx, []string{topic}, consumer); err != nil {
				consumer.log.Error().Err(err).Msg("Consumer session failed")
				time.Sleep(5 * time.Second)
			}
			if ctx.Err() != nil {
				return
			}
			consumer.ready = make(chan bool)
		}
	}()

	<-consumer.ready
	log.Info().Str("topic", topic).Str("group", groupID).Msg("Run consumer started")
	return nil
}
