package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/ocean-sample-etl/internal/config"
	"github.com/couchcryptid/ocean-sample-etl/internal/domain"
	"github.com/couchcryptid/ocean-sample-etl/internal/pipeline"
	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	maxAttempts    = 5
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// RunCompleted announces a finished extraction so trainers can pick up its
// artefacts.
type RunCompleted struct {
	Name       string       `json:"name"`
	OutputDir  string       `json:"output_dir"`
	Features   int          `json:"features"`
	TrainRows  int          `json:"train_rows"`
	ValRows    int          `json:"val_rows"`
	TestRows   int          `json:"test_rows"`
	MaxDeltaT  domain.Float `json:"max_delta_t"`
	MinDeltaT  domain.Float `json:"min_delta_t"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Notifier publishes a RunCompleted event per run.
// It implements pipeline.Loader.
type Notifier struct {
	writer    messageWriter
	outputDir string
	logger    *slog.Logger
	backoff   time.Duration
}

// NewNotifier creates a Kafka producer for the configured notify topic.
func NewNotifier(cfg *config.Config, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaNotifyTopic,
		Balancer:               &kafkago.LeastBytes{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Notifier{writer: w, outputDir: cfg.OutputDir, logger: logger, backoff: initialBackoff}
}

// Load publishes the completion event for res, retrying with exponential
// backoff until it is accepted or the attempts run out.
func (n *Notifier) Load(ctx context.Context, res *pipeline.Result) error {
	msg, err := serializeToMessage(newRunCompleted(res, n.outputDir))
	if err != nil {
		return err
	}

	backoff := n.backoff
	for attempt := 1; ; attempt++ {
		err = n.writer.WriteMessages(ctx, msg)
		if err == nil {
			n.logger.Info("run completion published", "name", res.Name, "attempt", attempt)
			return nil
		}
		if attempt == maxAttempts {
			return fmt.Errorf("publish run completion after %d attempts: %w", attempt, err)
		}
		n.logger.Warn("publish run completion failed, retrying",
			"attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

// Close flushes and closes the producer.
func (n *Notifier) Close() error {
	return n.writer.Close()
}

func newRunCompleted(res *pipeline.Result, outputDir string) RunCompleted {
	return RunCompleted{
		Name:       res.Name,
		OutputDir:  outputDir,
		Features:   res.Run.FeatureCount(),
		TrainRows:  res.Train.Rows(),
		ValRows:    res.Val.Rows(),
		TestRows:   res.Test.Rows(),
		MaxDeltaT:  domain.Float(res.Summary.Max),
		MinDeltaT:  domain.Float(res.Summary.Min),
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
	}
}

// serializeToMessage marshals a RunCompleted event into a Kafka message.
func serializeToMessage(event RunCompleted) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize run completion: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.Name),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte("run_completed")},
			{Key: "finished_at", Value: []byte(event.FinishedAt.Format(time.RFC3339))},
		},
	}, nil
}
