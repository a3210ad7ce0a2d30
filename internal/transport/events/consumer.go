package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quiz-pipeline-service/internal/app"
	"quiz-pipeline-service/internal/domain"
	"quiz-pipeline-service/internal/logging"
	"quiz-pipeline-service/internal/metrics"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/rs/zerolog"
)

// Aggregator is the profile-mutating side of the consumer.
type Aggregator interface {
	ApplyQuizResult(ctx context.Context, ev domain.QuizResultEvent) (bool, error)
	ApplyCourseCompleted(ctx context.Context, ev domain.CourseCompletedEvent) (bool, error)
}

// ConsumerConfig tunes the router. Retry covers storage failures only; malformed payloads
// are never retried.
type ConsumerConfig struct {
	CloseTimeout time.Duration
	Retry        app.RetryPolicy
	PoisonTopic  string
}

// Consumer runs the long-lived event loop feeding the preference aggregator.
type Consumer struct {
	router *message.Router
	agg    Aggregator
	logger zerolog.Logger
}

// NewConsumer wires one router handler per consumed topic. poison may be nil, in which case
// messages that exhaust retries are nacked back to the broker.
func NewConsumer(sub message.Subscriber, poison message.Publisher, agg Aggregator, cfg ConsumerConfig, logger zerolog.Logger) (*Consumer, error) {
	logger = logger.With().Str("component", "consumer").Logger()
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = 10 * time.Second
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logging.NewWatermillAdapter(logger))
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	// Outermost first: poison queue sees an error only once retries are spent.
	if poison != nil && cfg.PoisonTopic != "" {
		poisonQueue, err := middleware.PoisonQueue(poison, cfg.PoisonTopic)
		if err != nil {
			return nil, fmt.Errorf("create poison queue middleware: %w", err)
		}
		router.AddMiddleware(poisonQueue)
	}
	retry := middleware.Retry{
		MaxRetries:      cfg.Retry.MaxRetries,
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     cfg.Retry.MaxInterval,
		Multiplier:      2,
		Logger:          logging.NewWatermillAdapter(logger),
	}
	router.AddMiddleware(retry.Middleware, middleware.Recoverer)

	c := &Consumer{router: router, agg: agg, logger: logger}
	for _, topic := range []string{domain.TopicQuizResult, domain.TopicCourseCompleted} {
		topic := topic
		router.AddNoPublisherHandler(topic+"-aggregator", topic, sub, func(msg *message.Message) error {
			return c.Process(msg.Context(), topic, msg.UUID, msg.Payload)
		})
	}
	return c, nil
}

// Run blocks until ctx is cancelled or the router is closed.
func (c *Consumer) Run(ctx context.Context) error {
	return c.router.Run(ctx)
}

// Running is closed once all handlers are subscribed.
func (c *Consumer) Running() chan struct{} {
	return c.router.Running()
}

func (c *Consumer) Close() error {
	return c.router.Close()
}

// Process decodes and applies one delivery. Malformed payloads are logged and acknowledged;
// only aggregator failures are returned so the router can retry them.
func (c *Consumer) Process(ctx context.Context, topic, messageID string, payload []byte) error {
	ev, err := Decode(topic, payload)
	if err != nil {
		metrics.EventsConsumed.WithLabelValues(topic, "malformed").Inc()
		c.logger.Warn().Err(err).Str("topic", topic).Str("message_id", messageID).Msg("skipping undecodable event")
		return nil
	}

	var applied bool
	switch e := ev.(type) {
	case QuizResultReceived:
		applied, err = c.agg.ApplyQuizResult(ctx, e.QuizResultEvent)
	case CourseCompletedReceived:
		applied, err = c.agg.ApplyCourseCompleted(ctx, e.CourseCompletedEvent)
	default:
		err = fmt.Errorf("%w: %T", domain.ErrUnknownEventKind, ev)
	}
	if errors.Is(err, domain.ErrUnknownEventKind) {
		metrics.EventsConsumed.WithLabelValues(topic, "malformed").Inc()
		c.logger.Warn().Err(err).Str("topic", topic).Msg("skipping unhandled event kind")
		return nil
	}
	if err != nil {
		metrics.EventsConsumed.WithLabelValues(topic, "failed").Inc()
		c.logger.Error().Err(err).Str("topic", topic).Str("user_id", ev.UserID()).Str("message_id", messageID).Msg("apply event")
		return err
	}

	outcome := "applied"
	if !applied {
		outcome = "duplicate"
	}
	metrics.EventsConsumed.WithLabelValues(topic, outcome).Inc()
	c.logger.Debug().Str("topic", topic).Str("user_id", ev.UserID()).Str("outcome", outcome).Msg("event processed")
	return nil
}
