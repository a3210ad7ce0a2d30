package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quiz-pipeline-service/internal/app"
	"quiz-pipeline-service/internal/domain"
	"quiz-pipeline-service/internal/metrics"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
)

// DeadLetterStore persists events that exhausted their publish retries.
type DeadLetterStore interface {
	SaveDeadLetter(ctx context.Context, letter domain.DeadLetter) error
	ListDeadLetters(ctx context.Context, limit int) ([]domain.DeadLetter, error)
	DeleteDeadLetter(ctx context.Context, id string) error
}

// BreakerConfig tunes the publish circuit breaker.
type BreakerConfig struct {
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// Publisher emits events with bounded retries behind a circuit breaker. Events that still
// fail are written to the dead-letter store and raise an alert log line.
type Publisher struct {
	pub     message.Publisher
	dead    DeadLetterStore
	retry   app.RetryPolicy
	breaker *gobreaker.CircuitBreaker[interface{}]
	logger  zerolog.Logger
	now     func() time.Time
}

func NewPublisher(pub message.Publisher, dead DeadLetterStore, retry app.RetryPolicy, breaker BreakerConfig, logger zerolog.Logger) *Publisher {
	logger = logger.With().Str("component", "publisher").Logger()
	if breaker.FailureThreshold == 0 {
		breaker.FailureThreshold = 5
	}
	if breaker.OpenTimeout <= 0 {
		breaker.OpenTimeout = 30 * time.Second
	}
	settings := gobreaker.Settings{
		Name:        "broker-publish",
		MaxRequests: 1,
		Timeout:     breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breaker.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	}
	return &Publisher{
		pub:     pub,
		dead:    dead,
		retry:   retry,
		breaker: gobreaker.NewCircuitBreaker[interface{}](settings),
		logger:  logger,
		now:     time.Now,
	}
}

// Publish emits the quiz-result event for a persisted result. The result ID doubles as the
// message ID so brokers with deduplication drop redeliveries of the same result.
func (p *Publisher) Publish(ctx context.Context, result domain.QuizResult) error {
	payload, err := Encode(domain.NewQuizResultEvent(result))
	if err != nil {
		return err
	}
	return p.publish(ctx, domain.TopicQuizResult, result.ID, payload)
}

// PublishQuizCreated announces a stored quiz. The quiz ID is the message ID.
func (p *Publisher) PublishQuizCreated(ctx context.Context, quiz domain.Quiz) error {
	payload, err := Encode(domain.NewQuizCreatedEvent(quiz))
	if err != nil {
		return err
	}
	return p.publish(ctx, domain.TopicQuizCreated, quiz.ID, payload)
}

// PublishCourseCompleted forwards a tracker completion onto the broker.
func (p *Publisher) PublishCourseCompleted(ctx context.Context, ev domain.CourseCompletedEvent) error {
	if ev.Version == 0 {
		ev.Version = domain.EventVersion
	}
	payload, err := Encode(ev)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
	}
	return p.publish(ctx, domain.TopicCourseCompleted, uuid.NewString(), payload)
}

// ReplayDeadLetters re-publishes up to limit stored dead letters and removes the ones that
// were delivered. It returns how many were delivered.
func (p *Publisher) ReplayDeadLetters(ctx context.Context, limit int) (int, error) {
	letters, err := p.dead.ListDeadLetters(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list dead letters: %w", err)
	}
	delivered := 0
	var errs []error
	for _, letter := range letters {
		if _, err := p.deliver(ctx, letter.Topic, letter.ID, letter.Payload); err != nil {
			errs = append(errs, fmt.Errorf("replay %s: %w", letter.ID, err))
			continue
		}
		if err := p.dead.DeleteDeadLetter(ctx, letter.ID); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", letter.ID, err))
			continue
		}
		delivered++
	}
	p.logger.Info().Int("delivered", delivered).Int("remaining", len(letters)-delivered).Msg("dead letters replayed")
	return delivered, errors.Join(errs...)
}

func (p *Publisher) publish(ctx context.Context, topic, id string, payload []byte) error {
	attempts, err := p.deliver(ctx, topic, id, payload)
	if err == nil {
		return nil
	}

	letter := domain.DeadLetter{
		ID:        id,
		Topic:     topic,
		Payload:   payload,
		Error:     err.Error(),
		Attempts:  attempts,
		CreatedAt: p.now().UTC(),
	}
	// The request may already be cancelled; the dead letter must still be written.
	if dlErr := p.dead.SaveDeadLetter(context.WithoutCancel(ctx), letter); dlErr != nil {
		p.logger.Error().Err(dlErr).Bool("alert", true).Str("topic", topic).Str("message_id", id).Msg("dead letter write failed, event lost")
		return errors.Join(err, dlErr)
	}
	metrics.DeadLetters.WithLabelValues(topic).Inc()
	p.logger.Error().Err(err).Bool("alert", true).
		Str("topic", topic).
		Str("message_id", id).
		Int("attempts", attempts).
		Msg("event dead-lettered after retry exhaustion")
	return fmt.Errorf("publish %s: %w", topic, err)
}

func (p *Publisher) deliver(ctx context.Context, topic, id string, payload []byte) (int, error) {
	attempts := 0
	op := func() error {
		attempts++
		msg := message.NewMessage(id, payload)
		msg.Metadata.Set("event_type", topic)
		msg.SetContext(ctx)
		_, err := p.breaker.Execute(func() (interface{}, error) {
			return nil, p.pub.Publish(topic, msg)
		})
		return err
	}
	notify := func(err error, wait time.Duration) {
		metrics.PublishRetries.WithLabelValues(topic).Inc()
		p.logger.Debug().Err(err).Str("topic", topic).Dur("retry_in", wait).Msg("publish failed, retrying")
	}
	if err := backoff.RetryNotify(op, p.retry.BackOff(ctx), notify); err != nil {
		return attempts, err
	}
	metrics.EventsPublished.WithLabelValues(topic).Inc()
	return attempts, nil
}
