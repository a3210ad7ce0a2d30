// Package events carries quiz-pipeline events over the broker: encoding, publishing with
// retry and dead-lettering, and the consumer that feeds the preference aggregator.
package events

import (
	"fmt"

	"quiz-pipeline-service/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// Event is the decoded form of a broker message. Exactly one of the concrete types below.
type Event interface {
	Topic() string
	UserID() string
}

// QuizResultReceived wraps a decoded quiz-result payload.
type QuizResultReceived struct {
	domain.QuizResultEvent
}

func (QuizResultReceived) Topic() string    { return domain.TopicQuizResult }
func (e QuizResultReceived) UserID() string { return e.StudentID }

// CourseCompletedReceived wraps a decoded course-completed payload.
type CourseCompletedReceived struct {
	domain.CourseCompletedEvent
}

func (CourseCompletedReceived) Topic() string    { return domain.TopicCourseCompleted }
func (e CourseCompletedReceived) UserID() string { return e.StudentID }

var validate = validator.New()

// Encode serialises a quiz-result or course-completed payload after validating it.
func Encode(v interface{}) ([]byte, error) {
	if err := validate.Struct(v); err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// Decode maps a topic onto its event kind and decodes the payload. A missing version is
// read as version 1, the flat shape external producers send. Extra fields are ignored.
// Unsupported versions and failed validation yield domain.ErrMalformedEvent; unhandled
// topics yield domain.ErrUnknownEventKind.
func Decode(topic string, payload []byte) (Event, error) {
	switch topic {
	case domain.TopicQuizResult:
		var ev domain.QuizResultEvent
		if err := decodeValid(payload, &ev); err != nil {
			return nil, err
		}
		v, err := normalizeVersion(ev.Version)
		if err != nil {
			return nil, err
		}
		ev.Version = v
		return QuizResultReceived{ev}, nil
	case domain.TopicCourseCompleted:
		var ev domain.CourseCompletedEvent
		if err := decodeValid(payload, &ev); err != nil {
			return nil, err
		}
		v, err := normalizeVersion(ev.Version)
		if err != nil {
			return nil, err
		}
		ev.Version = v
		return CourseCompletedReceived{ev}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownEventKind, topic)
	}
}

func decodeValid(payload []byte, into interface{}) error {
	if err := json.Unmarshal(payload, into); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
	}
	if err := validate.Struct(into); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
	}
	return nil
}

func normalizeVersion(v int) (int, error) {
	if v == 0 {
		return 1, nil
	}
	if v > domain.EventVersion {
		return 0, fmt.Errorf("%w: unsupported version %d", domain.ErrMalformedEvent, v)
	}
	return v, nil
}
