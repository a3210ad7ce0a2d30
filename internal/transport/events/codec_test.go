package events_test

import (
	"errors"
	"testing"
	"time"

	"quiz-pipeline-service/internal/domain"
	"quiz-pipeline-service/internal/transport/events"
)

func TestEncodeDecodeQuizResult(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	payload, err := events.Encode(domain.NewQuizResultEvent(domain.QuizResult{
		ID: "r1", QuizID: "q1", StudentID: "s1", Score: 75, Passed: true, CreatedAt: at,
	}))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	ev, err := events.Decode(domain.TopicQuizResult, payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, ok := ev.(events.QuizResultReceived)
	if !ok {
		t.Fatalf("expected QuizResultReceived, got %T", ev)
	}
	if got.UserID() != "s1" || got.Score != 75 || !got.Passed || !got.SubmittedAt.Equal(at) {
		t.Fatalf("unexpected event %+v", got)
	}
}

func TestDecodeRejectsMalformedPayloads(t *testing.T) {
	cases := map[string]struct {
		topic   string
		payload string
	}{
		"not json":         {domain.TopicQuizResult, `{"quizId":`},
		"missing field":    {domain.TopicQuizResult, `{"version":1,"quizId":"q1","score":50,"passed":false,"submittedAt":"2026-03-01T10:00:00Z"}`},
		"score too high":   {domain.TopicQuizResult, `{"version":1,"quizId":"q1","studentId":"s1","score":150,"passed":true,"submittedAt":"2026-03-01T10:00:00Z"}`},
		"negative version": {domain.TopicQuizResult, `{"version":-1,"quizId":"q1","studentId":"s1","score":50,"passed":false,"submittedAt":"2026-03-01T10:00:00Z"}`},
		"future version":   {domain.TopicCourseCompleted, `{"version":9,"studentId":"s1","courseId":"c1","rating":4,"completedAt":"2026-03-01T10:00:00Z"}`},
		"bad rating":       {domain.TopicCourseCompleted, `{"version":1,"studentId":"s1","courseId":"c1","rating":7,"completedAt":"2026-03-01T10:00:00Z"}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := events.Decode(tc.topic, []byte(tc.payload))
			if !errors.Is(err, domain.ErrMalformedEvent) {
				t.Fatalf("expected ErrMalformedEvent, got %v", err)
			}
		})
	}
}

func TestDecodeAcceptsUnversionedProducerPayloads(t *testing.T) {
	completed, err := events.Decode(domain.TopicCourseCompleted,
		[]byte(`{"studentId":"u1","courseId":"c1","rating":4,"completedAt":"2026-03-01T10:00:00Z"}`))
	if err != nil {
		t.Fatalf("decode course-completed: %v", err)
	}
	cc, ok := completed.(events.CourseCompletedReceived)
	if !ok || cc.Version != 1 || cc.CourseID != "c1" || cc.UserID() != "u1" {
		t.Fatalf("unexpected event %#v", completed)
	}

	result, err := events.Decode(domain.TopicQuizResult,
		[]byte(`{"quizId":"q1","studentId":"u1","score":70,"passed":true,"submittedAt":"2026-03-01T10:00:00Z","attempt":2}`))
	if err != nil {
		t.Fatalf("decode quiz-result: %v", err)
	}
	qr, ok := result.(events.QuizResultReceived)
	if !ok || qr.Version != 1 || qr.Score != 70 || !qr.Passed {
		t.Fatalf("unexpected event %#v", result)
	}
}

func TestDecodeUnknownTopic(t *testing.T) {
	_, err := events.Decode("grade-changed", []byte(`{}`))
	if !errors.Is(err, domain.ErrUnknownEventKind) {
		t.Fatalf("expected ErrUnknownEventKind, got %v", err)
	}
}
