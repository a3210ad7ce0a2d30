package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question ID is not part of the quiz.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrDuplicateAnswer is returned when a submission answers the same question twice.
	ErrDuplicateAnswer = errors.New("question answered more than once")
	// ErrInvalidQuiz is returned when a quiz definition fails validation.
	ErrInvalidQuiz = errors.New("invalid quiz definition")
	// ErrInvalidSubmission is returned when a submission fails validation.
	ErrInvalidSubmission = errors.New("invalid submission")
	// ErrDuplicateAttempt is returned when single-attempt policy rejects a resubmission.
	ErrDuplicateAttempt = errors.New("quiz already attempted")
	// ErrProfileNotFound indicates no preference profile exists yet for a user.
	ErrProfileNotFound = errors.New("preference profile not found")
	// ErrConcurrentUpdate signals an optimistic-lock conflict on a profile write.
	ErrConcurrentUpdate = errors.New("profile modified concurrently")
	// ErrInvalidAvailability is returned for a weekly time budget outside 0..168 hours.
	ErrInvalidAvailability = errors.New("invalid time availability")
	// ErrCourseNotFound indicates the catalog has no course with the given ID.
	ErrCourseNotFound = errors.New("course not found")
	// ErrMalformedEvent is returned for event payloads that fail to decode or validate.
	ErrMalformedEvent = errors.New("malformed event")
	// ErrUnknownEventKind is returned for events arriving on an unhandled topic.
	ErrUnknownEventKind = errors.New("unknown event kind")
)
