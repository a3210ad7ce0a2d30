package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"quiz-pipeline-service/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

type handler struct {
	api    API
	logger zerolog.Logger
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type submissionRequest struct {
	QuizID    string          `json:"quizId,omitempty"`
	StudentID string          `json:"studentId"`
	Answers   []domain.Answer `json:"answers"`
}

type availabilityRequest struct {
	Hours float64 `json:"hours"`
}

type recommendationsResponse struct {
	UserID          string                       `json:"userId"`
	Recommendations []domain.RecommendationEntry `json:"recommendations"`
}

func (h *handler) createQuiz(w http.ResponseWriter, r *http.Request) {
	var quiz domain.Quiz
	if err := decodeBody(w, r, &quiz); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err)
		return
	}
	created, err := h.api.Quizzes.CreateQuiz(r.Context(), quiz)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.api.Quizzes.GetQuiz(r.Context(), chi.URLParam(r, "quizID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *handler) submitQuiz(w http.ResponseWriter, r *http.Request) {
	var req submissionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err)
		return
	}
	quizID := chi.URLParam(r, "quizID")
	if req.QuizID != "" && req.QuizID != quizID {
		writeError(w, http.StatusBadRequest, "quiz_mismatch", fmt.Errorf("body quizId %q does not match path %q", req.QuizID, quizID))
		return
	}
	result, err := h.api.Quizzes.SubmitQuiz(r.Context(), domain.Submission{
		QuizID:    quizID,
		StudentID: req.StudentID,
		Answers:   req.Answers,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *handler) listResults(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	results, err := h.api.Quizzes.ListResults(r.Context(), domain.ResultFilter{
		QuizID:    q.Get("quizId"),
		StudentID: q.Get("studentId"),
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	if results == nil {
		results = []domain.QuizResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *handler) recommendations(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	entries, err := h.api.Recommendations.Recommend(r.Context(), userID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recommendationsResponse{UserID: userID, Recommendations: entries})
}

func (h *handler) profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.api.Recommendations.Profile(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *handler) updateAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err)
		return
	}
	profile, err := h.api.Preferences.UpdateAvailability(r.Context(), chi.URLParam(r, "userID"), req.Hours)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *handler) courseCompleted(w http.ResponseWriter, r *http.Request) {
	var ev domain.CourseCompletedEvent
	if err := decodeBody(w, r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if ev.CompletedAt.IsZero() {
		ev.CompletedAt = time.Now().UTC()
	}
	if err := h.api.Completions.PublishCourseCompleted(r.Context(), ev); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// fail maps domain errors onto status codes.
func (h *handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrProfileNotFound), errors.Is(err, domain.ErrCourseNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, domain.ErrDuplicateAttempt):
		writeError(w, http.StatusConflict, "duplicate_attempt", err)
	case errors.Is(err, domain.ErrQuestionNotFound), errors.Is(err, domain.ErrDuplicateAnswer),
		errors.Is(err, domain.ErrInvalidSubmission), errors.Is(err, domain.ErrInvalidQuiz),
		errors.Is(err, domain.ErrMalformedEvent), errors.Is(err, domain.ErrInvalidAvailability):
		writeError(w, http.StatusBadRequest, "invalid_request", err)
	default:
		h.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal", nil)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, into interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
