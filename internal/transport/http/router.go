package http

import (
	"context"
	"net/http"
	"time"

	"quiz-pipeline-service/internal/app"
	"quiz-pipeline-service/internal/domain"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// CompletionPublisher forwards course completions onto the broker.
type CompletionPublisher interface {
	PublishCourseCompleted(ctx context.Context, ev domain.CourseCompletedEvent) error
}

// API bundles the use cases exposed over HTTP.
type API struct {
	Quizzes         *app.QuizService
	Recommendations *app.RecommendationService
	Preferences     *app.PreferenceAggregator
	Completions     CompletionPublisher
	Logger          zerolog.Logger
}

// NewRouter mounts the REST routes, the websocket endpoint, health and metrics.
func NewRouter(api API) http.Handler {
	h := &handler{api: api, logger: api.Logger.With().Str("component", "http").Logger()}
	ws := NewWSHandler(api.Quizzes, api.Logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", ws.ServeWS)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(15 * time.Second))

		r.Route("/quizzes", func(r chi.Router) {
			r.Post("/", h.createQuiz)
			r.Get("/{quizID}", h.getQuiz)
			r.Post("/{quizID}/submissions", h.submitQuiz)
		})
		r.Get("/results", h.listResults)
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/recommendations", h.recommendations)
			r.Get("/profile", h.profile)
			r.Put("/availability", h.updateAvailability)
		})
		r.Post("/events/course-completed", h.courseCompleted)
	})
	return r
}
