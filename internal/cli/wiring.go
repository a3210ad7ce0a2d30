package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quiz-pipeline-service/internal/app"
	"quiz-pipeline-service/internal/config"
	"quiz-pipeline-service/internal/domain"
	"quiz-pipeline-service/internal/infra/broker"
	"quiz-pipeline-service/internal/infra/memory"
	"quiz-pipeline-service/internal/infra/postgres"
	infraredis "quiz-pipeline-service/internal/infra/redis"
	"quiz-pipeline-service/internal/logging"
	"quiz-pipeline-service/internal/transport/events"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// components is the wired process. Postgres and Redis are optional; without them the
// in-memory twins are used, which suits single-node demos and tests.
type components struct {
	cfg    config.Config
	logger zerolog.Logger

	pubsub      *broker.PubSub
	publisher   *events.Publisher
	quizzes     *app.QuizService
	recommender *app.RecommendationService
	aggregator  *app.PreferenceAggregator

	closers []func() error
}

func loadComponents(ctx context.Context, path string) (*components, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger := logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	return buildComponents(ctx, cfg, logger)
}

func buildComponents(ctx context.Context, cfg config.Config, logger zerolog.Logger) (_ *components, err error) {
	c := &components{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	var (
		quizLoader  memory.QuizLoader
		quizStore   app.QuizStore
		results     app.ResultRepository
		profiles    app.ProfileRepository
		catalog     app.Catalog
		deadLetters events.DeadLetterStore
	)
	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, logger); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		c.closers = append(c.closers, func() error { pool.Close(); return nil })
		db := postgres.Open(cfg.Postgres.URL)
		c.closers = append(c.closers, db.Close)

		loader := postgres.NewQuizLoader(pool)
		quizLoader, quizStore = loader, loader
		results = postgres.NewResultStore(db)
		profiles = postgres.NewProfileStore(db)
		catalog = postgres.NewCatalog(db)
		deadLetters = postgres.NewDeadLetterStore(db)
	} else {
		logger.Warn().Msg("postgres not configured, using in-memory stores")
		store := memory.NewQuizStore(sampleQuizzes())
		quizLoader, quizStore = store, store
		results = memory.NewResultStore()
		profiles = memory.NewProfileStore()
		catalog = memory.NewCatalog(sampleCourses()...)
		deadLetters = memory.NewDeadLetterStore()
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	profileTTL := config.TTLDuration(cfg.Profile.CacheTTL, time.Minute)
	var (
		quizRepo     app.QuizRepository
		profileCache app.ProfileCache
	)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		c.closers = append(c.closers, client.Close)
		quizRepo = infraredis.NewQuizRepository(client, quizLoader, quizTTL, logger)
		profileCache = infraredis.NewProfileCache(client, profileTTL, logger)
	} else {
		quizRepo = memory.NewQuizRepository(quizLoader, quizTTL)
		profileCache = memory.NewProfileCache(profileTTL, cfg.Profile.CacheSize)
	}

	c.pubsub, err = broker.New(brokerConfig(cfg), logger)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, c.pubsub.Close)

	c.publisher = events.NewPublisher(c.pubsub.Publisher, deadLetters, retryPolicy(cfg.Publisher.Retry), events.BreakerConfig{
		FailureThreshold: cfg.Publisher.BreakerThreshold,
		OpenTimeout:      config.TTLDuration(cfg.Publisher.BreakerTimeout, 30*time.Second),
	}, logger)
	c.quizzes = app.NewQuizService(quizRepo, quizStore, results, c.publisher, logger, app.WithSingleAttempt(cfg.Quiz.SingleAttempt), app.WithQuizCreatedPublisher(c.publisher))
	c.recommender = app.NewRecommendationService(profiles, profileCache, catalog)
	c.aggregator = app.NewPreferenceAggregator(profiles, profileCache, catalog, app.AggregatorConfig{
		HistorySize:             cfg.Profile.HistorySize,
		DefaultTimeAvailability: cfg.Profile.DefaultTimeAvailability,
		CatalogRetry:            retryPolicy(cfg.Consumer.CatalogRetry),
		MaxConflictRetries:      cfg.Profile.MaxConflictRetries,
	}, logger)
	return c, nil
}

func (c *components) newConsumer() (*events.Consumer, error) {
	return events.NewConsumer(c.pubsub.Subscriber, c.pubsub.Publisher, c.aggregator, events.ConsumerConfig{
		CloseTimeout: config.TTLDuration(c.cfg.Broker.CloseTimeout, 10*time.Second),
		Retry:        retryPolicy(c.cfg.Consumer.Retry),
		PoisonTopic:  c.cfg.Broker.PoisonTopic,
	}, c.logger)
}

// Close releases resources in reverse order of acquisition.
func (c *components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	c.closers = nil
	return errors.Join(errs...)
}

func brokerConfig(cfg config.Config) broker.Config {
	b := cfg.Broker
	return broker.Config{
		Driver:         b.Driver,
		NATSURL:        b.NATSURL,
		QueueGroup:     b.QueueGroup,
		DurableName:    b.DurableName,
		MaxReconnects:  b.MaxReconnects,
		ReconnectWait:  config.TTLDuration(b.ReconnectWait, 2*time.Second),
		AckWaitTimeout: config.TTLDuration(b.AckWait, 30*time.Second),
		MaxDeliver:     b.MaxDeliver,
		CloseTimeout:   config.TTLDuration(b.CloseTimeout, 10*time.Second),
		BufferSize:     b.BufferSize,
	}
}

func retryPolicy(r config.Retry) app.RetryPolicy {
	def := app.DefaultRetryPolicy()
	return app.RetryPolicy{
		MaxRetries:      config.IntOr(r.MaxRetries, def.MaxRetries),
		InitialInterval: config.TTLDuration(r.InitialInterval, def.InitialInterval),
		MaxInterval:     config.TTLDuration(r.MaxInterval, def.MaxInterval),
	}
}

// sampleQuizzes seeds the in-memory store when no database is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:           "quiz-1",
			CourseID:     "go-basics",
			Title:        "Go basics",
			PassingScore: 60,
			Questions: []domain.Question{
				{
					ID:             "q1",
					Text:           "What is 2 + 2?",
					Type:           domain.SingleChoice,
					Options:        []string{"3", "4", "5"},
					CorrectAnswers: []string{"4"},
					Points:         1,
				},
				{
					ID:             "q2",
					Text:           "Which are Go keywords?",
					Type:           domain.MultiChoice,
					Options:        []string{"defer", "yield", "select"},
					CorrectAnswers: []string{"defer", "select"},
					Points:         2,
				},
			},
		},
	}
}

func sampleCourses() []domain.CourseCandidate {
	return []domain.CourseCandidate{
		{ID: "go-basics", Title: "Go basics", Category: "programming", Level: domain.Beginner, Duration: 4, Rating: 4.5, Published: true},
		{ID: "go-concurrency", Title: "Concurrency in Go", Category: "programming", Level: domain.Intermediate, Duration: 6, Rating: 4.8, Published: true},
		{ID: "distributed-systems", Title: "Distributed systems", Category: "systems", Level: domain.Advanced, Duration: 12, Rating: 4.7, Published: true},
		{ID: "sql-intro", Title: "SQL intro", Category: "data", Level: domain.Beginner, Duration: 3, Rating: 4.1, Published: true},
	}
}
