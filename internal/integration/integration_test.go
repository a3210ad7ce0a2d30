package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"quiz-pipeline-service/internal/app"
	"quiz-pipeline-service/internal/domain"
	"quiz-pipeline-service/internal/infra/broker"
	"quiz-pipeline-service/internal/infra/postgres"
	pgmigrations "quiz-pipeline-service/internal/infra/postgres/migrations"
	infraredis "quiz-pipeline-service/internal/infra/redis"
	"quiz-pipeline-service/internal/transport/events"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

func TestSubmissionFlowsIntoRecommendations(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := postgres.Open(pgURL)
	defer db.Close()
	migrateDB(t, ctx, db)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	logger := zerolog.Nop()
	loader := postgres.NewQuizLoader(pool)
	catalog := postgres.NewCatalog(db)
	profiles := postgres.NewProfileStore(db)
	results := postgres.NewResultStore(db)
	deadLetters := postgres.NewDeadLetterStore(db)
	profileCache := infraredis.NewProfileCache(redisClient, time.Minute, logger)

	for _, course := range []domain.CourseCandidate{
		{ID: "go-basics", Category: "programming", Level: domain.Advanced, Duration: 3, Rating: 4, Published: true},
		{ID: "watercolor", Category: "art", Level: domain.Beginner, Duration: 2, Rating: 4.9, Published: true},
		{ID: "draft", Category: "programming", Level: domain.Advanced, Duration: 1, Rating: 5, Published: false},
	} {
		if err := catalog.UpsertCourse(ctx, course); err != nil {
			t.Fatalf("seed course: %v", err)
		}
	}

	ps, err := broker.New(broker.Config{BufferSize: 16}, logger)
	if err != nil {
		t.Fatalf("broker: %v", err)
	}
	defer ps.Close()

	publisher := events.NewPublisher(ps.Publisher, deadLetters, app.DefaultRetryPolicy(), events.BreakerConfig{}, logger)
	quizRepo := infraredis.NewQuizRepository(redisClient, loader, 5*time.Minute, logger)
	quizzes := app.NewQuizService(quizRepo, loader, results, publisher, logger, app.WithSingleAttempt(true))
	aggregator := app.NewPreferenceAggregator(profiles, profileCache, catalog, app.AggregatorConfig{
		DefaultTimeAvailability: 5,
		CatalogRetry:            app.DefaultRetryPolicy(),
	}, logger)
	recommender := app.NewRecommendationService(profiles, profileCache, catalog)

	consumer, err := events.NewConsumer(ps.Subscriber, nil, aggregator, events.ConsumerConfig{Retry: app.DefaultRetryPolicy()}, logger)
	if err != nil {
		t.Fatalf("consumer: %v", err)
	}
	go func() { _ = consumer.Run(ctx) }()
	defer consumer.Close()
	<-consumer.Running()

	quiz, err := quizzes.CreateQuiz(ctx, sampleQuiz())
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	result, err := quizzes.SubmitQuiz(ctx, domain.Submission{
		QuizID:    quiz.ID,
		StudentID: "s1",
		Answers: []domain.Answer{
			{QuestionID: "q1", SelectedAnswers: []string{"4"}},
			{QuestionID: "q2", SelectedAnswers: []string{"select", "defer"}},
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 100 || !result.Passed {
		t.Fatalf("expected full marks, got %+v", result)
	}
	if _, err := quizzes.SubmitQuiz(ctx, domain.Submission{QuizID: quiz.ID, StudentID: "s1"}); !errors.Is(err, domain.ErrDuplicateAttempt) {
		t.Fatalf("expected ErrDuplicateAttempt, got %v", err)
	}

	if err := publisher.PublishCourseCompleted(ctx, domain.CourseCompletedEvent{
		StudentID: "s1", CourseID: "go-basics", Rating: 5, CompletedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("publish completion: %v", err)
	}

	profile := waitForProfile(t, ctx, profiles, "s1", func(p domain.PreferenceProfile) bool {
		return len(p.ScoreHistory) == 1 && len(p.CompletedCourses) == 1
	})
	if profile.PreferredLevel != domain.Advanced || !profile.HasCategory("programming") {
		t.Fatalf("unexpected profile %+v", profile)
	}

	recs, err := recommender.Recommend(ctx, "s1")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(recs) != 2 || recs[0].CourseID != "go-basics" {
		t.Fatalf("expected go-basics first and draft excluded, got %+v", recs)
	}

	stored, err := quizzes.ListResults(ctx, domain.ResultFilter{QuizID: quiz.ID})
	if err != nil || len(stored) != 1 || len(stored[0].QuestionResults) != 2 {
		t.Fatalf("expected one stored result with details, got %+v (%v)", stored, err)
	}
}

func TestDeadLetterStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	db := postgres.Open(pgURL)
	defer db.Close()
	migrateDB(t, ctx, db)

	store := postgres.NewDeadLetterStore(db)
	letter := domain.DeadLetter{ID: "m1", Topic: domain.TopicQuizResult, Payload: []byte(`{"a":1}`), Error: "boom", Attempts: 3, CreatedAt: time.Now().UTC()}
	if err := store.SaveDeadLetter(ctx, letter); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveDeadLetter(ctx, letter); err != nil {
		t.Fatalf("save again: %v", err)
	}
	letters, err := store.ListDeadLetters(ctx, 10)
	if err != nil || len(letters) != 1 || letters[0].Attempts != 6 || string(letters[0].Payload) != `{"a":1}` {
		t.Fatalf("unexpected letters %+v (%v)", letters, err)
	}
	if err := store.DeleteDeadLetter(ctx, "m1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if letters, _ := store.ListDeadLetters(ctx, 10); len(letters) != 0 {
		t.Fatalf("expected empty store")
	}
}

func waitForProfile(t *testing.T, ctx context.Context, profiles app.ProfileRepository, userID string, ready func(domain.PreferenceProfile) bool) domain.PreferenceProfile {
	t.Helper()
	deadline := time.Now().Add(20 * time.Second)
	for {
		p, err := profiles.GetProfile(ctx, userID)
		if err == nil && ready(p) {
			return p
		}
		if time.Now().After(deadline) {
			t.Fatalf("profile not ready: %+v (%v)", p, err)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func migrateDB(t *testing.T, ctx context.Context, db *bun.DB) {
	t.Helper()
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(context.Background())
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(context.Background())
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		CourseID:     "go-basics",
		Title:        "Go basics",
		PassingScore: 60,
		Questions: []domain.Question{
			{ID: "q1", Text: "What is 2 + 2?", Type: domain.SingleChoice, Options: []string{"3", "4"}, CorrectAnswers: []string{"4"}, Points: 1},
			{ID: "q2", Text: "Which are Go keywords?", Type: domain.MultiChoice, Options: []string{"defer", "yield", "select"}, CorrectAnswers: []string{"defer", "select"}, Points: 2},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
