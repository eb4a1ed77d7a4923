package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"group-quiz-bot/internal/app"
	"group-quiz-bot/internal/domain"
	"group-quiz-bot/internal/infra/memory"
	pgloader "group-quiz-bot/internal/infra/postgres"
	pgmigrations "group-quiz-bot/internal/infra/postgres/migrations"
	infraredis "group-quiz-bot/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

const chatID = int64(-1001)

func TestRoundEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuestions(t, ctx, pgURL, sampleQuestions())

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

	loader := infraredis.NewQuestionCache(redisClient, pgloader.NewQuestionLoader(pool), 5*time.Minute)
	bank := memory.NewQuestionBank(loader, 5*time.Minute)
	engine := app.NewQuizEngine(
		infraredis.NewSessionStore(redisClient, 5*time.Minute),
		infraredis.NewScoreLedger(redisClient),
		bank,
		app.NewFeed(),
	)

	counts, err := bank.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts["math"] != 1 {
		t.Fatalf("expected one seeded math question, got %v", counts)
	}

	text, err := engine.StartRound(ctx, chatID)
	if err != nil {
		t.Fatalf("start round: %v", err)
	}
	if !strings.Contains(text, "Subject: MATH") || !strings.Contains(text, "B) 4") {
		t.Fatalf("unexpected question text %q", text)
	}

	outcome, err := engine.ResolveAnswer(ctx, chatID, 1, "A")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if outcome.Kind != domain.OutcomeIncorrect || outcome.Score != -1 {
		t.Fatalf("expected incorrect with -1, got %+v", outcome)
	}

	outcome, err = engine.ResolveAnswer(ctx, chatID, 2, "B")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if outcome.Kind != domain.OutcomeCorrect || outcome.Score != 4 {
		t.Fatalf("expected correct with 4, got %+v", outcome)
	}

	outcome, err = engine.ResolveAnswer(ctx, chatID, 2, "B")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if outcome.Kind != domain.OutcomeAlreadyAnswered {
		t.Fatalf("expected already answered, got %+v", outcome)
	}

	score, err := engine.Score(ctx, 2)
	if err != nil || score != 4 {
		t.Fatalf("expected score 4, got %d (%v)", score, err)
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
		_ = container.Terminate(ctx)
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
		_ = container.Terminate(ctx)
	}
}

func seedQuestions(t *testing.T, ctx context.Context, dsn string, bank map[string][]domain.Question) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	seeder := pgloader.NewQuestionSeeder(db)
	n, err := seeder.Seed(ctx, bank)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one row seeded, got %d", n)
	}
	// Re-seeding upserts in place.
	if _, err := seeder.Seed(ctx, bank); err != nil {
		t.Fatalf("reseed: %v", err)
	}
}

func sampleQuestions() map[string][]domain.Question {
	return map[string][]domain.Question{
		"math": {{
			Subject: "math",
			Prompt:  "What is 2 + 2?",
			Options: []domain.Option{
				{Label: "A", Text: "3"},
				{Label: "B", Text: "4"},
				{Label: "C", Text: "5"},
				{Label: "D", Text: "22"},
			},
			Answer: "B",
		}},
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
