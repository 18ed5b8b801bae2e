package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"asaa-quiz-service/internal/app"
	"asaa-quiz-service/internal/domain"
	pgarchive "asaa-quiz-service/internal/infra/postgres"
	pgmigrations "asaa-quiz-service/internal/infra/postgres/migrations"
	infraredis "asaa-quiz-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

type openSource struct{}

func (openSource) Fetch(_ context.Context, count int) ([]domain.Question, error) {
	qs := make([]domain.Question, count)
	for i := range qs {
		qs[i] = domain.Question{
			QuestionText:       fmt.Sprintf("Question %d", i+1),
			Options:            []string{"A", "B", "C", "D"},
			CorrectAnswerIndex: 1,
		}
	}
	return qs, nil
}

func TestAttemptEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	applyMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	store := infraredis.NewStore(redisClient)
	archive := pgarchive.NewLedgerArchive(pool)
	cache := infraredis.NewQuestionCache(redisClient, app.NewFallbackSource(openSource{}, nil), time.Hour)

	identity := app.NewIdentityService(store, "secret")
	availability := app.NewAvailabilityService(store)
	results := app.NewResultsService(store, archive)
	attempts := app.NewAttemptService(identity, availability, results, cache, app.AttemptConfig{QuestionCount: 2})

	// Open the gate regardless of when the suite runs.
	admin, err := identity.Authenticate(ctx, "admin", "secret")
	if err != nil {
		t.Fatalf("admin auth: %v", err)
	}
	if err := availability.SetGlobalState(ctx, admin, domain.GlobalAvailability{IsManualOverride: true, IsQuizOpen: true}); err != nil {
		t.Fatalf("open quiz: %v", err)
	}

	user, err := identity.Register(ctx, "Alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	attempt, err := attempts.Start(ctx, user)
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	defer attempt.Close()

	for i := 0; i < 2; i++ {
		if _, err := attempt.Select(1); err != nil {
			t.Fatalf("select question %d: %v", i+1, err)
		}
		if _, err := attempt.Advance(ctx); err != nil {
			t.Fatalf("advance question %d: %v", i+1, err)
		}
	}

	all, err := results.All(ctx)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(all) != 1 || all[0].Score != 10 {
		t.Fatalf("expected one result worth 10 points, got %+v", all)
	}

	rows, err := archive.Recent(ctx, 5)
	if err != nil {
		t.Fatalf("archive read: %v", err)
	}
	if len(rows) != 1 || rows[0].Username != "Alice" || rows[0].Score != 10 {
		t.Fatalf("expected the result archived in postgres, got %+v", rows)
	}

	// The generated batch is shared through redis for the rest of the day.
	if err := redisClient.Get(ctx, "quiz:questions:"+domain.DateOf(time.Now())).Err(); err != nil {
		t.Fatalf("expected the day key in redis: %v", err)
	}

	// One attempt per day: the gate closes once the override is lifted.
	if err := availability.SetGlobalState(ctx, admin, domain.GlobalAvailability{}); err != nil {
		t.Fatalf("restore automatic mode: %v", err)
	}
	refreshed, err := identity.Lookup(ctx, "Alice")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	av, err := availability.Evaluate(ctx, &refreshed)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if av.Open {
		t.Fatalf("expected the gate closed after the run, got %+v", av)
	}
}

func applyMigrations(t *testing.T, ctx context.Context, dsn string) {
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
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
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

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
