package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"asaa-quiz-service/internal/app"
	"asaa-quiz-service/internal/config"
	"asaa-quiz-service/internal/infra/ai"
	"asaa-quiz-service/internal/infra/memory"
	pgarchive "asaa-quiz-service/internal/infra/postgres"
	redisstore "asaa-quiz-service/internal/infra/redis"
	"asaa-quiz-service/internal/questions"
	transport "asaa-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var store app.Store
	if redisClient != nil {
		store = redisstore.NewStore(redisClient)
	} else {
		store = memory.NewStore()
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var archive app.ResultsArchive
	if pool != nil {
		archive = pgarchive.NewLedgerArchive(pool)
	}

	// Question chain: AI generator when a key is configured, the embedded
	// static set otherwise or whenever generation fails, then a day-keyed
	// cache so one batch serves the whole window.
	var live app.QuestionSource
	aiClient := ai.NewClient(cfg.AI.APIKey, cfg.AI.APIURL, cfg.AI.Model, config.TTLDuration(cfg.AI.Timeout, 60*time.Second))
	if aiClient.IsAvailable() {
		live = aiClient
	}
	fallback := app.NewFallbackSource(live, questions.Fallback())

	cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 24*time.Hour)
	var source app.QuestionSource
	if redisClient != nil {
		source = redisstore.NewQuestionCache(redisClient, fallback, cacheTTL)
	} else {
		source = memory.NewQuestionCache(fallback)
	}

	identity := app.NewIdentityService(store, cfg.Admin.Secret)
	availability := app.NewAvailabilityService(store)
	results := app.NewResultsService(store, archive)
	attempts := app.NewAttemptService(identity, availability, results, source, app.AttemptConfig{
		QuestionCount:     config.IntOr(cfg.Quiz.Questions, 6),
		QuestionTimer:     config.TTLDuration(cfg.Quiz.QuestionTimer, 20*time.Second),
		PointsPerQuestion: config.IntOr(cfg.Quiz.Points, 5),
	})

	api := transport.NewAPI(identity, availability, results)
	wsHandler := transport.NewWSHandler(attempts, identity, availability)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	api.Register(mux)
	mux.HandleFunc("/ws/quiz", wsHandler.ServeQuiz)
	mux.HandleFunc("/ws/availability", wsHandler.ServeAvailability)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
