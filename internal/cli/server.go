package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sedetok-live/internal/config"
	"sedetok-live/internal/domain"
	"sedetok-live/internal/game"
	"sedetok-live/internal/infra/memory"
	pginfra "sedetok-live/internal/infra/postgres"
	infraredis "sedetok-live/internal/infra/redis"
	transport "sedetok-live/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the live game server",
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

	log := newLogger(cfg.Log.Level)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var quizLoader infraredis.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	var codeLoader infraredis.AccessCodeLoader = memory.NewStaticAccessCodeLoader(nil)
	var archiver game.ResultArchiver = memory.NoopArchiver{}
	if pool != nil {
		quizLoader = pginfra.NewQuizLoader(pool)
		codeLoader = pginfra.NewAccessCodeLoader(pool)
		archiver = pginfra.NewResultArchiver(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo game.QuizRepository
	var codeRepo game.AccessCodeRepository
	var sessions game.SessionStore
	var journal game.AnswerJournal
	if redisClient != nil {
		quizRepo = infraredis.NewQuizRepository(redisClient, quizLoader, quizTTL)
		codeRepo = infraredis.NewAccessCodeRepository(redisClient, codeLoader, quizTTL)
		sessions = infraredis.NewSessionStore(redisClient, redisTTL)
		journal = infraredis.NewAnswerJournal(redisClient, redisTTL)
	} else {
		quizRepo = memory.NewQuizRepository(quizLoader, quizTTL)
		codeRepo = directCodeRepo{loader: codeLoader}
		sessions = memory.NewSessionStore()
		journal = memory.NewAnswerJournal()
	}

	service := game.NewService(sessions, quizRepo, codeRepo, journal, archiver, log)
	service.SetIntervals(
		config.TTLDuration(cfg.Game.LobbyPollInterval, 2*time.Second),
		config.TTLDuration(cfg.Game.CountdownTick, time.Second),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	transport.NewAPIHandler(service, log).Register(mux)
	mux.HandleFunc("/ws", transport.NewWSHandler(service, log).ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("starting sedetok-live")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// directCodeRepo hits the loader on every lookup. Codes are resolved
// once per game, so the Redis cache layer is optional.
type directCodeRepo struct {
	loader infraredis.AccessCodeLoader
}

func (d directCodeRepo) GetAccessCode(ctx context.Context, code string) (domain.AccessCode, error) {
	return d.loader.LoadAccessCode(ctx, code)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}

// sampleQuizzes provides minimal demo content for running without
// Postgres; production deployments load quizzes from the database.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"demo": {
			ID:    "demo",
			Title: "Demo round",
			Questions: []domain.Question{
				{
					ID:     "q1",
					Prompt: "What is 2 + 2?",
					Options: []domain.Option{
						{ID: "o1", Text: "3"},
						{ID: "o2", Text: "4", Correct: true},
						{ID: "o3", Text: "5"},
					},
					TimeLimit: 20,
					Points:    100,
				},
				{
					ID:     "q2",
					Prompt: "Which planet is closest to the sun?",
					Options: []domain.Option{
						{ID: "o1", Text: "Venus"},
						{ID: "o2", Text: "Mars"},
						{ID: "o3", Text: "Mercury", Correct: true},
					},
					TimeLimit: 15,
					Points:    100,
				},
			},
		},
	}
}
