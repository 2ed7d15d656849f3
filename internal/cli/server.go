package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"wlingo-quiz-service/internal/app"
	"wlingo-quiz-service/internal/config"
	"wlingo-quiz-service/internal/domain"
	"wlingo-quiz-service/internal/infra/memory"
	redissession "wlingo-quiz-service/internal/infra/redis"
	"wlingo-quiz-service/internal/quizgen"
	transport "wlingo-quiz-service/internal/transport/http"
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
	log, closeLog, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

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

	pool, err := connectPostgres(ctx, cfg)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	catalog, err := buildCatalog(ctx, cfg, pool, log)
	if err != nil {
		return err
	}

	var store app.SessionRepository
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
		store = redissession.NewSessionStore(redisClient, cfg.SessionTTL())
		log.Info("using redis session store", "addr", cfg.Redis.Addr, "ttl", cfg.SessionTTL())
	} else {
		store = memory.NewSessionStore()
		log.Info("using in-memory session store")
	}

	generators := quizgen.Set{
		domain.ModeVocabulary: quizgen.NewVocabulary(catalog, quizgen.NewRand()),
		domain.ModeArithmetic: quizgen.NewArithmetic(quizgen.NewRand()),
	}
	service := app.NewQuizService(store, catalog, generators, log, app.Options{
		QuestionCount: cfg.Quiz.QuestionCount,
		MaxAge:        cfg.MaxAge(),
	})
	router := transport.NewRouter(service, log, transport.Options{
		CookieName:   cfg.Session.CookieName,
		CookieMaxAge: cfg.MaxAge(),
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz service", "port", finalPort, "topics", len(catalog.Topics()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	defer signal.Stop(stop)
	defer signal.Stop(reload)

wait:
	for {
		select {
		case <-reload:
			if err := catalog.Reload(ctx); err != nil {
				log.Warn("vocabulary reload failed", "error", err)
				continue
			}
			log.Info("vocabulary reloaded", "topics", len(catalog.Topics()))
		case <-stop:
			log.Info("shutting down server")
			break wait
		case <-ctx.Done():
			log.Info("context canceled, shutting down server")
			break wait
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
