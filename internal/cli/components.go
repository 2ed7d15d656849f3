package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap/zapcore"

	"wlingo-quiz-service/internal/config"
	pgvocab "wlingo-quiz-service/internal/infra/postgres"
	"wlingo-quiz-service/internal/infra/sqlite"
	"wlingo-quiz-service/internal/logger"
	"wlingo-quiz-service/internal/vocab"
)

// buildLogger creates the process logger, teeing into the SQLite sink when
// log.sqlite_path is set. The returned func flushes and closes both.
func buildLogger(cfg config.Config) (*logger.Logger, func(), error) {
	var extra []zapcore.Core
	var sink *sqlite.LogSink
	if cfg.Log.SQLitePath != "" {
		var err error
		sink, err = sqlite.Open(cfg.Log.SQLitePath, zapcore.InfoLevel)
		if err != nil {
			return nil, nil, err
		}
		extra = append(extra, sink)
	}
	log, err := logger.New(cfg.Log.Mode, extra...)
	if err != nil {
		if sink != nil {
			sink.Close()
		}
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	return log, func() {
		log.Sync()
		if sink != nil {
			sink.Close()
		}
	}, nil
}

// connectPostgres returns nil when no database is configured.
func connectPostgres(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	if cfg.Postgres.URL == "" {
		return nil, nil
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// buildCatalog loads vocabulary from the CSV directory and, when a pool is
// given, from Postgres. Database topics override files with the same id.
func buildCatalog(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, log *logger.Logger) (*vocab.Catalog, error) {
	sources := []vocab.Source{vocab.NewDirSource(cfg.Quiz.VocabDir, log)}
	if pool != nil {
		sources = append(sources, pgvocab.NewVocabularyLoader(pool))
	}
	catalog := vocab.NewCatalog(log, sources...)
	if err := catalog.LoadAll(ctx); err != nil {
		return nil, err
	}
	return catalog, nil
}
