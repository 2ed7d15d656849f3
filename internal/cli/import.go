package cli

import (
	"errors"
	"slices"
	"sort"

	"github.com/spf13/cobra"

	"wlingo-quiz-service/internal/config"
	pgvocab "wlingo-quiz-service/internal/infra/postgres"
	"wlingo-quiz-service/internal/vocab"
)

// NewImportCmd copies CSV topics into Postgres, replacing existing rows per topic.
func NewImportCmd(configPath *string) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "import [topic...]",
		Short: "Import vocabulary CSV files into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.Quiz.VocabDir
			}
			log, closeLog, err := buildLogger(cfg)
			if err != nil {
				return err
			}
			defer closeLog()

			pool, err := connectPostgres(ctx, cfg)
			if err != nil {
				return err
			}
			if pool == nil {
				return errors.New("postgres url not configured")
			}
			defer pool.Close()
			if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
				return err
			}

			topics, err := vocab.NewDirSource(dir, log).LoadTopics(ctx)
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(topics))
			for id := range topics {
				if len(args) == 0 || slices.Contains(args, id) {
					ids = append(ids, id)
				}
			}
			sort.Strings(ids)

			loader := pgvocab.NewVocabularyLoader(pool)
			for _, id := range ids {
				if err := loader.ReplaceTopic(ctx, id, topics[id]); err != nil {
					return err
				}
				log.Info("topic imported", "topic", id, "words", len(topics[id]))
			}
			if len(ids) == 0 {
				log.Warn("nothing to import", "dir", dir)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory of <topic>.csv files (defaults to quiz.vocab_dir)")
	return cmd
}
