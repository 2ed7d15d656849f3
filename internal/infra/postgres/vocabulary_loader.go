package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"wlingo-quiz-service/internal/domain"
)

// VocabularyLoader reads topics from the vocabulary_entries table.
type VocabularyLoader struct {
	pool *pgxpool.Pool
}

func NewVocabularyLoader(pool *pgxpool.Pool) *VocabularyLoader {
	return &VocabularyLoader{pool: pool}
}

func (l *VocabularyLoader) Name() string { return "postgres" }

func (l *VocabularyLoader) LoadTopics(ctx context.Context) (map[string][]domain.VocabularyEntry, error) {
	rows, err := l.pool.Query(ctx, `SELECT topic, word, translation FROM vocabulary_entries ORDER BY topic, position`)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	defer rows.Close()

	topics := map[string][]domain.VocabularyEntry{}
	for rows.Next() {
		var topic string
		var entry domain.VocabularyEntry
		if err := rows.Scan(&topic, &entry.Word, &entry.Translation); err != nil {
			return nil, fmt.Errorf("scan vocabulary: %w", err)
		}
		topics[topic] = append(topics[topic], entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	return topics, nil
}

// ReplaceTopic swaps every entry of topic for words in one transaction.
func (l *VocabularyLoader) ReplaceTopic(ctx context.Context, topic string, words []domain.VocabularyEntry) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM vocabulary_entries WHERE topic = $1`, topic); err != nil {
		return fmt.Errorf("clear topic %s: %w", topic, err)
	}
	rows := make([][]interface{}, 0, len(words))
	for i, w := range words {
		rows = append(rows, []interface{}{topic, i, w.Word, w.Translation})
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"vocabulary_entries"},
		[]string{"topic", "position", "word", "translation"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("copy topic %s: %w", topic, err)
	}
	return tx.Commit(ctx)
}
