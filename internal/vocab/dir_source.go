package vocab

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"wlingo-quiz-service/internal/domain"
	"wlingo-quiz-service/internal/logger"
)

// ErrMissingColumns marks a CSV file without word/translation headers.
var ErrMissingColumns = errors.New("missing word or translation column")

// DirSource reads one topic per .csv file (extension matched case-insensitively) in a directory. The file stem is
// the topic id.
type DirSource struct {
	dir string
	log *logger.Logger
}

func NewDirSource(dir string, log *logger.Logger) *DirSource {
	return &DirSource{dir: dir, log: log.With("component", "vocab-dir", "dir", dir)}
}

func (s *DirSource) Name() string { return "dir:" + s.dir }

// LoadTopics never fails because of a single bad file; broken files are logged
// and skipped.
func (s *DirSource) LoadTopics(_ context.Context) (map[string][]domain.VocabularyEntry, error) {
	if _, err := os.Stat(s.dir); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return nil, fmt.Errorf("create vocabulary dir: %w", err)
		}
		s.log.Warn("created vocabulary directory, add CSV files to it")
		return map[string][]domain.VocabularyEntry{}, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("scan vocabulary dir: %w", err)
	}

	topics := make(map[string][]domain.VocabularyEntry, len(entries))
	for _, de := range entries {
		name := de.Name()
		if de.IsDir() || !strings.EqualFold(filepath.Ext(name), ".csv") {
			continue
		}
		path := filepath.Join(s.dir, name)
		id := strings.TrimSuffix(name, filepath.Ext(name))
		words, err := readCSVFile(path)
		if err != nil {
			s.log.Warn("skipping vocabulary file", "file", path, "error", err)
			continue
		}
		topics[id] = words
		s.log.Info("loaded vocabulary file", "topic", id, "words", len(words))
	}
	return topics, nil
}

func readCSVFile(path string) ([]domain.VocabularyEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses a header row containing word and translation columns.
// Other columns are ignored and rows missing either value are skipped.
func ReadCSV(r io.Reader) ([]domain.VocabularyEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrMissingColumns
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	wordCol, translationCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "word":
			wordCol = i
		case "translation":
			translationCol = i
		}
	}
	if wordCol < 0 || translationCol < 0 {
		return nil, ErrMissingColumns
	}

	var words []domain.VocabularyEntry
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if wordCol >= len(record) || translationCol >= len(record) {
			continue
		}
		word := strings.TrimSpace(record[wordCol])
		translation := strings.TrimSpace(record[translationCol])
		if word == "" || translation == "" {
			continue
		}
		words = append(words, domain.VocabularyEntry{Word: word, Translation: translation})
	}
	return words, nil
}

// StaticSource serves fixed topics; handy for tests and demos.
type StaticSource map[string][]domain.VocabularyEntry

func (s StaticSource) Name() string { return "static" }

func (s StaticSource) LoadTopics(context.Context) (map[string][]domain.VocabularyEntry, error) {
	return s, nil
}
