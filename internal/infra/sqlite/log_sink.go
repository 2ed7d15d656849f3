// Package sqlite persists log entries to a local SQLite database so they can
// be inspected after the fact with the `logs` command.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap/zapcore"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS logs (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	ts      TIMESTAMP NOT NULL,
	level   TEXT NOT NULL,
	logger  TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL,
	caller  TEXT NOT NULL DEFAULT '',
	fields  TEXT NOT NULL DEFAULT '{}'
)`

// LogRecord is one stored log entry.
type LogRecord struct {
	ID        int64
	Timestamp time.Time
	Level     string
	Logger    string
	Message   string
	Caller    string
	Fields    map[string]interface{}
}

// LogSink is a zapcore.Core writing entries into the logs table.
type LogSink struct {
	zapcore.LevelEnabler
	db     *sql.DB
	fields []zapcore.Field
}

// Open creates (or reuses) the database at path and ensures the schema.
func Open(path string, level zapcore.LevelEnabler) (*LogSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open log database: %w", err)
	}
	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create logs table: %w", err)
	}
	return &LogSink{LevelEnabler: level, db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// With returns a core sharing the same database with extra context fields.
func (s *LogSink) With(fields []zapcore.Field) zapcore.Core {
	clone := *s
	clone.fields = append(append([]zapcore.Field(nil), s.fields...), fields...)
	return &clone
}

func (s *LogSink) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if s.Enabled(ent.Level) {
		return ce.AddCore(ent, s)
	}
	return ce
}

func (s *LogSink) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range s.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	data, err := json.Marshal(enc.Fields)
	if err != nil {
		return fmt.Errorf("encode log fields: %w", err)
	}
	caller := ""
	if ent.Caller.Defined {
		caller = ent.Caller.TrimmedPath()
	}
	_, err = s.db.Exec(
		`INSERT INTO logs (ts, level, logger, message, caller, fields) VALUES (?, ?, ?, ?, ?, ?)`,
		ent.Time.UTC(), ent.Level.String(), ent.LoggerName, ent.Message, caller, string(data),
	)
	return err
}

func (s *LogSink) Sync() error { return nil }

// Close closes the underlying database; cores derived via With become unusable.
func (s *LogSink) Close() error { return s.db.Close() }

// Recent returns up to limit entries, newest first.
func (s *LogSink) Recent(ctx context.Context, limit int) ([]LogRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, level, logger, message, caller, fields FROM logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	var out []LogRecord
	for rows.Next() {
		var rec LogRecord
		var raw string
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.Level, &rec.Logger, &rec.Message, &rec.Caller, &raw); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &rec.Fields); err != nil {
			return nil, fmt.Errorf("decode log fields: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
