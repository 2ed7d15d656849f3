package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"wlingo-quiz-service/internal/config"
	"wlingo-quiz-service/internal/infra/sqlite"
)

// NewLogsCmd prints recent entries from the SQLite log sink.
func NewLogsCmd(configPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log entries stored in SQLite",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Log.SQLitePath == "" {
				return errors.New("log.sqlite_path not configured")
			}
			sink, err := sqlite.Open(cfg.Log.SQLitePath, zapcore.InfoLevel)
			if err != nil {
				return err
			}
			defer sink.Close()

			records, err := sink.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i := len(records) - 1; i >= 0; i-- {
				rec := records[i]
				fields, _ := json.Marshal(rec.Fields)
				fmt.Fprintf(out, "%s %-5s %s %s\n", rec.Timestamp.Local().Format(time.DateTime), rec.Level, rec.Message, fields)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "number of entries to show")
	return cmd
}
