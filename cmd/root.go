// Package cmd implements the portfolio-rag CLI: indexing portfolio content,
// querying it, and inspecting the stored corpus.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ashermoss/portfolio-rag/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "portfolio-rag",
	Short: "RAG subsystem for the portfolio application",
	Long: `portfolio-rag turns portfolio content (projects, blog posts, skills,
experience) into a semantically searchable index backed by PostgreSQL and
pgvector, and retrieves relevant snippets to ground a conversational
agent's answers.`,
	SilenceUsage: true,
}

// Execute is the entry point called from main.
func Execute() error {
	slog.SetDefault(initLogger())
	return rootCmd.Execute()
}

// initLogger builds the process logger. DEBUG=1 lowers the level; logs go
// to stderr so stdout stays clean for command output.
func initLogger() *slog.Logger {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	return log.New(cfg)
}
