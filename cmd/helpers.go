package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ashermoss/portfolio-rag/internal/app"
	"github.com/ashermoss/portfolio-rag/internal/config"
)

// withApp loads configuration, wires the application, runs fn, and releases
// everything afterward. Every data-touching command goes through here.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctx := cmd.Context()
	a, err := app.Setup(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	return fn(ctx, a)
}
