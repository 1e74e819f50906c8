package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashermoss/portfolio-rag/internal/app"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show stored corpus totals by source type and category",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			stats, err := a.Store.GetStats(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Total chunks: %d\n", stats.TotalChunks)
			if len(stats.ChunksByType) > 0 {
				fmt.Println("By source type:")
				for sourceType, count := range stats.ChunksByType {
					fmt.Printf("  %-12s %d\n", sourceType, count)
				}
			}
			if len(stats.ChunksByCategory) > 0 {
				fmt.Println("By category:")
				for category, count := range stats.ChunksByCategory {
					fmt.Printf("  %-12s %d\n", category, count)
				}
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
