package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashermoss/portfolio-rag/internal/app"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run the retrieval self-check against the fixed query panel",
	Long: `Bench runs a fixed panel of representative queries end to end and reports
the mean retrieval time against the 200ms design target. The target is
informational; nothing is rejected for exceeding it.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			report, err := a.Retrieval.RunDiagnostics(ctx)
			if err != nil {
				return err
			}

			for _, timing := range report.Timings {
				fmt.Printf("%-60s %8s  %d chunks  avg %.2f\n",
					timing.Query, timing.RetrievalTime, timing.Chunks, timing.AvgSimilarity)
			}
			fmt.Printf("\nMean retrieval time: %s (target %s)\n", report.MeanRetrievalTime, report.Target)
			if report.TargetMet {
				fmt.Println("Target met.")
			} else {
				fmt.Println("Target missed.")
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(benchCmd)
}
