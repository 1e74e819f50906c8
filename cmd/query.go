package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashermoss/portfolio-rag/internal/app"
	"github.com/ashermoss/portfolio-rag/internal/retrieval"
)

var (
	queryTopK          int
	querySourceType    string
	queryCategory      string
	queryMinSimilarity float64
	queryNoMetadata    bool
	queryAsPrompt      bool
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Retrieve relevant portfolio context for a question",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := args[0]

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			// Explicit flags win; otherwise configured retrieval defaults apply.
			topK, minSimilarity := queryTopK, queryMinSimilarity
			if !cmd.Flags().Changed("top-k") && a.Config.TopK > 0 {
				topK = a.Config.TopK
			}
			if !cmd.Flags().Changed("min-similarity") {
				minSimilarity = a.Config.MinSimilarity
			}

			opts := []retrieval.Option{
				retrieval.WithTopK(topK),
				retrieval.WithMinSimilarity(minSimilarity),
			}
			if querySourceType != "" {
				opts = append(opts, retrieval.WithSourceType(querySourceType))
			}
			if queryCategory != "" {
				opts = append(opts, retrieval.WithCategory(queryCategory))
			}
			if queryNoMetadata {
				opts = append(opts, retrieval.WithoutMetadata())
			}

			ragCtx, err := a.Retrieval.RetrieveContext(ctx, question, opts...)
			if err != nil {
				return err
			}

			if queryAsPrompt {
				fmt.Println(retrieval.FormatPromptWithContext(question, ragCtx))
			} else {
				fmt.Println(ragCtx.FormattedContext)
			}
			fmt.Printf("\n%d chunks, avg similarity %.2f, retrieved in %s\n",
				ragCtx.TotalChunks, ragCtx.AvgSimilarity, ragCtx.RetrievalTime)
			return nil
		})
	},
}

var (
	chunksSourceType string
	chunksSourceID   string
)

var chunksCmd = &cobra.Command{
	Use:   "chunks",
	Short: "List every stored chunk of one entity in chunk order",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			contexts, err := a.Retrieval.RetrieveBySource(ctx, chunksSourceType, chunksSourceID)
			if err != nil {
				return err
			}

			if len(contexts) == 0 {
				fmt.Printf("No chunks stored for %s/%s\n", chunksSourceType, chunksSourceID)
				return nil
			}
			for _, c := range contexts {
				fmt.Printf("[%d] %s\n", c.ChunkIndex, c.Content)
			}
			return nil
		})
	},
}

func init() {
	queryCmd.Flags().IntVar(&queryTopK, "top-k", retrieval.DefaultTopK, "number of contexts to return")
	queryCmd.Flags().StringVar(&querySourceType, "type", "", "restrict to one source type")
	queryCmd.Flags().StringVar(&queryCategory, "category", "", "restrict to one category")
	queryCmd.Flags().Float64Var(&queryMinSimilarity, "min-similarity", retrieval.DefaultMinSimilarity, "similarity floor in [0,1]")
	queryCmd.Flags().BoolVar(&queryNoMetadata, "no-metadata", false, "omit chunk metadata from output")
	queryCmd.Flags().BoolVar(&queryAsPrompt, "prompt", false, "print the fully assembled prompt instead of the raw context")

	chunksCmd.Flags().StringVar(&chunksSourceType, "type", "", "source type: project|blog|skill|experience")
	chunksCmd.Flags().StringVar(&chunksSourceID, "id", "", "source entity id")
	_ = chunksCmd.MarkFlagRequired("type")
	_ = chunksCmd.MarkFlagRequired("id")

	rootCmd.AddCommand(queryCmd, chunksCmd)
}
