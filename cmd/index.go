package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ashermoss/portfolio-rag/internal/app"
	"github.com/ashermoss/portfolio-rag/internal/index"
)

var (
	indexSourceType string
	indexSourceID   string
	indexTitle      string
	indexBodyFile   string
	indexTech       []string
	indexTags       []string
	indexCategory   string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index one portfolio entity, replacing its stored chunks",
	Long: `Index reads the entity body from --body-file (or stdin), renders it into
canonical index text together with the title and named fields, chunks and
embeds it, and replaces the entity's chunk set in the store wholesale.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		body, err := readBody(indexBodyFile)
		if err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			result, err := a.Indexer.IndexSource(ctx, index.Source{
				Type:         indexSourceType,
				ID:           indexSourceID,
				Title:        indexTitle,
				Body:         body,
				Technologies: indexTech,
				Tags:         indexTags,
				Category:     indexCategory,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Indexed %s/%s: %d chunks, %d tokens in %s\n",
				result.SourceType, result.SourceID, result.Chunks, result.Tokens, result.Duration)
			return nil
		})
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove every stored chunk of one portfolio entity",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			count, err := a.Indexer.RemoveSource(ctx, indexSourceType, indexSourceID)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d chunks for %s/%s\n", count, indexSourceType, indexSourceID)
			return nil
		})
	},
}

// readBody reads the entity body from path, or stdin when path is empty.
func readBody(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading body from stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading body file: %w", err)
	}
	return string(data), nil
}

func init() {
	indexCmd.Flags().StringVar(&indexSourceType, "type", "", "source type: project|blog|skill|experience")
	indexCmd.Flags().StringVar(&indexSourceID, "id", "", "source entity id")
	indexCmd.Flags().StringVar(&indexTitle, "title", "", "entity title")
	indexCmd.Flags().StringVar(&indexBodyFile, "body-file", "", "file holding the entity body (default: stdin)")
	indexCmd.Flags().StringSliceVar(&indexTech, "tech", nil, "technologies, comma-separated")
	indexCmd.Flags().StringSliceVar(&indexTags, "tags", nil, "tags, comma-separated")
	indexCmd.Flags().StringVar(&indexCategory, "category", "", "entity category")
	_ = indexCmd.MarkFlagRequired("type")
	_ = indexCmd.MarkFlagRequired("id")

	removeCmd.Flags().StringVar(&indexSourceType, "type", "", "source type: project|blog|skill|experience")
	removeCmd.Flags().StringVar(&indexSourceID, "id", "", "source entity id")
	_ = removeCmd.MarkFlagRequired("type")
	_ = removeCmd.MarkFlagRequired("id")

	rootCmd.AddCommand(indexCmd, removeCmd)
}
