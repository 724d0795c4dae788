/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Query the knowledge base directly",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		ctx := cmd.Context()

		app, err := newApplication(ctx, cfg, zlog)
		if err != nil {
			return err
		}
		defer app.Close()

		docs, distances, err := app.retriever.Search(ctx, strings.Join(args, " "), limit)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Println("No documents found. Run `support-assistant ingest` first.")
			return nil
		}
		for i, doc := range docs {
			fmt.Printf("%d. [%s] %s (distance %.4f)\n", i+1, doc.Metadata.SourceID, doc.Metadata.Source, distances[i])
			fmt.Printf("   %s\n\n", truncateRunes(doc.Content, 300))
		}
		return nil
	},
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntP("limit", "n", 4, "number of chunks to return")
}
