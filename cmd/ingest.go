/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Populate the knowledge base from the help-center pages",
	Long: `Fetches every configured source page, splits it into chunks, embeds the
chunks and stores them in the vector store. A completed knowledge base is
left untouched unless --reinit is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reinit, _ := cmd.Flags().GetBool("reinit")
		ctx := cmd.Context()

		app, err := newApplication(ctx, cfg, zlog)
		if err != nil {
			return err
		}
		defer app.Close()

		if reinit {
			if err := app.ingest.Reinit(ctx); err != nil {
				return err
			}
			zlog.Info("Knowledge base cleared")
		}
		if err := app.ensureIngested(ctx, cfg, zlog); err != nil {
			return err
		}
		count, err := app.store.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Knowledge base holds %d chunks\n", count)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().Bool("reinit", false, "drop the existing knowledge base before ingesting")
}
