// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-assistant/internal/document"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Add documents to the local index",
	Long: `Ingest chunks and indexes documents for the DOCUMENT source. Markdown and
text files are read directly. PDF, DOCX, PPTX, and HTML files are converted
with the markitdown container image (docker or podman) when it is available.

Directories are walked recursively. Files that have not changed since they
were last indexed are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := document.Open(appConfig.Document, converterOption(ctx, logger)...)
		if err != nil {
			return err
		}
		defer store.Close()

		summary, err := store.Ingest(ctx, args, os.Stdout)
		if err != nil {
			return err
		}
		if summary.Failed > 0 {
			return fmt.Errorf("%d document(s) failed indexing", summary.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
