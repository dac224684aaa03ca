// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-assistant/internal/document"
	"github.com/pdiddy/research-assistant/pkg/types"
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Inspect the document index",
}

// --- list subcommand ---

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := document.Open(appConfig.Document)
		if err != nil {
			return err
		}
		defer store.Close()

		docs, err := store.Documents(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return printJSON(docs)
		}
		if len(docs) == 0 {
			fmt.Println("No documents indexed.")
			return nil
		}

		fmt.Printf("%-40s  %-6s  %-20s  %s\n", "Title", "Chunks", "Modified", "Path")
		fmt.Println(strings.Repeat("-", 100))
		for _, d := range docs {
			fmt.Printf("%-40s  %-6d  %-20s  %s\n",
				clip(d.Title, 40), d.Chunks, d.ModTime.Format("2006-01-02 15:04"), d.Path)
		}
		fmt.Printf("\n%d documents\n", len(docs))
		return nil
	},
}

// --- search subcommand ---

var documentsSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the document index directly",
	Long: `Search runs a full-text query against the document index and prints the
matching chunks with their scores, without calling any other source or
the LLM.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := document.Open(appConfig.Document)
		if err != nil {
			return err
		}
		defer store.Close()

		chunks, err := store.Search(cmd.Context(), strings.Join(args, " "), limit)
		if err != nil {
			return err
		}
		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return printJSON(chunks)
		}
		printChunks(chunks)
		return nil
	},
}

func printChunks(chunks []types.Chunk) {
	if len(chunks) == 0 {
		fmt.Println("No results found.")
		return
	}
	fmt.Printf("%-4s  %-5s  %-25s  %-5s  %s\n", "Rank", "Score", "Document", "Page", "Text")
	fmt.Println(strings.Repeat("-", 100))
	for i, c := range chunks {
		page := "-"
		if c.Page > 0 {
			page = fmt.Sprint(c.Page)
		}
		fmt.Printf("%-4d  %.3f  %-25s  %-5s  %s\n",
			i+1, c.Score, clip(c.Label, 25), page, clip(strings.Join(strings.Fields(c.Text), " "), 50))
	}
	fmt.Printf("\n%d results\n", len(chunks))
}

// --- remove subcommand ---

var documentsRemoveCmd = &cobra.Command{
	Use:   "remove [path]",
	Short: "Remove a document from the index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := document.Open(appConfig.Document)
		if err != nil {
			return err
		}
		defer store.Close()

		removed, err := store.Remove(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("%s is not indexed", args[0])
		}
		fmt.Println("Removed", args[0])
		return nil
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	documentsListCmd.Flags().Bool("json", false, "output as JSON")
	documentsSearchCmd.Flags().Int("limit", 10, "maximum number of chunks")
	documentsSearchCmd.Flags().Bool("json", false, "output as JSON")

	documentsCmd.AddCommand(documentsListCmd, documentsSearchCmd, documentsRemoveCmd)
	rootCmd.AddCommand(documentsCmd)
}
