// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-assistant/internal/pipeline"
	"github.com/pdiddy/research-assistant/pkg/types"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Answer one question from all sources",
	Long: `Query sends the question to the document index, conversation memory, web
search, and academic search at once, keeps the relevant evidence, and prints
a cited answer. Sources that fail or time out are reported but never stop
the answer.

The question and answer are added to the conversation memory of the given
user and thread, so follow-up questions can refer to them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	user, _ := cmd.Flags().GetString("user")
	thread, _ := cmd.Flags().GetString("thread")
	savePath, _ := cmd.Flags().GetString("save")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	req := types.QueryRequest{Query: strings.Join(args, " "), UserID: user, ThreadID: thread}.Trimmed()
	if err := checkQuery(req.Query); err != nil {
		return err
	}
	req = req.WithDefaults()

	a := newApp(ctx, appConfig, logger)
	defer a.Close()

	resp := a.pipeline.Run(ctx, req)

	if savePath != "" {
		if err := pipeline.Save(savePath, req, resp); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Saved to", savePath)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	printResponse(os.Stdout, resp)
	return nil
}

// checkQuery applies the same limits as POST /query.
func checkQuery(q string) error {
	switch {
	case q == "":
		return fmt.Errorf("query is empty")
	case utf8.RuneCountInString(q) > 4000:
		return fmt.Errorf("query is longer than 4000 characters")
	}
	return nil
}

func printResponse(w io.Writer, resp types.QueryResponse) {
	if resp.Status == types.FinalOK {
		fmt.Fprintln(w, resp.Answer)
	} else {
		fmt.Fprintln(w, "Not enough context to answer.")
	}
	fmt.Fprintln(w)

	if len(resp.Citations) > 0 {
		fmt.Fprintln(w, "Citations:")
		for i, c := range resp.Citations {
			fmt.Fprintf(w, "  [%d] %s (%s)\n", i+1, c.Label, c.Locator)
		}
		fmt.Fprintln(w)
	}
	if len(resp.Missing) > 0 {
		fmt.Fprintln(w, "Missing:")
		for _, m := range resp.Missing {
			fmt.Fprintf(w, "  - %s\n", m)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Status: %s   Source used: %s   Confidence: %.2f\n\n", resp.Status, resp.SourceUsed, resp.Confidence)

	fmt.Fprintf(w, "%-9s  %-13s  %-10s  %-9s  %s\n", "Source", "Status", "Confidence", "Relevance", "Kept")
	fmt.Fprintln(w, strings.Repeat("-", 56))
	for _, id := range types.AllSources {
		r := resp.ContextSources[id]
		kept := ""
		if resp.EvaluationResult.Includes(id) {
			kept = "yes"
		}
		fmt.Fprintf(w, "%-9s  %-13s  %-10.2f  %-9.2f  %s\n",
			id, r.Status, r.Confidence, resp.EvaluationResult.RelevanceScores[id], kept)
	}
	if resp.EvaluationResult.Fallback {
		fmt.Fprintln(w, "\nRelevance judgment unavailable; adapter confidences were used.")
	}
}

func init() {
	queryCmd.Flags().String("user", types.DefaultUserID, "user id for conversation memory")
	queryCmd.Flags().String("thread", types.DefaultThreadID, "thread id for conversation memory")
	queryCmd.Flags().String("save", "", "save request and response to a .yaml or .json file")
	queryCmd.Flags().Bool("json", false, "print the full response as JSON")

	rootCmd.AddCommand(queryCmd)
}
