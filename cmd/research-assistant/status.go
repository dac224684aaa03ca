// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-assistant/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which sources and model are configured",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cmd.Context(), appConfig, logger)
		defer a.Close()

		info := a.statusInfo()
		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return printJSON(info)
		}

		model := info.Model
		if model == "" {
			model = "(no API key)"
		}
		fmt.Printf("LLM:       %s %s\n", info.Provider, model)
		fmt.Printf("Timeout:   %s per query\n\n", appConfig.QueryTimeout)
		for _, id := range types.AllSources {
			fmt.Printf("%-9s  %-11s  timeout %s\n", id, info.Sources[id], appConfig.Sources.Timeout.For(id))
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(statusCmd)
}
