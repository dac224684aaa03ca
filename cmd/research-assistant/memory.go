// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-assistant/internal/memory"
	"github.com/pdiddy/research-assistant/internal/source"
	"github.com/pdiddy/research-assistant/pkg/types"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect or clear conversation memory",
}

var memoryShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored turns of a conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, session, err := openMemory(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		msgs, err := store.History(cmd.Context(), session.ID())
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			fmt.Println("No stored turns for", session.ID())
			return nil
		}
		for _, m := range msgs {
			fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Local().Format("2006-01-02 15:04:05"), m.Role, m.Content)
		}
		return nil
	},
}

var memoryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the stored turns of a conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, session, err := openMemory(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Clear(cmd.Context(), session.ID()); err != nil {
			return err
		}
		fmt.Println("Cleared", session.ID())
		return nil
	},
}

func openMemory(cmd *cobra.Command) (memory.Store, source.Session, error) {
	user, _ := cmd.Flags().GetString("user")
	thread, _ := cmd.Flags().GetString("thread")
	session := source.SessionFor(types.QueryRequest{UserID: user, ThreadID: thread})

	store, err := memory.Open(appConfig.Memory)
	if err != nil {
		return nil, session, err
	}
	return store, session, nil
}

func init() {
	for _, c := range []*cobra.Command{memoryShowCmd, memoryClearCmd} {
		c.Flags().String("user", types.DefaultUserID, "user id")
		c.Flags().String("thread", types.DefaultThreadID, "thread id")
	}
	memoryCmd.AddCommand(memoryShowCmd, memoryClearCmd)
	rootCmd.AddCommand(memoryCmd)
}
