package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage persisted flow-state snapshots",
	Long: `List, inspect, and remove the snapshots kept in the configured store (CALLFLOW_STORE).
The memory store does not outlive the process, so use file or redis.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		if cfg.Store.Kind == "" || cfg.Store.Kind == "memory" {
			return errors.New("session commands need a persistent store: set CALLFLOW_STORE to file or redis")
		}
		return nil
	},
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		be, err := openBackend()
		if err != nil {
			return err
		}
		defer be.close()

		sessions, err := be.store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(sessions) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			return nil
		}
		for _, s := range sessions {
			fmt.Fprintln(out, "- "+s)
		}
		return nil
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Print the stored state of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		be, err := openBackend()
		if err != nil {
			return err
		}
		defer be.close()

		state, err := be.store.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("load session %q: %w", args[0], err)
		}
		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		be, err := openBackend()
		if err != nil {
			return err
		}
		defer be.close()

		out := cmd.OutOrStdout()
		var errs []error
		for _, id := range args {
			if err := be.store.Delete(cmd.Context(), id); err != nil {
				errs = append(errs, fmt.Errorf("remove %q: %w", id, err))
				continue
			}
			fmt.Fprintf(out, "Removed session '%s'\n", id)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
}
