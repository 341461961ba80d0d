package main

import (
	"fmt"
	"io"

	"github.com/aretw0/graff/internal/cli"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the local session mirrors",
	Long: `List, inspect, export and remove the session mirrors kept in the
configured store (.graff/sessions by default).`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := storage(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		names, err := st.Store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(names) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			return nil
		}
		fmt.Fprintln(out, "Sessions:")
		for _, name := range names {
			fmt.Fprintln(out, "- "+name)
		}
		return nil
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session>",
	Short: "Print a stored session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		focus, _ := cmd.Flags().GetStringSlice("focus")
		_, st, err := storage(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		s, err := st.Store.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("loading session '%s': %w", args[0], err)
		}
		text, err := cli.FormatSession(s, format, focus...)
		if err != nil {
			return err
		}
		if format == cli.FormatMarkdown {
			return printMarkdown(cmd.OutOrStdout(), text)
		}
		_, err = io.WriteString(cmd.OutOrStdout(), text)
		return err
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := storage(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		removed, err := cli.RemoveSessions(cmd.Context(), st.Store, args)
		for _, name := range removed {
			fmt.Fprintf(cmd.OutOrStdout(), "Removed session '%s'\n", name)
		}
		return err
	},
}

var sessionExportCmd = &cobra.Command{
	Use:   "export <session> <file>",
	Short: "Write a stored session to a JSON or YAML file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := storage(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := cli.ExportSession(cmd.Context(), st.Store, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported session '%s' to %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd, sessionInspectCmd, sessionRmCmd, sessionExportCmd)

	sessionInspectCmd.Flags().StringP("format", "f", cli.FormatJSON, "Output format: json, yaml, markdown or mermaid")
	sessionInspectCmd.Flags().StringSlice("focus", nil, "Variables to highlight on mermaid output")
}
