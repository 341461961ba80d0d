package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/graff"
	"github.com/aretw0/graff/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "graff",
	Short: "graff talks to a factor-graph SLAM backend",
	Long: `graff builds factor graphs on a remote solver: it registers robots and
sessions, submits variables and factors, requests solves and reads back
estimates. It can also run a local mock backend for development.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it until
// SIGINT or SIGTERM.
func Execute() {
	sigCtx := cli.NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	if err := rootCmd.ExecuteContext(sigCtx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		sigCtx.Cancel()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "graff.yaml", "Config file (YAML, JSON or TOML); missing is fine")
	flags.String("endpoint", "", "Backend address: tcp://, ipc://, http:// or mem://")
	flags.Duration("timeout", 0, "Per-request timeout")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: text or json")
	flags.String("robot", "", "Robot name")
	flags.String("session", "", "Session name")
	flags.String("store", "", "Session store: file, memory or redis")
}

// settings resolves defaults, config file, environment and flags.
func settings(cmd *cobra.Command) (*cli.Settings, error) {
	flags := cmd.Flags()
	var f cli.Flags
	f.ConfigPath, _ = flags.GetString("config")
	f.Endpoint, _ = flags.GetString("endpoint")
	f.Timeout, _ = flags.GetDuration("timeout")
	f.LogLevel, _ = flags.GetString("log-level")
	f.LogFormat, _ = flags.GetString("log-format")
	f.Robot, _ = flags.GetString("robot")
	f.Session, _ = flags.GetString("session")
	f.Store, _ = flags.GetString("store")
	return cli.Resolve(f)
}

// storage resolves settings and opens the session store. Callers close it.
func storage(cmd *cobra.Command) (*cli.Settings, *cli.Storage, error) {
	s, err := settings(cmd)
	if err != nil {
		return nil, nil, err
	}
	st, err := cli.OpenStorage(s.Config.Store)
	if err != nil {
		return nil, nil, err
	}
	return s, st, nil
}

// withClient runs fn against a client for the configured endpoint.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *graff.Client) error) error {
	s, st, err := storage(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	client, err := s.Dial(st)
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(cmd.Context(), client)
}
