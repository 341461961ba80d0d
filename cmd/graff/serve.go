package main

import (
	"fmt"

	"github.com/aretw0/graff/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the mock backend",
	Long: `Starts an in-process mock backend answering on ZeroMQ REP and on HTTP
(POST /v1/request, GET /health, GET /metrics). It stops on SIGINT, SIGTERM
or a requestShutdown from any client.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings(cmd)
		if err != nil {
			return err
		}
		opts := cli.ServeOptions{
			ZMQ:    s.Config.Serve.ZMQ,
			HTTP:   s.Config.Serve.HTTP,
			Mock:   s.Config.Serve.Mock,
			Logger: s.Logger,
			Ready: func(zmqAddr, httpAddr string) {
				out := cmd.OutOrStdout()
				if zmqAddr != "" {
					fmt.Fprintf(out, ">>> ZeroMQ on %s\n", zmqAddr)
				}
				if httpAddr != "" {
					fmt.Fprintf(out, ">>> HTTP on %s\n", httpAddr)
				}
			},
		}
		flags := cmd.Flags()
		if flags.Changed("zmq") {
			opts.ZMQ, _ = flags.GetString("zmq")
		}
		if flags.Changed("http") {
			opts.HTTP, _ = flags.GetString("http")
		}
		if flags.Changed("mock") {
			opts.Mock, _ = flags.GetBool("mock")
		}

		ctx := cmd.Context()
		err = cli.Serve(ctx, opts)
		if sc, ok := ctx.(*cli.SignalContext); ok && sc.Signal() != nil {
			s.Logger.Info("stopped", "signal", sc.Signal().String())
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("zmq", "", "ZeroMQ REP address, empty to disable (default from config)")
	serveCmd.Flags().String("http", "", "HTTP listen address, empty to disable (default from config)")
	serveCmd.Flags().Bool("mock", false, "Start in mock mode")
}
