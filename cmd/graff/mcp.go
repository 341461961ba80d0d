package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/graff"
	"github.com/aretw0/graff/pkg/adapters/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes graph building as MCP tools (add_variable, add_factor, solve,
query, list, status) bound to the configured robot and session.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")
		register, _ := cmd.Flags().GetBool("register")

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

		ctx := cmd.Context()
		if register {
			if err := client.Register(ctx); err != nil {
				return fmt.Errorf("register: %w", err)
			}
		}

		srv := mcp.NewServer(client.Endpoint(), client.Manager(), s.Config.Session,
			mcp.WithVersion(graff.Version),
			mcp.WithLogger(s.Logger),
		)

		switch transport {
		case "stdio":
			// Logs must not corrupt JSON-RPC on Stdout.
			log.SetOutput(os.Stderr)
			s.Logger.Info("MCP server on stdio", "session", s.Config.Session)
			return srv.ServeStdio()
		case "sse":
			return serveSSE(ctx, srv.MCPServer(), addr, s.Config.Session)
		default:
			return fmt.Errorf("unknown transport %q (supported: stdio, sse)", transport)
		}
	},
}

func serveSSE(ctx context.Context, mcpServer *server.MCPServer, addr, session string) error {
	sse := server.NewSSEServer(mcpServer)
	errc := make(chan error, 1)
	go func() { errc <- sse.Start(addr) }()
	fmt.Fprintf(os.Stderr, ">>> MCP (SSE) for session '%s' on %s\n", session, addr)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return sse.Shutdown(sctx)
	}
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", "127.0.0.1:8081", "Listen address (only for SSE)")
	mcpCmd.Flags().Bool("register", true, "Register the robot and session before serving")
}
