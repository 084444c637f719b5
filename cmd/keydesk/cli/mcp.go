package cli

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	kmcp "github.com/keydesk/keydesk/internal/mcp"
	"github.com/keydesk/keydesk/internal/service"
)

func newMCPCmd(a *app) *cobra.Command {
	var (
		transport string
		host      string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes the key registry
and API key administration as tools for AI agents. Supports stdio (default)
and streamable HTTP transports.

The HTTP transport has no authentication of its own and binds to 127.0.0.1
by default.`,
		Example: `  keydesk mcp                               # stdio mode
  keydesk mcp --transport http --port 3001  # streamable HTTP`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd, a, transport, host, port)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "HTTP host (only used with --transport http)")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")

	return cmd
}

func runMCP(cmd *cobra.Command, a *app, transport, host string, port int) error {
	if transport != "stdio" && transport != "http" {
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", transport)
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	// stdout carries the protocol in stdio mode, so logs always go to stderr
	// or the configured file.
	logger, closeLog := newLogger(cfg.Log, false, cmd.ErrOrStderr())
	defer closeLog.Close()

	st, err := openStore(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := kmcp.NewMCPServer(
		service.NewRegistryService(st, cfg.Auth.AdminSecret),
		service.NewAPIKeyService(st),
		versionString(a.version),
		logger,
	)

	if transport == "stdio" {
		return srv.ServeStdio()
	}
	return srv.ServeHTTP(net.JoinHostPort(host, strconv.Itoa(port)))
}
