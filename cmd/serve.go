package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/takeshy/photorelay/internal/ledger"
	mcpserver "github.com/takeshy/photorelay/internal/mcp"
)

var (
	serveTransport string
	servePort      int
	serveAPIKey    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP server for AI assistant integration",
	Long: `Start a Model Context Protocol (MCP) server that lets AI assistants
query the upload ledger: what was sent, what was skipped as too large, and
whether a given file has already been relayed.

Transport options:
  stdio: Standard input/output (default, for local CLI integration)
  sse:   Server-Sent Events over HTTP (for remote connections, requires API key)
  http:  Streamable HTTP (for bidirectional HTTP communication, requires API key)

Examples:
  # Start stdio server (for Claude Desktop config)
  photorelay serve --db /data/history.db

  # Start HTTP server on port 8080 (API key required)
  photorelay serve --transport http --port 8080 --serve-api-key mysecretkey

  # Or use environment variable for API key
  export PHOTORELAY_SERVE_API_KEY=mysecretkey
  photorelay serve --transport sse --port 8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveTransport, "transport", "stdio", "Transport type: stdio, sse, or http")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port for HTTP/SSE server")
	serveCmd.Flags().StringVar(&serveAPIKey, "serve-api-key", "", "API key for HTTP authentication (or PHOTORELAY_SERVE_API_KEY env var)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	l, err := ledger.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer l.Close()

	server, err := mcpserver.NewServer(mcpserver.ServerConfig{Ledger: l}, Version)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	switch serveTransport {
	case "stdio":
		fmt.Fprintln(os.Stderr, "Starting MCP server on stdio...")
		return server.RunStdio(ctx)

	case "sse":
		return runHTTPServerWithShutdown(ctx, server.NewHTTPHandler(), "SSE")

	case "http":
		return runHTTPServerWithShutdown(ctx, server.NewStreamableHTTPHandler(), "HTTP")

	default:
		return fmt.Errorf("unknown transport: %s (must be stdio, sse, or http)", serveTransport)
	}
}

func runHTTPServerWithShutdown(ctx context.Context, handler http.Handler, transportName string) error {
	httpAPIKey := serveAPIKey
	if httpAPIKey == "" {
		httpAPIKey = os.Getenv("PHOTORELAY_SERVE_API_KEY")
	}

	// Require API key for HTTP server
	if httpAPIKey == "" {
		return fmt.Errorf("API key required for HTTP server. Use --serve-api-key or set PHOTORELAY_SERVE_API_KEY environment variable")
	}

	handler = mcpserver.APIKeyMiddleware(httpAPIKey, handler)

	addr := fmt.Sprintf(":%d", servePort)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nShutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(os.Stderr, "Starting MCP %s server on http://localhost%s (API key authentication enabled)\n", transportName, addr)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
