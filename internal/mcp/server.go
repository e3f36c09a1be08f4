// Package mcp exposes the upload ledger to AI assistants over the Model
// Context Protocol.
package mcp

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/takeshy/photorelay/internal/ledger"
)

// LedgerReader is the read side of the ledger the tools need
type LedgerReader interface {
	IsRecorded(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (*ledger.Entry, error)
	List(ctx context.Context, limit int) ([]ledger.Entry, error)
	Stats(ctx context.Context) (ledger.Stats, error)
}

// ServerConfig holds configuration for the MCP server
type ServerConfig struct {
	Ledger LedgerReader
}

// Server wraps the MCP server with photorelay-specific tools
type Server struct {
	mcpServer *mcp.Server
	ledger    LedgerReader
}

// NewServer creates a new MCP server
func NewServer(config ServerConfig, version string) (*Server, error) {
	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "photorelay",
		Version: version,
	}, nil)

	s := &Server{
		mcpServer: mcpServer,
		ledger:    config.Ledger,
	}

	s.registerTools()

	return s, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "ledger_stats",
		Description: "Summarize the upload ledger: how many items were sent, how many were skipped as too large, and when the last one was recorded.",
	}, s.handleLedgerStats)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "ledger_list",
		Description: "List the most recently recorded items, newest first, optionally filtered by a regex on the file name.",
	}, s.handleLedgerList)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "is_recorded",
		Description: "Check whether a content key (a local file's SHA-256 or a cloud media item ID) has already been relayed.",
	}, s.handleIsRecorded)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "identify_file",
		Description: "Compute the content key of a local file and report whether it has already been relayed.",
	}, s.handleIdentifyFile)
}

// RunStdio runs the server using stdio transport
func (s *Server) RunStdio(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// NewHTTPHandler creates an HTTP handler for SSE transport
func (s *Server) NewHTTPHandler() http.Handler {
	return mcp.NewSSEHandler(func(req *http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
}

// NewStreamableHTTPHandler creates a streamable HTTP handler
func (s *Server) NewStreamableHTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(req *http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
}
