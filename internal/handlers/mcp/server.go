package mcp

import (
	"context"
	"net/http"

	"github.com/viant/jsonrpc/transport"
	mcpclientproto "github.com/viant/mcp-protocol/client"
	mcplogger "github.com/viant/mcp-protocol/logger"
	mcpserverproto "github.com/viant/mcp-protocol/server"
	mcpserver "github.com/viant/mcp/server"
)

// NewServer builds an MCP server whose sessions all share h.
func NewServer(h *ToolHandler) (*mcpserver.Server, error) {
	srv, err := mcpserver.New(
		mcpserver.WithRootRedirect(true),
		mcpserver.WithNewHandler(func(_ context.Context, _ transport.Notifier, _ mcplogger.Logger, _ mcpclientproto.Operations) (mcpserverproto.Handler, error) {
			return h, nil
		}),
	)
	if err != nil {
		return nil, err
	}
	srv.UseStreamableHTTP(true)
	return srv, nil
}

// ServeStdio runs the server over stdin and stdout until the input closes.
func ServeStdio(ctx context.Context, srv *mcpserver.Server) error {
	return srv.Stdio(ctx).ListenAndServe()
}

// HTTPHandler returns the streamable HTTP MCP endpoint. It does not listen.
func HTTPHandler(ctx context.Context, srv *mcpserver.Server, addr string) http.Handler {
	return srv.HTTP(ctx, addr).Handler
}
