package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewGovgenMCPServer creates an MCP server with the six govgen tools
// registered.
func NewGovgenMCPServer(svc *GovgenService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "govgen",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_profiles",
		Description: "List the available industry profiles with their regulatory frameworks and recommended modules and adapters.",
	}, svc.ListProfiles)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "resolve_config",
		Description: "Resolve a configuration by layering client and artifact overrides over an industry profile baseline.",
	}, svc.ResolveConfig)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "config_delta",
		Description: "Show how a resolved configuration differs from its profile baseline, as a minimal override document and a line diff.",
	}, svc.ConfigDelta)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_config",
		Description: "Check a configuration for missing required fields and validate every enabled platform unit against it.",
	}, svc.ValidateConfig)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "preview_run",
		Description: "Report which units and standards modules a generation run would cover, without running it.",
	}, svc.PreviewRun)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate",
		Description: "Run the generation pipeline for a configuration. Returns per-unit file lists, errors and warnings, and optionally writes the archive.",
	}, svc.Generate)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP server over streamable HTTP on addr until ctx is
// cancelled.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
