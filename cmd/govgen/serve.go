package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/govgen/internal/mcptools"
)

type ServeMCPOptions struct {
	*GovgenOptions

	HTTPAddr string
}

func NewServeMCPOptions(g *GovgenOptions) *ServeMCPOptions {
	return &ServeMCPOptions{GovgenOptions: g}
}

func NewServeMCPCmd(o *ServeMCPOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Run as an MCP server on stdio, or over HTTP with --http",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringVar(&o.HTTPAddr, "http", "", "Serve streamable HTTP on this address instead of stdio (e.g. :8080)")
	return cmd
}

func (o *ServeMCPOptions) Run() error {
	p, err := o.loadProject()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(p.context(context.Background()), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profiles, err := p.profiles()
	if err != nil {
		return err
	}
	units, err := p.units()
	if err != nil {
		return err
	}
	sources, err := p.sources()
	if err != nil {
		return err
	}
	base := p.serviceConfig()

	server := mcptools.NewGovgenMCPServer(mcptools.NewGovgenService(profiles, units, base, sources))
	if o.HTTPAddr != "" {
		p.logger.Info("serving MCP over HTTP", "addr", o.HTTPAddr)
		return mcptools.RunHTTP(ctx, server, o.HTTPAddr)
	}
	p.logger.Debug("serving MCP on stdio")
	return mcptools.RunStdio(ctx, server)
}
