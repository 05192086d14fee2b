package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/gracie007-cloud/claude-supermemory/internal/core"
	"github.com/gracie007-cloud/claude-supermemory/internal/integration"
	smmcp "github.com/gracie007-cloud/claude-supermemory/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the supermemory MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the supermemory MCP server on stdio",
	Long: `Start the supermemory MCP server on stdio transport.

The server exposes the project's memories as MCP tools that AI coding
assistants can call: search_memories, get_profile, save_memory, get_metrics.
Without an API key the server still starts; memory tools then report how
to configure one.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := newMCPServer()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}

		return nil
	},
}

// newMCPServer builds a server scoped to the current project.
func newMCPServer() (*smmcp.Server, error) {
	dir, err := workDir()
	if err != nil {
		return nil, err
	}
	client, _, err := openMemoryClient(dir)
	if err != nil && !errors.Is(err, core.ErrNoAPIKey) {
		return nil, err
	}
	scope := smmcp.Scope{
		ProjectName:  integration.ProjectName(dir),
		ContainerTag: integration.ContainerTag(dir),
		UserTag:      integration.UserContainerTag(),
	}
	return smmcp.NewServer(client, scope, MetricsCalc, EventLog, appVersion), nil
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
