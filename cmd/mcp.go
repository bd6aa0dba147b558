package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	coreconfig "github.com/AzielCF/az-tweetcast/core/config"
	"github.com/AzielCF/az-tweetcast/ui/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the schedule MCP server using SSE",
	Long:  `Start an MCP (Model Context Protocol) server using Server-Sent Events (SSE) transport so AI agents can list, toggle and run schedules.`,
	Run:   mcpServer,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("mcp-port", "", "Port for the SSE MCP server")
	mcpCmd.Flags().String("mcp-host", "", "Host for the SSE MCP server")
}

func mcpServer(cmd *cobra.Command, _ []string) {
	mcpCfg := coreconfig.Global.MCP
	if v, _ := cmd.Flags().GetString("mcp-port"); v != "" {
		mcpCfg.Port = v
	}
	if v, _ := cmd.Flags().GetString("mcp-host"); v != "" {
		mcpCfg.Host = v
	}

	mcpServer := server.NewMCPServer(
		"Tweetcast Scheduler MCP Server",
		coreconfig.Global.App.Version,
		server.WithToolCapabilities(true),
	)

	scheduleHandler := mcp.InitMcpSchedule(scheduleService, executor)
	scheduleHandler.AddScheduleTools(mcpServer)

	sseServer := server.NewSSEServer(
		mcpServer,
		server.WithBaseURL(fmt.Sprintf("http://%s:%s", mcpCfg.Host, mcpCfg.Port)),
		server.WithKeepAlive(true),
	)

	addr := fmt.Sprintf("%s:%s", mcpCfg.Host, mcpCfg.Port)
	logrus.Printf("Starting MCP SSE server on %s", addr)
	logrus.Printf("SSE endpoint: http://%s/sse", addr)
	logrus.Printf("Message endpoint: http://%s/message", addr)

	// Graceful shutdown handler
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	stopped := onShutdown(sigChan,
		func() {
			logrus.Info("[MCP] Reception of termination signal, shutting down gracefully...")
			if err := sseServer.Shutdown(context.Background()); err != nil {
				logrus.WithError(err).Error("[MCP] Error during SSE shutdown")
			}
		},
		StopApp,
	)

	if err := sseServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.Fatalf("Failed to start SSE server: %v", err)
	}
	<-stopped
}
