package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"designkit/internal/logging"
	"designkit/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the design system dataset over MCP stdio",
	Long: `Serve loads the dataset, starts the file watcher and speaks the Model
Context Protocol on stdin/stdout until the client disconnects. Logs go to
stderr so they never corrupt the protocol stream.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := logging.NewAppLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		logger.Error("Error loading config", "error", err)
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	srv := mcp.NewServer(cfg, logger)

	// Tear down on SIGINT/SIGTERM. ServeStdio also returns when stdin
	// closes, which is the normal MCP client shutdown path.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logger.Info("Shutdown signal received")
		cancel()
		if err := srv.Stop(); err != nil {
			logger.Error("Error during shutdown", "error", err)
		}
	}()

	if err := srv.Start(ctx); err != nil {
		logger.Error("MCP server exited with error", "error", err)
		return err
	}
	return srv.Stop()
}
