// Package mcp implements the Model Context Protocol server for designkit
// using the mcp-go library.
//
// The server exposes the design-system dataset (tokens, components,
// guidelines) through query tools over stdio JSON-RPC 2.0. All data access
// goes through the query facades and their circuit breakers; this package
// only maps tool calls to facade methods and classified errors to the
// normalized error payload.
package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"

	"designkit/internal/breaker"
	"designkit/internal/config"
	"designkit/internal/data"
	"designkit/internal/errdefs"
	"designkit/internal/logging"
	"designkit/internal/metrics"
	"designkit/internal/services"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Server wires the data manager, breaker registry, facades and the MCP
// protocol layer together.
type Server struct {
	cfg    *config.Config
	logger *logging.AppLogger

	manager    *data.Manager
	registry   *breaker.Registry
	observer   *metrics.Observer
	tokens     *services.TokenService
	components *services.ComponentService
	guidelines *services.GuidelineService

	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, logger *logging.AppLogger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
	}
}

// Start initializes all components and serves MCP over stdio until the
// client disconnects or the process is signaled.
func (s *Server) Start(ctx context.Context) error {
	if err := s.InitializeComponents(ctx); err != nil {
		return err
	}

	s.logger.Info("MCP server created, starting stdio communication")
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// InitializeComponents builds the data manager, breaker registry, facades
// and tool registrations without starting the stdio transport. Exposed for
// tests.
func (s *Server) InitializeComponents(ctx context.Context) error {
	s.logger.Info("Initializing MCP server", "data_dir", s.cfg.DataDir)

	manager, err := data.NewManager(s.cfg.DataConfig())
	if err != nil {
		return fmt.Errorf("failed to create data manager: %w", err)
	}
	s.manager = manager

	s.observer = metrics.NewObserver()
	s.manager.OnEvent(s.observer.DataHandler())
	s.manager.OnEvent(s.logDataEvent)

	s.registry = breaker.NewRegistry(s.logger)
	s.registry.Subscribe(s.observer.BreakerHandler())

	res, err := s.manager.Initialize(ctx)
	if err != nil {
		return fmt.Errorf("failed to load design system data: %w", err)
	}
	for _, w := range res.Warnings {
		s.logger.Warn("Data load warning", "warning", w)
	}
	s.logger.Info("Design system data loaded",
		"tokens", len(res.Snapshot.Tokens),
		"components", len(res.Snapshot.Components),
		"guidelines", len(res.Snapshot.Guidelines),
	)

	bcfg := s.cfg.BreakerConfig()
	if s.tokens, err = services.NewTokenService(s.manager, s.registry, bcfg); err != nil {
		return fmt.Errorf("failed to create token service: %w", err)
	}
	if s.components, err = services.NewComponentService(s.manager, s.registry, bcfg); err != nil {
		return fmt.Errorf("failed to create component service: %w", err)
	}
	if s.guidelines, err = services.NewGuidelineService(s.manager, s.registry, bcfg); err != nil {
		return fmt.Errorf("failed to create guideline service: %w", err)
	}

	s.mcpServer = server.NewMCPServer(
		"designkit",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)
	s.registerTools()

	return nil
}

// Stop gracefully shuts down the MCP server and tears down the data manager.
func (s *Server) Stop() error {
	s.logger.Info("Stopping MCP server")
	if s.manager != nil {
		return s.manager.Close()
	}
	return nil
}

// logDataEvent renders data manager events through the application logger,
// picking the level from the event type.
func (s *Server) logDataEvent(ev data.Event) {
	switch ev.Type {
	case data.EventDataLoaded, data.EventDataUpdated:
		keyvals := []interface{}{"event", string(ev.Type)}
		if ev.Snapshot != nil {
			for dataset, count := range ev.Snapshot.Counts() {
				keyvals = append(keyvals, dataset, count)
			}
		}
		if len(ev.Warnings) > 0 {
			keyvals = append(keyvals, "warnings", len(ev.Warnings))
		}
		s.logger.Info("Design system data refreshed", keyvals...)
	case data.EventDataError:
		keyvals := []interface{}{"event", string(ev.Type), "error", ev.Err}
		if e := errdefs.AsError(ev.Err); e != nil {
			keyvals = append(keyvals, "severity", string(e.Severity()))
		}
		s.logger.Error("Design system data reload failed", keyvals...)
	case data.EventWatchError:
		s.logger.Warn("File watcher error", "error", ev.Err)
	case data.EventFileChanged, data.EventFileAdded, data.EventFileRemoved:
		s.logger.Debug("Data file event", "event", string(ev.Type), "path", ev.Path)
	}
}

func serverInstructions() string {
	return `designkit exposes a read-only design system dataset: design tokens
(colors, typography, spacing, elevation, motion), UI component specs and
usage guidelines.

Use the get_* tools for exact lookups and listings, and the search_* tools
for free-text discovery. Name and id lookups are case-insensitive. Errors
carry a machine-readable code and a retryable flag: SERVICE_UNAVAILABLE and
SERVICE_TIMEOUT are transient, back off and retry; RESOURCE_NOT_FOUND
includes the available identifiers in its suggestions.`
}
