package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mark3labs/handoff/internal/config"
	"github.com/mark3labs/handoff/internal/logger"
	"github.com/mark3labs/handoff/internal/mcpserver"
	"github.com/mark3labs/handoff/internal/orchestrator"
)

var serveFlags struct {
	http bool
	port int
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the delegate tool over MCP",
	Long: `Serve the delegate tool over the Model Context Protocol.

By default the server speaks MCP over stdio, which is how coding assistants
attach local tool servers. With --http it binds a streamable HTTP endpoint
on localhost instead.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveFlags.http, "http", false, "Serve over streamable HTTP instead of stdio")
	serveCmd.Flags().IntVar(&serveFlags.port, "port", 0, "HTTP port (0 = random available port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyLogConfig(cfg)

	orch := orchestrator.New(orchestratorConfig(cfg))
	srv := mcpserver.New(orch, version)

	if !serveFlags.http {
		return srv.ServeStdio()
	}

	port, err := srv.StartHTTP(serveFlags.port)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "handoff MCP server listening on %s\n", srv.URL())
	logger.Info("Serving MCP over HTTP on port %d", port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	return srv.Stop()
}

// orchestratorConfig maps file/env configuration onto the orchestrator.
func orchestratorConfig(cfg *config.Config) orchestrator.Config {
	return orchestrator.Config{
		AgentCommand: cfg.AgentCommand,
		Model:        cfg.Model,
		WorkspaceDir: cfg.WorkspaceDir,
		AgentTimeout: time.Duration(cfg.AgentTimeout) * time.Second,
	}
}

// applyLogConfig pushes config-file log settings onto the default logger.
// Environment variables already took effect at init; config fills the gaps.
func applyLogConfig(cfg *config.Config) {
	if cfg.LogLevel != "" {
		if level, err := logger.ParseLevel(cfg.LogLevel); err == nil {
			logger.Default.SetLevel(level)
		}
	}
	if cfg.LogFile != "" && os.Getenv("HANDOFF_LOG_FILE") == "" {
		if f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			logger.Default.SetOutput(f)
		}
	}
}
