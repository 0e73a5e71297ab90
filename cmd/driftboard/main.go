// cmd/driftboard/main.go
//
// Entry point for the driftboard TUI. Wiring order matters:
//
// 1. Load configuration (file + environment)
// 2. Open the file logger (the TUI owns stdout, so diagnostics go to a file)
// 3. Build the API client and the reconciler on top of it
// 4. Hand the reconciler to the bubbletea program and block until quit

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"driftboard/internal/api"
	"driftboard/internal/board"
	"driftboard/internal/config"
	"driftboard/internal/logging"
	"driftboard/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "driftboard: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	defaultPath, err := config.DefaultPath()
	if err != nil {
		return err
	}
	configPath := flag.String("config", defaultPath, "path to the config file")
	projectGID := flag.String("project", "", "project GID (overrides the config file)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	token, err := cfg.Credential()
	if err != nil {
		return fmt.Errorf("%w (set %s or add token to %s)", err, config.EnvToken, cfg.Path)
	}
	project := cfg.ProjectGID()
	if *projectGID != "" {
		project = *projectGID
	}
	if project == "" {
		return fmt.Errorf("no project configured (set project in %s or pass -project)", cfg.Path)
	}

	logger, err := logging.New(cfg.LogFile())
	if err != nil {
		return err
	}
	defer logger.Close()
	logger.Info("session opened · project %s", project)

	client := api.New(token,
		api.WithBaseURL(cfg.BaseURL()),
		api.WithTimeout(cfg.RequestTimeout()),
		api.WithRetryPolicy(cfg.MaxRetries(), 0, 0),
		api.WithLogger(logger.Info),
	)

	rec := board.New(board.NewAPIService(client), project, board.WithLogger(logger.Info))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rec.Run(ctx)

	app := tui.NewApp(rec,
		tui.WithShowCompleted(cfg.File.Prefs.ShowCompleted),
		tui.WithUILogger(logger.Info),
	)
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.Error("TUI exited with error: %v", err)
		return err
	}
	logger.Info("session closed")
	return nil
}
