package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/parley/internal/config"
	"github.com/naveenspark/parley/internal/conn"
	"github.com/naveenspark/parley/internal/session"
	"github.com/naveenspark/parley/internal/tui"
	"github.com/naveenspark/parley/pkg/client"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "--version", "version", "-v":
			fmt.Fprintln(stdout, "parley "+version)
			return nil
		case "help", "--help", "-h":
			printHelp(stdout)
			return nil
		}
	}

	fs := flag.NewFlagSet("parley", flag.ContinueOnError)
	fs.SetOutput(stdout)
	cfg, err := config.Parse(fs, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closeLog, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog() //nolint:errcheck

	return runSession(cfg, logger)
}

// openLogger sends structured logs to the configured file; the terminal
// belongs to the UI.
func openLogger(cfg config.Config) (*slog.Logger, func() error, error) {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	path, err := cfg.LogPath()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return logger.With("app", "parley", "version", version), f.Close, nil
}

func runSession(cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bridge := tui.NewBridge()
	sess := session.New(session.Options{
		UserID: cfg.UserID,
		WSURL:  cfg.WSURL,
		Dialer: conn.WebSocketDialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
			WriteTimeout:     cfg.WriteTimeout,
			ReadLimit:        cfg.ReadLimit,
		},
		API:  client.New(cfg.APIURL, cfg.UserID, client.WithTimeout(cfg.HTTPTimeout)),
		Sink: bridge,
		Policy: conn.Policy{
			MaxAttempts: cfg.MaxReconnectAttempts,
			BaseDelay:   cfg.ReconnectBaseDelay,
			MaxDelay:    cfg.ReconnectMaxDelay,
		},
		TypingResetDelay: cfg.TypingResetDelay,
		EmitStopTyping:   cfg.EmitStopTyping,
		Logger:           logger,
	})

	p := tea.NewProgram(tui.NewApp(sess, sess.Info()), tea.WithAltScreen())
	go bridge.Forward(ctx, p.Send)

	runErr := make(chan error, 1)
	go func() { runErr <- sess.Run(ctx) }()

	sess.Connect()
	sess.LoadRooms(ctx)

	_, uiErr := p.Run()
	sess.Close()
	if err := <-runErr; err != nil {
		logger.Error("session stopped", "error", err)
	}
	if uiErr != nil {
		return fmt.Errorf("tui error: %w", uiErr)
	}
	return nil
}
