// Package config loads parley settings from the environment and flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the client needs to start a session.
type Config struct {
	WSURL  string `env:"PARLEY_WS_URL" envDefault:"ws://localhost:8080/ws"`
	APIURL string `env:"PARLEY_API_URL" envDefault:"http://localhost:8080"`
	UserID int    `env:"PARLEY_USER_ID"`

	MaxReconnectAttempts int           `env:"PARLEY_MAX_RECONNECT_ATTEMPTS" envDefault:"5"`
	ReconnectBaseDelay   time.Duration `env:"PARLEY_RECONNECT_BASE_DELAY" envDefault:"1s"`
	ReconnectMaxDelay    time.Duration `env:"PARLEY_RECONNECT_MAX_DELAY" envDefault:"30s"`

	TypingResetDelay time.Duration `env:"PARLEY_TYPING_RESET_DELAY" envDefault:"3s"`
	EmitStopTyping   bool          `env:"PARLEY_EMIT_STOP_TYPING" envDefault:"false"`

	HandshakeTimeout time.Duration `env:"PARLEY_HANDSHAKE_TIMEOUT" envDefault:"10s"`
	WriteTimeout     time.Duration `env:"PARLEY_WRITE_TIMEOUT" envDefault:"5s"`
	ReadLimit        int64         `env:"PARLEY_READ_LIMIT" envDefault:"524288"`
	HTTPTimeout      time.Duration `env:"PARLEY_HTTP_TIMEOUT" envDefault:"15s"`

	// LogFile defaults to ~/.parley/parley.log when empty.
	LogFile  string `env:"PARLEY_LOG_FILE"`
	LogLevel string `env:"PARLEY_LOG_LEVEL" envDefault:"info"`
}

// Parse loads env defaults into a Config, then applies flags from args.
func Parse(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.WSURL, "ws", cfg.WSURL, "websocket endpoint")
	fs.StringVar(&cfg.APIURL, "api", cfg.APIURL, "HTTP API base URL")
	fs.IntVar(&cfg.UserID, "user", cfg.UserID, "user id to connect as")
	fs.IntVar(&cfg.MaxReconnectAttempts, "max-reconnects", cfg.MaxReconnectAttempts, "automatic reconnect attempts before giving up")
	fs.DurationVar(&cfg.TypingResetDelay, "typing-reset", cfg.TypingResetDelay, "idle time before the typing reset timer fires")
	fs.BoolVar(&cfg.EmitStopTyping, "emit-stop-typing", cfg.EmitStopTyping, "send a stop-typing event when the reset timer fires")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log file path")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")

	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	if c.UserID <= 0 {
		return errors.New("user id is required (-user or PARLEY_USER_ID)")
	}
	u, err := url.Parse(c.WSURL)
	if err != nil {
		return fmt.Errorf("websocket url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("websocket url %q: scheme must be ws or wss", c.WSURL)
	}
	a, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("api url: %w", err)
	}
	if a.Scheme != "http" && a.Scheme != "https" {
		return fmt.Errorf("api url %q: scheme must be http or https", c.APIURL)
	}
	if c.MaxReconnectAttempts < 0 {
		return fmt.Errorf("max reconnect attempts must be >= 0, got %d", c.MaxReconnectAttempts)
	}
	if c.ReconnectBaseDelay <= 0 || c.ReconnectMaxDelay < c.ReconnectBaseDelay {
		return fmt.Errorf("reconnect delays: base %v, max %v", c.ReconnectBaseDelay, c.ReconnectMaxDelay)
	}
	if c.TypingResetDelay <= 0 {
		return fmt.Errorf("typing reset delay must be positive, got %v", c.TypingResetDelay)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// LogPath returns LogFile, or ~/.parley/parley.log when it is unset.
func (c Config) LogPath() (string, error) {
	if c.LogFile != "" {
		return c.LogFile, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".parley", "parley.log"), nil
}

// ParseLevel maps a level name to its slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
