// Command polycopy mirrors a target Polymarket wallet's trades into a
// follower wallet. It loads configuration, validates it, wires dependencies
// and runs until SIGINT or SIGTERM.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alanyoungcy/polycopy/internal/app"
	"github.com/alanyoungcy/polycopy/internal/config"
	"github.com/alanyoungcy/polycopy/internal/crypto"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file (optional)")
	encryptKey := flag.String("encrypt-key", "", "read a private key and password from stdin, write an encrypted key file to this path and exit")
	flag.Parse()

	if *encryptKey != "" {
		if err := writeKeyFile(os.Stdin, *encryptKey); err != nil {
			fmt.Fprintf(os.Stderr, "encrypt-key: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", *encryptKey)
		return
	}

	logger := newLogger("info")
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	logger = newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	application := app.New(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = application.Run(ctx)
	application.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("copier exited with error", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	logger.Info("copier stopped")
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
}

// writeKeyFile reads the hex key and then the password, one per line.
func writeKeyFile(in io.Reader, path string) error {
	sc := bufio.NewScanner(in)
	var lines []string
	for len(lines) < 2 && sc.Scan() {
		lines = append(lines, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if len(lines) < 2 {
		return errors.New("expected the private key and the password on separate lines")
	}

	data, err := crypto.EncryptKey(lines[0], lines[1])
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
