// Command server runs the multiplayer game server: lobby, matchmaking
// and the WebSocket game transport on a single HTTP listener.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/Garsondee/Dustline/internal/lobby"
	"github.com/Garsondee/Dustline/internal/rts"
	"github.com/Garsondee/Dustline/internal/server"
)

func main() {
	v := viper.New()
	v.SetDefault("listen", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("lobby.max_games", 64)
	v.SetDefault("balance.file", "")
	v.SetDefault("shutdown_grace", "10s")

	v.SetEnvPrefix("RTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("server")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/dustline")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("config file unreadable", "err", err)
			os.Exit(1)
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(v.GetString("log.level")),
	}))
	slog.SetDefault(logger)

	balance := rts.DefaultBalance()
	if path := v.GetString("balance.file"); path != "" {
		loaded, err := rts.LoadBalanceFile(path)
		if err != nil {
			logger.Error("balance file rejected", "path", path, "err", err)
			os.Exit(1)
		}
		balance = loaded
		logger.Info("balance overrides loaded", "path", path)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l := lobby.New(lobby.Config{
		MaxGames: v.GetInt("lobby.max_games"),
		Balance:  balance,
		Logger:   logger,
	})
	go l.Run(ctx)

	srv := &http.Server{
		Addr:              v.GetString("listen"),
		Handler:           server.New(server.Config{Lobby: l, Balance: balance, Logger: logger}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("listener failed", "err", err)
		os.Exit(1)
	}

	grace := v.GetDuration("shutdown_grace")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("forced shutdown", "err", err)
	}
	l.Shutdown()
	logger.Info("server stopped")
}

func logLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
