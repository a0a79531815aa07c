package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tasksphere/internal/auth"
	"tasksphere/internal/server"
	"tasksphere/internal/service"
	"tasksphere/internal/storage/sqlite"
	"tasksphere/internal/util"
)

func main() {
	// .env is optional; real environments set the variables directly.
	_ = godotenv.Load()

	addrFlag := flag.String("addr", util.EnvOrDefault("TASKSPHERE_ADDR", ":4000"), "HTTP listen address")
	dbFlag := flag.String("db", util.EnvOrDefault("TASKSPHERE_DB_PATH", "data/tasksphere.db"), "Path to sqlite database file")
	uploadsFlag := flag.String("uploads", util.EnvOrDefault("TASKSPHERE_UPLOAD_DIR", "uploads"), "Directory for uploaded attachments")
	originsFlag := flag.String("origins", os.Getenv("TASKSPHERE_CORS_ORIGINS"), "Comma separated list of allowed CORS origins (empty allows all)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.Error("JWT_SECRET must be set")
		os.Exit(1)
	}

	store, err := sqlite.Open(*dbFlag, logger)
	if err != nil {
		logger.Error("unable to open database", "error", err.Error())
		os.Exit(1)
	}
	defer store.Close()

	tasks := service.NewTaskService(
		store,
		service.NewActivityLogger(store, logger),
		service.NewNotifier(store, logger),
		logger,
	)

	srv, err := server.New(server.Config{
		Store:          store,
		Tasks:          tasks,
		Tokens:         auth.NewTokenManager(secret, auth.DefaultTokenTTL),
		Logger:         logger,
		UploadDir:      *uploadsFlag,
		AllowedOrigins: splitOrigins(*originsFlag),
	})
	if err != nil {
		logger.Error("unable to build server", "error", err.Error())
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:    *addrFlag,
		Handler: srv.Engine(),
	}

	go func() {
		logger.Info("starting server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", "error", err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", "error", err.Error())
	}

	logger.Info("server stopped")
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
