package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"github.com/petrijr/nodeflow/internal/config"
	"github.com/petrijr/nodeflow/internal/engine"
	"github.com/petrijr/nodeflow/internal/server"
	"github.com/petrijr/nodeflow/internal/store"
	"github.com/petrijr/nodeflow/pkg/analysis"
	"github.com/petrijr/nodeflow/pkg/api"
	"github.com/petrijr/nodeflow/pkg/nodes"
)

type nodeflowd struct {
	cfg        *config.Config
	db         *sql.DB
	redis      *redis.Client
	engine     *engine.Engine
	apiServer  *server.Server
	httpServer *http.Server
	quit       chan os.Signal
}

var (
	ErrOpenSQLite    = errors.New("failed to open sqlite archive")
	ErrConnectRedis  = errors.New("failed to connect to redis archive")
	ErrCreateArchive = errors.New("failed to create run archive")
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	d := &nodeflowd{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	d.setupLogging()

	if err := d.run(); err != nil {
		slog.Error("Failed to start daemon", slog.Any("error", err))
		os.Exit(1)
	}
}

func (d *nodeflowd) run() error {
	archive, err := d.initializeArchive()
	if err != nil {
		return err
	}

	d.initializeEngine(archive)
	d.startServer()

	signal.Notify(d.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(d.quit)
	<-d.quit

	d.shutdown()
	return nil
}

func (d *nodeflowd) setupLogging() {
	level, ok := logLevels[d.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	slog.Info("nodeflow daemon starting",
		slog.String("log_level", d.cfg.LogLevel),
		slog.String("api_host", d.cfg.APIHost),
		slog.Int("api_port", d.cfg.APIPort),
		slog.String("archive_driver", d.cfg.ArchiveDriver))
}

func (d *nodeflowd) initializeArchive() (store.RunArchive, error) {
	switch d.cfg.ArchiveDriver {
	case config.ArchiveSQLite:
		db, err := sql.Open("sqlite", d.cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrOpenSQLite, err)
		}
		d.db = db
		archive, err := store.NewSQLiteRunArchive(db)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCreateArchive, err)
		}
		return archive, nil

	case config.ArchiveRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     d.cfg.Redis.Addr,
			Password: d.cfg.Redis.Password,
			DB:       d.cfg.Redis.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConnectRedis, err)
		}
		d.redis = client
		return store.NewRedisRunArchive(client, d.cfg.Redis.Prefix), nil

	default:
		return nil, nil
	}
}

func (d *nodeflowd) initializeEngine(archive store.RunArchive) {
	nodeReg := api.NewNodeRegistry()
	toolReg := api.NewToolRegistry()
	nodes.Register(nodeReg)
	analysis.RegisterTools(toolReg)

	opts := []engine.Option{
		engine.WithPoolSize(d.cfg.WorkerPoolSize),
		engine.WithObserver(api.NewLoggingObserver(slog.Default())),
	}
	if archive != nil {
		opts = append(opts, engine.WithArchive(archive))
	}

	d.engine = engine.New(nodeReg, toolReg, opts...)
}

func (d *nodeflowd) startServer() {
	d.apiServer = server.NewServer(d.engine)
	mux := d.apiServer.SetupRoutes()

	d.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", d.cfg.APIHost, d.cfg.APIPort),
		Handler: mux,
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", d.httpServer.Addr))
		err := d.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", slog.Any("error", err))
		}
	}()
}

func (d *nodeflowd) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), d.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := d.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", slog.Any("error", err))
	}

	if err := d.engine.Close(); err != nil {
		slog.Error("Engine shutdown failed", slog.Any("error", err))
	}

	if d.db != nil {
		_ = d.db.Close()
	}
	if d.redis != nil {
		_ = d.redis.Close()
	}

	slog.Info("Daemon exited")
}
