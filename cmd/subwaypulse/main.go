package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"subwaypulse/internal/arrivals"
	"subwaypulse/internal/catalog"
	"subwaypulse/internal/config"
	"subwaypulse/internal/dashboard"
	"subwaypulse/internal/handler"
	"subwaypulse/internal/notify"
	"subwaypulse/internal/server"
	"subwaypulse/internal/source"
	"subwaypulse/internal/storage"
	"subwaypulse/internal/theme"
	"subwaypulse/web"
)

var CLI struct {
	Config      string `help:"Path to YAML config file." type:"path"`
	Port        int    `help:"HTTP server port."`
	Endpoint    string `help:"Arrival source endpoint. Empty runs in demo mode."`
	DBPath      string `help:"SQLite database holding the station catalog." name:"db-path" type:"path"`
	SeedCatalog bool   `help:"Write the built-in catalog into the database, then exit." name:"seed-catalog"`
	Seed        int64  `help:"Seed for synthetic arrivals (0 = time based)."`
	Dash        bool   `help:"Show leave-now verdicts using the walk buffer."`
	Debug       bool   `help:"Enable debug logging."`
}

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	kong.Parse(&CLI,
		kong.Name("subwaypulse"),
		kong.Description("Live subway arrivals board."),
	)

	level := slog.LevelInfo
	if CLI.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if CLI.Config != "" {
		if err := cfg.LoadFile(CLI.Config); err != nil {
			return nil, err
		}
	}
	if CLI.Port != 0 {
		cfg.Port = CLI.Port
	}
	if CLI.Endpoint != "" {
		cfg.Endpoint = CLI.Endpoint
	}
	if CLI.DBPath != "" {
		cfg.DBPath = CLI.DBPath
	}
	if CLI.Seed != 0 {
		cfg.Seed = CLI.Seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadCatalog returns the stored catalog when a database is configured and
// populated, otherwise the built-in tables.
func loadCatalog(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*catalog.Catalog, *catalog.Registry, error) {
	if cfg.DBPath == "" {
		if CLI.SeedCatalog {
			return nil, nil, fmt.Errorf("--seed-catalog needs --db-path")
		}
		cat, err := catalog.New(catalog.DefaultStations())
		return cat, catalog.NewRegistry(catalog.DefaultLines()), err
	}

	db, err := storage.Open(cfg.DBPath, logger)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	if CLI.SeedCatalog {
		if err := db.SeedCatalog(ctx, catalog.DefaultStations(), catalog.DefaultLines()); err != nil {
			return nil, nil, err
		}
		return nil, nil, nil
	}

	has, err := db.HasCatalog(ctx)
	if err != nil {
		return nil, nil, err
	}
	if !has {
		logger.Warn("database has no catalog, using built-in stations", "path", cfg.DBPath)
		cat, err := catalog.New(catalog.DefaultStations())
		return cat, catalog.NewRegistry(catalog.DefaultLines()), err
	}
	seeded, err := db.GetMetadata(ctx, "seeded_at")
	if err != nil {
		return nil, nil, fmt.Errorf("read seed time: %w", err)
	}
	logger.Info("loading catalog from database", "path", cfg.DBPath, "seeded_at", seeded)
	return db.LoadCatalog(ctx)
}

func run(logger *slog.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, registry, err := loadCatalog(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if CLI.SeedCatalog {
		logger.Info("catalog seeded, exiting", "path", cfg.DBPath)
		return nil
	}

	var primary source.Source
	if !cfg.Demo() {
		remote, err := source.NewRemote(source.RemoteConfig{
			Endpoint: cfg.Endpoint,
			APIKey:   cfg.APIKey,
			Format:   source.Format(cfg.FeedFormat),
			Timeout:  cfg.FetchTimeout,
			CacheTTL: cfg.CacheTTL,
		}, registry, logger)
		if err != nil {
			return err
		}
		defer remote.Close()
		primary = remote
		logger.Info("live arrivals enabled", "endpoint", cfg.Endpoint, "format", cfg.FeedFormat)
	} else {
		logger.Info("no endpoint configured, running in demo mode")
	}
	loader := source.NewFallback(primary, source.NewSynthetic(cfg.Seed, cfg.PoolSize).WithLatency(cfg.SyntheticLatency), logger)

	pipeline := arrivals.New(registry, arrivals.Options{
		DisplayCount:   cfg.DisplayCount,
		DelayThreshold: cfg.DelayThreshold,
		ArrivingSoon:   cfg.ArrivingSoon,
		WalkBuffer:     cfg.WalkBuffer,
	})

	dashOpts := dashboard.Options{
		Interval:        cfg.RefreshInterval,
		RefetchOnFilter: cfg.RefetchOnFilter,
		Station:         cfg.DefaultStation,
	}
	if cfg.Notifications() {
		notifier := notify.New(notify.NewPushover(cfg.PushoverToken, cfg.PushoverUser, logger), logger)
		defer notifier.Close()
		dashOpts.Observer = notifier
		logger.Info("pushover notifications enabled")
	}
	dash, err := dashboard.New(cat, pipeline, loader, logger, dashOpts)
	if err != nil {
		return err
	}

	static, err := fs.Sub(web.StaticFiles, "static")
	if err != nil {
		return err
	}
	th := theme.New(static, registry)
	if err := th.Initialize(); err != nil {
		return err
	}
	logger.Info("theme initialized", "version", th.Version())

	h := handler.New(dash, th, logger, handler.Options{
		DashMode:       CLI.Dash,
		RefreshTimeout: cfg.FetchTimeout + cfg.FetchTimeout/2,
	})
	srv := server.New(h, th, static, server.Options{Port: cfg.Port, CORSOrigins: cfg.CORSOrigins}, logger)

	dashDone := make(chan struct{})
	go func() {
		dash.Run(ctx)
		close(dashDone)
	}()

	err = srv.ListenAndServe(ctx)
	stop()
	<-dashDone
	logger.Info("shutting down")
	return err
}
