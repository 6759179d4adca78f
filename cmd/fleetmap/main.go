// Command fleetmap reconciles agent and scanner sightings into per-tenant
// device dashboards and streams them to subscribers.
//
//	@title			fleetmap API
//	@version		0.1.0
//	@description	Per-tenant device reconciliation and dashboard aggregation.
//	@BasePath		/api/v1
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/HerbHall/fleetmap/api/swagger"
	"github.com/HerbHall/fleetmap/internal/auth"
	"github.com/HerbHall/fleetmap/internal/config"
	"github.com/HerbHall/fleetmap/internal/event"
	"github.com/HerbHall/fleetmap/internal/inventory"
	"github.com/HerbHall/fleetmap/internal/mqtt"
	natspub "github.com/HerbHall/fleetmap/internal/nats"
	"github.com/HerbHall/fleetmap/internal/registry"
	"github.com/HerbHall/fleetmap/internal/server"
	"github.com/HerbHall/fleetmap/internal/store"
	"github.com/HerbHall/fleetmap/internal/version"
	"github.com/HerbHall/fleetmap/internal/ws"
	"github.com/HerbHall/fleetmap/pkg/plugin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	// Subcommand dispatch (before flag.Parse).
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "seed":
			runSeed(os.Args[2:])
			return
		case "token":
			runToken(os.Args[2:])
			return
		case "version":
			fmt.Println(version.Info())
			return
		case "run":
			os.Args = append(os.Args[:1], os.Args[2:]...)
		}
	}

	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	if err := serve(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "fleetmap: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads configuration and builds the logger from it.
func loadConfig(configPath string) (*viper.Viper, *zap.Logger, error) {
	viperCfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := config.NewLogger(viperCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return viperCfg, logger, nil
}

// openDatabase opens the SQLite database and refuses one written by a
// newer binary.
func openDatabase(ctx context.Context, viperCfg *viper.Viper, logger *zap.Logger) (*store.SQLiteStore, error) {
	dbPath := viperCfg.GetString("database.path")
	if dbPath == "" {
		dbPath = "fleetmap.db"
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.CheckVersion(ctx, version.Short()); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("database initialized",
		zap.String("component", "database"),
		zap.String("path", dbPath),
	)
	return db, nil
}

// wsSecret returns the configured WebSocket token secret, or an ephemeral
// one when unset. Tokens signed with an ephemeral secret die with the
// process.
func wsSecret(viperCfg *viper.Viper, logger *zap.Logger) ([]byte, error) {
	if s := viperCfg.GetString("auth.ws_secret"); s != "" {
		return []byte(s), nil
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate websocket secret: %w", err)
	}
	logger.Warn("using auto-generated websocket secret; set auth.ws_secret to issue tokens with `fleetmap token`",
		zap.String("component", "auth"),
	)
	return []byte(hex.EncodeToString(b)), nil
}

func serve(configPath string) error {
	viperCfg, logger, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("fleetmap server starting", zap.String("version", version.Short()))

	if f := viperCfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded",
			zap.String("component", "config"),
			zap.String("source", f),
		)
	} else {
		logger.Warn("no configuration file found, using defaults",
			zap.String("component", "config"),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := openDatabase(ctx, viperCfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	// Create shared services
	bus := event.NewBus(logger.Named("event"))
	reg := registry.New(logger.Named("registry"))
	cfg := config.New(viperCfg)

	// Register all plugins (compile-time composition)
	inv := inventory.New()
	modules := []plugin.Plugin{
		inv,
		mqtt.New(),
		natspub.New(),
	}
	for _, m := range modules {
		if err := reg.Register(m); err != nil {
			return fmt.Errorf("register plugin: %w", err)
		}
		name := m.Info().Name
		if key := "plugins." + name + ".enabled"; viperCfg.IsSet(key) && !viperCfg.GetBool(key) {
			reg.Disable(name)
		}
	}

	if err := reg.Validate(); err != nil {
		return fmt.Errorf("plugin validation failed: %w", err)
	}

	if err := reg.InitAll(ctx, func(name string) plugin.Dependencies {
		return plugin.Dependencies{
			Config:  cfg.Sub("plugins." + name),
			Logger:  logger.Named(name),
			Store:   db,
			Bus:     bus,
			Plugins: reg,
		}
	}); err != nil {
		return fmt.Errorf("failed to initialize plugins: %w", err)
	}

	if err := reg.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start plugins: %w", err)
	}

	// WebSocket stream of tenant events.
	secret, err := wsSecret(viperCfg, logger)
	if err != nil {
		return err
	}
	ttl := viperCfg.GetDuration("auth.ws_token_ttl")
	tokens := auth.NewTokenService(secret, ttl)
	wsHandler := ws.NewHandler(tokens, bus, inv.Snapshots(), logger.Named("ws"))
	logger.Info("websocket handler initialized", zap.String("component", "ws"))

	var srvCfg server.Config
	if err := viperCfg.UnmarshalKey("server", &srvCfg); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	readyCheck := server.ReadinessChecker(db.Ping)
	srv := server.New(srvCfg, reg, logger.Named("server"), readyCheck, wsHandler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("fleetmap server ready", zap.String("addr", srvCfg.Addr()))

	// Wait for shutdown signal or a listener failure.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case serveErr = <-errCh:
		logger.Error("server error", zap.Error(serveErr))
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	wsHandler.Close()
	reg.StopAll(shutdownCtx)
	if err := bus.Close(shutdownCtx); err != nil {
		logger.Warn("event bus close", zap.Error(err))
	}

	logger.Info("fleetmap server stopped")
	return serveErr
}
