package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/HerbHall/fleetmap/internal/inventory"
	"github.com/HerbHall/fleetmap/internal/seed"
	"go.uber.org/zap"
)

// runSeed loads a YAML fixture (or the built-in demo) into the inventory
// source tables of the configured database.
func runSeed(args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	file := fs.String("file", "", "path to a YAML fixture")
	demo := fs.Bool("demo", false, "load the built-in demo fixture")
	_ = fs.Parse(args)

	if (*file == "") == !*demo {
		fmt.Fprintln(os.Stderr, "usage: fleetmap seed [-config path] (-file fixture.yaml | -demo)")
		os.Exit(2)
	}

	if err := seedDatabase(*configPath, *file, *demo); err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
}

func seedDatabase(configPath, file string, demo bool) error {
	viperCfg, logger, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var fixture *seed.Fixture
	if demo {
		fixture, err = seed.Demo()
	} else {
		fixture, err = seed.ParseFile(file)
	}
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, err := openDatabase(ctx, viperCfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx, "inventory", inventory.Migrations()); err != nil {
		return fmt.Errorf("inventory migrations: %w", err)
	}

	counts, err := seed.Apply(ctx, inventory.NewSQLStore(db), fixture, time.Now())
	if err != nil {
		return err
	}

	logger.Info("seed complete",
		zap.Int("tenants", counts.Tenants),
		zap.Int("agents", counts.Agents),
		zap.Int("telemetry", counts.Telemetry),
		zap.Int("scans", counts.Scans),
	)
	return nil
}
