package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/BaSui01/lexflow/config"
	"github.com/BaSui01/lexflow/retrieval"
)

func runMigrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	sub := "up"
	if fs.NArg() > 0 {
		sub = fs.Arg(0)
	}
	if sub != "up" {
		fmt.Fprintf(os.Stderr, "Unknown migrate subcommand: %s\n", sub)
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(config.LogConfig{Level: cfg.Log.Level, Format: "console"})
	defer logger.Sync()

	db, err := openDatabase(cfg.Database, logger)
	if err != nil {
		logger.Fatal("database unavailable", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("database handle", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := retrieval.Migrate(sqlDB); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	logger.Info("passage store schema up to date")
	fmt.Println("OK")
}
