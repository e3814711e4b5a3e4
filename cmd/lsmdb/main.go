package main

import (
	"context"
	"flag"
	"log/slog"
	"os/signal"
	"syscall"

	"lsmdb/pkg/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := initConfig(*configPath)
	if err != nil {
		panic(err)
	}
	initLogger(&cfg)

	db, err := store.Open(&cfg)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		return
	}
	defer db.Close()

	slog.Info("lsmdb started", "data_dir", cfg.DB.Persistence.RootPath)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	slog.Info("lsmdb stopped")
}
