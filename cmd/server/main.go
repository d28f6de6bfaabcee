// Package main is the entry point for the mozart API server
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/james-see/mozart/pkg/api"
	"github.com/james-see/mozart/pkg/config"
	"github.com/james-see/mozart/pkg/store"
)

func main() {
	port := flag.Int("port", 0, "Server port (default: server.addr from config)")
	dataDir := flag.String("data-dir", "", "Badger data directory (in-memory when empty)")
	configPath := flag.String("config", "", "Config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := serve(*configPath, *port, *dataDir, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func serve(configPath string, port int, dataDir string, logger *slog.Logger) error {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	addr := cfg.Server.Addr
	if port != 0 {
		addr = fmt.Sprintf(":%d", port)
	}
	if dataDir == "" {
		dataDir = cfg.DataDir
	}

	st, err := store.Open(dataDir, logger)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	srv, err := api.NewServer(st, cfg, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Starting mozart API server on %s...\n", addr)
	fmt.Printf("Swagger docs available at http://localhost%s/swagger/index.html\n", addr)
	return srv.Run(addr)
}
