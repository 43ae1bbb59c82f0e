package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/flowsync/internal/client/api"
	"github.com/iudanet/flowsync/internal/client/auth"
	"github.com/iudanet/flowsync/internal/client/cli"
	"github.com/iudanet/flowsync/internal/client/iocli"
	"github.com/iudanet/flowsync/internal/client/session"
	"github.com/iudanet/flowsync/internal/client/storage"
	"github.com/iudanet/flowsync/internal/client/storage/boltdb"
	"github.com/iudanet/flowsync/internal/client/transport"
	"github.com/iudanet/flowsync/internal/config"
	"github.com/iudanet/flowsync/internal/logging"
	"github.com/iudanet/flowsync/internal/models"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	configPath := flag.String("config", "", "Path to YAML config file")
	serverURL := flag.String("server", "", "Server URL (overrides config)")
	dbPath := flag.String("db", "", "Path to local database (overrides config)")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}

	cfg, err := config.LoadClient(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *serverURL != "" {
		cfg.ServerURL = *serverURL
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	if err := run(cfg, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, cli.ErrUsage) {
			cli.PrintUsage()
		}
		os.Exit(1)
	}
}

func run(cfg *config.ClientConfig, command string, args []string) error {
	logger := logging.NewCLI(os.Stderr, logging.Level(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wsURL, err := cfg.WebSocketURL()
	if err != nil {
		return err
	}

	// Открываем BoltDB storage
	boltStorage, err := boltdb.New(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := boltStorage.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()

	replicaID, err := boltStorage.ReplicaID(ctx)
	if err != nil {
		return fmt.Errorf("failed to get replica id: %w", err)
	}

	apiClient := api.NewClient(cfg.ServerURL)
	authService := auth.NewService(apiClient, boltStorage, logger)

	coordinator, err := session.NewCoordinator(session.Options{
		ReplicaID: replicaID,
		Tokens:    authService,
		Documents: boltStorage,
		Logger:    logger,
		Presence:  presence(ctx, cfg, boltStorage),
		Transport: transport.Config{URL: wsURL},
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := coordinator.Close(); err != nil {
			logger.Error("Failed to close sessions", "error", err)
		}
	}()

	c := cli.New(iocli.NewStdio(), authService, apiClient, coordinator, boltStorage, cfg.ServerURL)
	return c.Run(ctx, command, args)
}

// presence имя участника: из конфигурации, иначе из сохраненного входа.
func presence(ctx context.Context, cfg *config.ClientConfig, store storage.AuthStorage) models.Presence {
	p := models.Presence{Name: cfg.Name, Color: cfg.Color}
	if p.Name == "" {
		if data, err := store.GetAuth(ctx); err == nil {
			p.Name = data.Name
		}
	}
	return p
}

func printVersion() {
	fmt.Printf("FlowSync Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
