// Cadence Daemon - daily scoring and streak service
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cadencehq/cadence/internal/api"
	"github.com/cadencehq/cadence/internal/config"
	"github.com/cadencehq/cadence/internal/logging"
	"github.com/cadencehq/cadence/internal/scoring"
	"github.com/cadencehq/cadence/internal/storage"
)

var (
	configPath string
	dataDir    string
	port       int
	debug      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cadence",
		Short: "Cadence Daemon - daily score and streak tracking",
		RunE:  runDaemon,
	}

	rootCmd.Flags().StringVar(&configPath, "config", "", "Config file path")
	rootCmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (overrides config)")
	rootCmd.Flags().IntVar(&port, "port", 0, "HTTP server port (overrides config)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if debug || cfg.Features.DebugMode {
		logging.SetLevel(logging.DEBUG)
	}

	fmt.Println("🚀 Starting Cadence Daemon...")

	// Open database
	db, err := storage.Open(storage.Config{Path: cfg.DatabasePath()})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	// Scoring engine
	engine := scoring.New(db)
	if streak, err := engine.CurrentStreak(); err == nil && streak > 0 {
		fmt.Printf("🔥 Current streak: %d days\n", streak)
	}

	// Create API server
	server := api.New(api.Config{
		Host:   cfg.Server.Host,
		Port:   cfg.Server.Port,
		DB:     db,
		Engine: engine,
	})

	// Handle shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		fmt.Println("\n🛑 Shutting down...")
		server.Stop(context.Background())
	}()

	// Start server (blocks)
	fmt.Printf("🌐 Listening on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	return server.Start()
}
