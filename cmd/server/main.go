/*
main.go - Application entry point

PURPOSE:
  Starts the economy engine admin server: opens the ledger and cooldown
  databases, starts the expiry sweeper and serves the HTTP API.

STARTUP SEQUENCE:
  1. Load configuration from the environment, then apply flag overrides
  2. Open the ledger store and the cooldown store (separate files)
  3. Create the ledger and the cooldown manager
  4. Start the cooldown sweeper
  5. Start the HTTP server with graceful shutdown

COMMAND-LINE FLAGS (override environment):
  -port          HTTP server port                (HTTP_PORT, default 8080)
  -economy-db    Ledger database path            (ECONOMY_DB_PATH)
  -cooldown-db   Cooldown database path          (COOLDOWN_DB_PATH)
  -sweep         Sweeper interval, 0 disables it (SWEEP_INTERVAL, default 10m)

  STARTING_BALANCE sets the balance of newly created accounts (default 250).

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the sweeper
  4. Close both databases

EXAMPLES:
  ./server -economy-db=./data/economy.db -cooldown-db=./data/cooldowns.db
  ./server -economy-db=":memory:" -cooldown-db=":memory:" -sweep=30s
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/economy-engine/api"
	"github.com/warp/economy-engine/config"
	"github.com/warp/economy-engine/cooldown"
	"github.com/warp/economy-engine/economy"
	"github.com/warp/economy-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.EconomyDBPath, "economy-db", cfg.EconomyDBPath, "Ledger SQLite database path")
	flag.StringVar(&cfg.CooldownDBPath, "cooldown-db", cfg.CooldownDBPath, "Cooldown SQLite database path")
	flag.DurationVar(&cfg.SweepInterval, "sweep", cfg.SweepInterval, "Expired cooldown sweep interval (0 disables)")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ledgerStore, err := sqlite.OpenLedger(cfg.EconomyDBPath)
	if err != nil {
		log.Fatalf("Failed to initialize ledger database: %v", err)
	}
	defer ledgerStore.Close()

	cooldownStore, err := sqlite.OpenCooldowns(cfg.CooldownDBPath)
	if err != nil {
		log.Fatalf("Failed to initialize cooldown database: %v", err)
	}
	defer cooldownStore.Close()

	ledger := economy.NewLedger(ledgerStore)
	ledger.StartingBalance = cfg.StartingBalance

	cooldowns := cooldown.NewManager(cooldownStore)

	sweeper := cooldown.NewSweeper(cooldowns)
	sweeper.Interval = cfg.SweepInterval
	sweeper.Start()
	defer sweeper.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(api.NewHandler(ledger, cooldowns)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%d", cfg.Port)
		log.Printf("Ledger: %s, cooldowns: %s", cfg.EconomyDBPath, cfg.CooldownDBPath)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
