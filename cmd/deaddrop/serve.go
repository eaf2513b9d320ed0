package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wolftrace/deaddrop/pkg/api"
	"github.com/wolftrace/deaddrop/pkg/archive"
	"github.com/wolftrace/deaddrop/pkg/config"
	"github.com/wolftrace/deaddrop/pkg/engine"
	"github.com/wolftrace/deaddrop/pkg/log"
	"github.com/wolftrace/deaddrop/pkg/metrics"
	"github.com/wolftrace/deaddrop/pkg/seed"
	"github.com/wolftrace/deaddrop/pkg/services"
)

const shutdownGrace = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Dead Drop engine and API server",
	Long: `Start the full engine: graph store, blackboard controller, knowledge
sources, alert pipeline, archive and the HTTP/WebSocket API.

External AI services are enabled per configured credentials; a missing
credential disables that service and the engine degrades gracefully.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		withSeed, _ := cmd.Flags().GetBool("seed")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		log.Init(log.Config{
			Level:      log.Level(cfg.Log.Level),
			JSONOutput: cfg.Log.JSON,
		})
		metrics.SetVersion(Version)

		arc, err := archive.Open(cfg.Archive.Path)
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		defer arc.Close()

		deps := services.FromConfig(cmd.Context(), cfg.Services)

		eng, err := engine.New(cfg, deps, arc)
		if err != nil {
			return err
		}
		eng.Start()

		if withSeed {
			n, err := seed.Load(eng)
			if err != nil {
				return fmt.Errorf("failed to seed demo cases: %w", err)
			}
			log.WithComponent("main").Info().Int("cases", n).Msg("Demo cases seeded")
		}

		server := api.New(cfg, eng)
		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.WithComponent("main").Info().Str("signal", sig.String()).Msg("Shutting down")
		case err := <-errCh:
			if err != nil {
				eng.Stop()
				return fmt.Errorf("API server error: %w", err)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.WithComponent("main").Warn().Err(err).Msg("HTTP shutdown incomplete")
		}
		eng.Stop()
		log.WithComponent("main").Info().Msg("Shutdown complete")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("config", "", "Path to YAML config file")
	serveCmd.Flags().Bool("seed", false, "Load the demo cases on startup")
}
