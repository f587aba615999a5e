package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"energy_dashboard/internal/api"
	"energy_dashboard/internal/config"
	"energy_dashboard/internal/logging"
	"energy_dashboard/internal/metrics"
	"energy_dashboard/internal/simulator"
	"energy_dashboard/internal/store"
	"energy_dashboard/internal/ws"
)

const shutdownTimeout = 5 * time.Second

var cfgFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var addr, frontendDir string

	rootCmd := &cobra.Command{
		Use:   "server",
		Short: "Home energy flow dashboard",
		Long: `Simulates the power flows of a home with solar, battery, car charger
and heating, and streams them to the dashboard over WebSocket.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("frontend-dir") {
				cfg.Server.FrontendDir = frontendDir
			}

			logger, err := logging.New(logging.Options{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
				File:   cfg.Log.File,
			})
			if err != nil {
				return err
			}
			defer logger.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger.Logger)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or $HOME/.energy-dashboard/config.yaml)")
	rootCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	rootCmd.Flags().StringVar(&frontendDir, "frontend-dir", "", "directory containing frontend build")

	rootCmd.AddCommand(simulateCmd())
	rootCmd.AddCommand(temperatureCmd())
	return rootCmd
}

// newEngine builds a session store and engine from configuration. A zero
// seed draws a random one.
func newEngine(cfg *config.Config, cb simulator.Callback, logger *slog.Logger, seed uint64) *simulator.Engine {
	if seed == 0 {
		seed = rand.Uint64()
	}
	s := store.New(cfg.Flows(), cfg.Controls(), rand.New(rand.NewPCG(seed, 0)))
	return simulator.New(s, cb, simulator.Config{
		Interval: cfg.Simulation.Interval,
		Nominal:  cfg.NominalValues(),
		Logger:   logger,
	})
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	hub := ws.NewHub(logger)
	m := metrics.New()
	engine := newEngine(cfg, simulator.Callbacks{ws.NewBridge(hub), m}, logger, cfg.Simulation.Seed)

	srv := api.NewServer(engine, api.Options{
		WS:          ws.NewHandler(hub, engine),
		Metrics:     m,
		FrontendDir: cfg.Server.FrontendDir,
		Logger:      logger,
	})
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Simulation.AutoStart {
		engine.Start()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", "addr", cfg.Server.Addr, "session", engine.State().SessionID)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		engine.Pause()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
