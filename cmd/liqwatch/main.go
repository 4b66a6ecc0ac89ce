package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"liqwatch/internal/cache"
	"liqwatch/internal/config"
	"liqwatch/internal/engine"
	"liqwatch/internal/obs"
	"liqwatch/internal/recommend"
	"liqwatch/internal/store/postgres"
	"liqwatch/internal/venue"
	"liqwatch/internal/venue/kucoin"
	"liqwatch/internal/venue/mexc"
)

const (
	appName = "liqwatch"
	version = "v1.0.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	var configPath string

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Market liquidity monitor and alerting engine",
		Version: version,
		Long: `liqwatch polls MEXC and KuCoin for one trading pair, measures order book
depth, spread and volatility, and raises threshold alerts with actionable
liquidity recommendations. It is designed to be invoked on a schedule; each
invocation is one complete monitoring run.`,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to YAML config file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one monitoring run",
		Long:  "Fetch market and account state from every enabled venue, persist it, evaluate alert rules, and dispatch notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), configPath)
		},
	}

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Start the monitoring HTTP server",
		Long:  "Serves /health and /metrics for liveness probes and Prometheus scraping",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(cmd.Context(), configPath)
		},
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Deactivate expired recommendations",
		Long:  "Marks every active recommendation whose expiry has passed as inactive",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd.Context(), configPath)
		},
	}

	recsCmd := &cobra.Command{
		Use:   "recs",
		Short: "List active recommendations",
		Long:  "Prints every active recommendation ordered by priority",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecs(cmd.Context(), configPath)
		},
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(recsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func runOnce(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	db, err := postgres.Connect(ctx, cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		return err
	}
	defer db.Close()

	clients, err := buildClients(cfg)
	if err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	eng := engine.New(engine.Params{
		Store:   postgres.NewStore(db, cfg.Database.QueryTimeout),
		Clients: clients,
		Cache:   cache.New(redisClient, cfg.Redis.TTL),
		Symbol:  cfg.Symbol,
		Bands:   cfg.Bands,
		Logger:  log.Logger,
	})

	return eng.Run(ctx)
}

func runMonitor(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	db, err := postgres.Connect(ctx, cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := obs.NewServer(cfg.Monitor.ListenAddr, db)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Monitor.ListenAddr).Msg("monitoring server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("monitoring server: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info().Msg("shutting down monitoring server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func runSweep(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	db, err := postgres.Connect(ctx, cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		return err
	}
	defer db.Close()

	st := postgres.NewStore(db, cfg.Database.QueryTimeout)
	manager := recommend.NewManager(st.Recommendations, log.Logger)

	n, err := manager.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	fmt.Printf("Expired %d recommendation(s)\n", n)
	return nil
}

func runRecs(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	db, err := postgres.Connect(ctx, cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		return err
	}
	defer db.Close()

	st := postgres.NewStore(db, cfg.Database.QueryTimeout)
	recs, err := st.Recommendations.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list recommendations: %w", err)
	}

	if len(recs) == 0 {
		fmt.Println("No active recommendations")
		return nil
	}
	for _, r := range recs {
		scope := "all venues"
		if r.Venue != nil {
			scope = string(*r.Venue)
		}
		expiry := "no expiry"
		if r.ExpiresAt != nil {
			expiry = "expires " + r.ExpiresAt.UTC().Format(time.RFC3339)
		}
		fmt.Printf("[P%d] %s/%s %s: %s (%s)\n", r.Priority, scope, r.Category, r.Action, r.Reason, expiry)
	}
	return nil
}

func buildClients(cfg *config.File) ([]venue.Client, error) {
	mexcClient, err := mexc.New(cfg.Venues.MEXC, cfg.Symbol)
	if err != nil {
		return nil, fmt.Errorf("mexc client: %w", err)
	}
	kucoinClient, err := kucoin.New(cfg.Venues.KuCoin, cfg.Symbol)
	if err != nil {
		return nil, fmt.Errorf("kucoin client: %w", err)
	}
	return []venue.Client{mexcClient, kucoinClient}, nil
}
