// Command pingmedaddyd is the server entrypoint: the construction root that
// wires the pgx pool, time-series store, analytics engine, target registry,
// scheduler, cache, and gin router together.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Poutchouli/PingMeDaddy/internal/cache"
	"github.com/Poutchouli/PingMeDaddy/internal/config"
	"github.com/Poutchouli/PingMeDaddy/internal/geo"
	"github.com/Poutchouli/PingMeDaddy/internal/httpapi"
	"github.com/Poutchouli/PingMeDaddy/internal/registry"
	"github.com/Poutchouli/PingMeDaddy/internal/scheduler"
	"github.com/Poutchouli/PingMeDaddy/internal/timeseries"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("pingmedaddyd: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "pingmedaddy.yaml"
	}

	cfg, generatedPassword, err := config.LoadOrInit(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if generatedPassword != "" {
		fmt.Println("==============================================================")
		fmt.Println(" First run: generated an admin password. It will not be shown")
		fmt.Println(" again — store it now.")
		fmt.Printf(" admin username: %s\n", cfg.AdminUsername)
		fmt.Printf(" admin password: %s\n", generatedPassword)
		fmt.Println("==============================================================")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database_url is required")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := timeseries.InitSchema(ctx, pool); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	if cfg.GeoIPMMDBPath != "" {
		if err := geo.Shared().Load(cfg.GeoIPMMDBPath); err != nil {
			log.Printf("pingmedaddyd: geoip disabled: %v", err)
		} else {
			defer geo.Shared().Close()
		}
	}

	store := timeseries.New(pool)
	defer store.Close()

	sched := scheduler.New(store, cfg.PingTimeout(), cfg.PingConcurrencyLimit)
	reg := registry.New(pool, geo.Shared(), sched)

	targets, err := reg.ListTargets(ctx)
	if err != nil {
		return fmt.Errorf("list targets at boot: %w", err)
	}
	sched.Boot(targets)

	minuteRollup := timeseries.NewMinuteRollup(store, timeseries.RollupLagMinute)
	hourRollup := timeseries.NewHourRollup(store, timeseries.RollupLagHour)
	rawRetention := timeseries.NewRawRetention(store, time.Hour)
	minuteRetention := timeseries.NewMinuteRetention(store, 6*time.Hour)
	for _, w := range []interface{ Start() }{minuteRollup, hourRollup, rawRetention, minuteRetention} {
		w.Start()
	}
	defer minuteRollup.Stop()
	defer hourRollup.Stop()
	defer rawRetention.Stop()
	defer minuteRetention.Stop()

	insightsCache := cache.New(cfg.RedisURL)

	server := httpapi.New(httpapi.Options{
		Targets:           reg,
		Samples:           store,
		Cache:             insightsCache,
		Streams:           store,
		AdminUsername:     cfg.AdminUsername,
		AdminPasswordHash: cfg.AdminPasswordHash,
		JWTSecret:         cfg.JWTSecret,
		TokenLifetime:     cfg.TokenLifetime(),
		CORSOrigins:       cfg.CORSOrigins,
	})

	httpServer := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: server.Router(),
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("pingmedaddyd: listening on :%s", cfg.AppPort)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve: %w", err)
		}
	case <-sigCtx.Done():
		log.Printf("pingmedaddyd: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("pingmedaddyd: http shutdown: %v", err)
		}
		sched.Shutdown()
	}

	return nil
}
