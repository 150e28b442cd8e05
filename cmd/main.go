package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/subgrab/subgrab/internal/captions"
	"github.com/subgrab/subgrab/internal/config"
	"github.com/subgrab/subgrab/internal/httpapi"
	"github.com/subgrab/subgrab/internal/jobs"
	"github.com/subgrab/subgrab/internal/persistence"
	"github.com/subgrab/subgrab/internal/proxy"
	"github.com/subgrab/subgrab/internal/service"
	"github.com/subgrab/subgrab/pkg/log"
)

type cronRunner interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func main() {
	_ = godotenv.Load()

	settingsPath := config.RuntimeSettingsFilePath()
	opts := []config.Option{}
	if settings, err := config.LoadRuntimeSettingsFile(settingsPath); err == nil {
		opts = append(opts, config.WithRuntimeSettings(settings))
	}

	cfg, err := config.NewFromEnv(opts...)
	if err != nil {
		stdlog.Fatal("Failed to load configuration: ", err)
	}

	log.InitLogger(log.ParseLevel(cfg.Log.Level))

	store, err := persistence.NewSQLiteStore(cfg.Data.DBPath)
	if err != nil {
		log.Fatal("Failed to open database: %v", err)
	}
	defer store.Close()

	pool := proxy.NewPool(cfg.Proxy.Endpoints)
	client := captions.NewClient(captions.Config{
		Timeout:   cfg.Fetch.Timeout,
		UserAgent: cfg.Fetch.UserAgent,
	}, pool)
	svc := service.NewCaptionService(client, store, time.Duration(cfg.Data.CacheTTLMinutes)*time.Minute)

	queue := jobs.NewQueue(cfg.Jobs.Workers, store)
	queue.Start(svc.Executor())
	defer queue.Stop()

	settingsStore, err := config.NewRuntimeSettingsStore(settingsPath, cfg.RuntimeSettings())
	if err != nil {
		log.Fatal("Failed to initialize settings store: %v", err)
	}
	applySettings := func(next config.RuntimeSettings) error {
		pool.Reload(next.ProxyEndpoints())
		svc.SetCacheTTL(time.Duration(next.CacheTTLMinutes) * time.Minute)
		return nil
	}

	cronEngine := cron.New()
	if _, err := svc.ScheduleCacheSweep(cronEngine, cfg.Data.CacheSweepCron); err != nil {
		log.Fatal("Failed to schedule cache sweep: %v", err)
	}

	server := httpapi.NewServer(svc, queue,
		httpapi.WithUI(cfg.HTTP.UIStaticDir, cfg.HTTP.UIEnabled),
		httpapi.WithRuntimeSettingsStore(settingsStore),
		httpapi.WithRuntimeSettingsApplier(applySettings),
		httpapi.WithProxyPool(pool),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runWithComponents(ctx, cfg, cronEngine, server); err != nil {
		log.Fatal("Server exited with error: %v", err)
	}
}

// runWithComponents runs the cron engine and the HTTP server until the
// context is cancelled, then shuts both down.
func runWithComponents(ctx context.Context, cfg *config.Config, cronEngine cronRunner, httpSrv httpServer) error {
	cronEngine.Start()
	defer cronEngine.Stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening on %s", cfg.HTTP.Addr)
		errCh <- httpSrv.ListenAndServe(cfg.HTTP.Addr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
