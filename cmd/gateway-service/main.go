package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vaultflow/internal/gateway"
	"vaultflow/pkg/audit"
	"vaultflow/pkg/config"
	"vaultflow/pkg/db"
	"vaultflow/pkg/logger"
	"vaultflow/pkg/middleware"
	"vaultflow/pkg/vault"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatalw("invalid configuration", logger.KeyErr, err)
	}

	session, err := vault.NewSession(vault.Config{
		MountPath:  cfg.VaultAuthPath,
		Address:    cfg.VaultAddress,
		Token:      cfg.VaultToken,
		Timeout:    cfg.VaultTimeout,
		SkipVerify: cfg.VaultSkipVerify,
	})
	if err != nil {
		log.Fatalw("vault session", logger.KeyErr, err)
	}

	if cfg.DatabaseURL == "" && cfg.RedisURL == "" {
		log.Warnw("neither DATABASE_URL nor REDIS_URL set; login audit disabled")
	}
	var sinks []audit.Recorder
	if pool := db.MustConnect(cfg, log); pool != nil {
		defer pool.Close()
		if err := audit.EnsureSchema(context.Background(), pool); err != nil {
			log.Fatalw("audit schema", logger.KeyErr, err)
		}
		sinks = append(sinks, audit.NewPostgresRecorder(pool))
	}
	if rdb := db.MustRedis(cfg, log); rdb != nil {
		defer rdb.Close()
		sinks = append(sinks, audit.NewRedisRecorder(rdb, audit.DefaultStream))
	}

	view, err := gateway.NewHTMLRenderer()
	if err != nil {
		log.Fatalw("templates", logger.KeyErr, err)
	}
	gw := gateway.New(session, log, audit.Multi(sinks...))

	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recover(log))
	r.Use(middleware.DebugWriteHeader(log))
	r.Use(middleware.Tracing("vaultflow-gateway", log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("ok")) })
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ok, err := session.Ready(req.Context())
		if err != nil || !ok {
			log.Debugw("backend not ready", "ready", ok, logger.KeyErr, err)
			http.Error(w, "backend not ready", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	gateway.RegisterRoutes(r, gw, view)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Infow("gateway-service listening", "addr", cfg.HTTPAddr, "mount", session.MountPath())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("ListenAndServe", logger.KeyErr, err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	fmt.Println("gateway-service stopped")
}
