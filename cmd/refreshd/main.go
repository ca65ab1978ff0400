// refreshd is the HTTP front end for the rotation engine.
//
// Routes:
//
//	POST /v1/refresh/issue          — start a new token family
//	POST /v1/refresh/rotate         — exchange a refresh credential
//	POST /v1/refresh/revoke-family  — revoke one family
//	POST /v1/refresh/revoke-user    — revoke all families for a user
//	GET  /healthz                   — store connectivity probe
//	GET  /metrics                   — engine metrics, Prometheus format
//	GET  /metrics/process           — process metrics (client_golang)
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	goRefresh "github.com/MrEthical07/goRefresh"
	"github.com/MrEthical07/goRefresh/signer"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	flag.Parse()

	cfg, err := loadServerConfig(*configPath)
	if err != nil {
		// Logger is not up yet.
		panic(err)
	}

	log, err := buildLogger(cfg.Log.Level)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = rdb.Close() }()

	hmacSigner, err := signer.NewHMAC(cfg.Signing.KeyID, []byte(cfg.Signing.Secret))
	if err != nil {
		log.Fatal("signer init failed", zap.Error(err))
	}

	engineCfg := goRefresh.DefaultConfig()
	engineCfg.Family.RedisPrefix = cfg.Engine.RedisPrefix
	engineCfg.Family.RefreshTTL = cfg.Engine.RefreshTTL
	engineCfg.Family.AuditTTL = cfg.Engine.AuditTTL
	engineCfg.JWT.AccessTTL = cfg.Engine.AccessTTL
	engineCfg.JWT.Issuer = cfg.Engine.Issuer
	engineCfg.JWT.Audience = cfg.Engine.Audience
	engineCfg.JWT.VerifyKeys = map[string][]byte{
		cfg.Signing.KeyID: []byte(cfg.Signing.Secret),
	}
	engineCfg.Security.EnableRotateThrottle = cfg.Engine.RotateThrottle
	engineCfg.Security.MaxRotateAttempts = cfg.Engine.MaxRotateTries
	engineCfg.Security.RotateCooldownDuration = cfg.Engine.RotateCooldown
	engineCfg.Audit.BufferSize = cfg.Engine.AuditBufferSize

	engine, err := goRefresh.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithSigner(hmacSigner).
		WithAuditSink(goRefresh.NewJSONWriterSink(os.Stdout)).
		Build()
	if err != nil {
		log.Fatal("engine build failed", zap.Error(err))
	}
	defer engine.Close()

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      newServer(engine, log).routes(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Info("listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown incomplete", zap.Error(err))
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
