package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chaos-io/maskbrush/cache"
	"github.com/chaos-io/maskbrush/config"
	"github.com/chaos-io/maskbrush/rembg"
	"github.com/chaos-io/maskbrush/server"
	"github.com/chaos-io/maskbrush/session"
	"github.com/chaos-io/maskbrush/util"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	// 加载配置
	cfg := config.New()

	// 初始化日志
	if err := util.InitLogger(cfg.Server.Mode); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer util.Sync()

	util.Logger.Info("starting maskbrush server",
		zap.String("version", Version),
		zap.String("git_commit", GitCommit),
		zap.String("remote", cfg.Remote.BaseURL))

	client := rembg.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout)

	opts := session.Options{
		Remover:         client,
		MaxDimension:    cfg.Upload.MaxDimension,
		CheckerSize:     cfg.View.CheckerSize,
		DefaultDiameter: cfg.Brush.DefaultDiameter,
	}
	if cfg.Remote.PromptsEnabled {
		opts.Segmenter = client
	}

	// 抠图结果缓存，Redis 不可用时直接请求服务
	if cfg.Redis.Enabled {
		redisCache := cache.NewRedisCache(&cfg.Redis)
		if err := redisCache.Ping(context.Background()); err != nil {
			util.Logger.Warn("redis connection failed, cache disabled", zap.Error(err))
		} else {
			util.Logger.Info("redis connected successfully", zap.String("addr", cfg.Redis.Addr))
			opts.Remover = rembg.NewCachedRemover(client, redisCache)
		}
		defer func() {
			_ = redisCache.Close()
		}()
	}

	sessions := session.NewManager(opts)
	sweeper, err := session.NewSweeper(sessions, cfg.Session.SweepSpec, cfg.Session.IdleTimeout)
	if err != nil {
		util.Logger.Fatal("invalid session sweep spec", zap.String("spec", cfg.Session.SweepSpec), zap.Error(err))
	}
	sweeper.Start()
	defer sweeper.Stop()

	server.Version = Version
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      server.NewRouter(cfg, sessions),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		util.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			util.Logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	util.Logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		util.Logger.Error("server shutdown failed", zap.Error(err))
	}
}
